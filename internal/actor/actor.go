package actor

// Role is the workflow authority a user acts under. Authority over
// individual order transitions is decided by the order package; this
// package only owns the vocabulary.
type Role string

const (
	RoleVendor         Role = "vendor"
	RoleDepartmentHead Role = "department-head"
	RolePurchasing     Role = "purchasing"
	RoleWarehouse      Role = "warehouse"
	RolePOS            Role = "pos"
	RoleAdmin          Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleVendor, RoleDepartmentHead, RolePurchasing, RoleWarehouse, RolePOS, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who performs a workflow operation. Authentication is
// handled upstream; by the time an Actor reaches this core it is trusted.
type Actor struct {
	ID   string
	Name string
	Role Role
}
