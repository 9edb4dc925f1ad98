package notification

import (
	"time"

	"bonstock-be/internal/actor"
)

type Type string

const (
	TypeOrderApproved  Type = "order-approved"
	TypeOrderRejected  Type = "order-rejected"
	TypeOrderDelivered Type = "order-delivered"
	TypePurchaseOpened Type = "purchase-opened"
	TypeLowStock       Type = "low-stock"
	TypeOutOfStock     Type = "out-of-stock"
)

// Notification is write-once; the only mutation ever applied afterwards is
// flipping Read. Recipient is either a whole role (broadcast) or one user.
type Notification struct {
	ID            string
	Title         string
	Message       string
	Type          Type
	RecipientRole *actor.Role
	RecipientID   *string
	Reference     string
	Read          bool
	CreatedAt     time.Time
}

// ForRole builds a role-broadcast notification.
func ForRole(role actor.Role, typ Type, title, message, reference string) *Notification {
	r := role
	return &Notification{
		Title:         title,
		Message:       message,
		Type:          typ,
		RecipientRole: &r,
		Reference:     reference,
	}
}

// ForUser builds a point-to-point notification.
func ForUser(userID string, typ Type, title, message, reference string) *Notification {
	id := userID
	return &Notification{
		Title:       title,
		Message:     message,
		Type:        typ,
		RecipientID: &id,
		Reference:   reference,
	}
}
