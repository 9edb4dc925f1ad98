package inventory

import "time"

type MovementType string

const (
	MovementIn            MovementType = "in"
	MovementOut           MovementType = "out"
	MovementAdjustmentIn  MovementType = "adjustment-in"
	MovementAdjustmentOut MovementType = "adjustment-out"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustmentIn, MovementAdjustmentOut:
		return true
	}
	return false
}

// inbound reports whether the type adds stock.
func (t MovementType) inbound() bool {
	return t == MovementIn || t == MovementAdjustmentIn
}

type StockStatus string

const (
	StockNormal StockStatus = "normal"
	StockLow    StockStatus = "low"
	StockOut    StockStatus = "out"
)

// StatusFor derives the stock band from a cached quantity and threshold.
func StatusFor(quantity, threshold int) StockStatus {
	switch {
	case quantity == 0:
		return StockOut
	case quantity <= threshold:
		return StockLow
	default:
		return StockNormal
	}
}

// Item is the materialized view over a product's movements. Quantity is a
// derived cache: it must always equal the fold of the product's movement
// history, never an independently edited value.
type Item struct {
	ProductID string
	Name      string
	Category  string
	Unit      string
	Quantity  int
	Threshold int
	Status    StockStatus
	UpdatedAt time.Time
}

// Movement is append-only. Corrections are new compensating movements,
// never edits.
type Movement struct {
	ID        string
	ProductID string
	Type      MovementType
	Quantity  int
	CreatedBy string
	Reference *string
	Note      *string
	CreatedAt time.Time
}

// Delta is the signed effect of the movement on stock. Movements are stored
// as type + unsigned quantity; the sign lives here and nowhere else.
func (m *Movement) Delta() int {
	if m.Type.inbound() {
		return m.Quantity
	}
	return -m.Quantity
}

// Replay folds movements over a starting quantity, clamping at zero the
// same way live posting does.
func Replay(start int, history []*Movement) int {
	qty := start
	for _, m := range history {
		qty += m.Delta()
		if qty < 0 {
			qty = 0
		}
	}
	return qty
}
