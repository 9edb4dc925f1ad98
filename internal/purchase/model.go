package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks physical delivery, independently of the originating
// order's own workflow status.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
)

// Rank orders statuses along the delivery pipeline so lockstep guards can
// compare progress.
func (s Status) Rank() int {
	switch s {
	case StatusScheduled:
		return 0
	case StatusProcessing:
		return 1
	case StatusDelivered:
		return 2
	}
	return -1
}

// Purchase is opened when an order is approved and follows its own
// scheduled -> processing -> delivered lifecycle.
type Purchase struct {
	ID            string
	OrderID       string
	Supplier      string
	PaymentMethod string
	Status        Status
	ExpectedAt    *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	Lines         []Line
}

// Line mirrors an approved order line at its effective quantity. Received
// is the per-line idempotency flag guarding against double-posting a
// reception into the stock ledger.
type Line struct {
	ID        string
	ProductID string
	Name      string
	Unit      string
	Quantity  int
	Price     decimal.Decimal
	Received  bool
}

func (p *Purchase) AllReceived() bool {
	for _, l := range p.Lines {
		if !l.Received {
			return false
		}
	}
	return len(p.Lines) > 0
}
