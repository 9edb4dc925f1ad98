package order

import (
	"time"

	"bonstock-be/internal/actor"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusProcessing Status = "processing"
	StatusPurchased  Status = "purchased"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type LineStatus string

const (
	LineApproved LineStatus = "approved"
	LineRejected LineStatus = "rejected"
)

// Order is the supply request ("bon") moving through the workflow. After
// submission it is mutated only through transitions, never by direct field
// edits.
type Order struct {
	ID            string
	Title         string
	Department    string
	CreatedBy     string
	CreatedByRole actor.Role
	CreatedAt     time.Time
	Priority      Priority
	Status        Status
	Items         []LineItem
	Total         decimal.Decimal

	ApprovedBy   *string
	ApprovedAt   *time.Time
	RejectedBy   *string
	RejectedAt   *time.Time
	DecisionNote *string
}

// LineItem is embedded in its order and never addressable on its own.
// AdjustedQuantity, Approved and Status are set only during review.
type LineItem struct {
	ProductID        string
	Name             string
	Category         string
	Unit             string
	Quantity         int
	AdjustedQuantity *int
	Price            decimal.Decimal
	Total            decimal.Decimal
	Approved         *bool
	Status           LineStatus
}

// EffectiveQuantity is the quantity in force: adjusted when reviewed and
// approved, requested before review, zero when the line was rejected.
func (li *LineItem) EffectiveQuantity() int {
	if li.Approved != nil && !*li.Approved {
		return 0
	}
	if li.AdjustedQuantity != nil {
		return *li.AdjustedQuantity
	}
	return li.Quantity
}

// SumItems recomputes the order total from its line totals.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Total)
	}
	return total
}

// SubmitInput is the payload for authoring a new order.
type SubmitInput struct {
	Title      string       `json:"title" validate:"required"`
	Department string       `json:"department"`
	Priority   Priority     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Items      []SubmitItem `json:"items" validate:"required,min=1,dive"`
}

type SubmitItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// LineReview is a reviewer's verdict on one line, keyed by product. A nil
// AdjustedQuantity keeps the requested quantity.
type LineReview struct {
	ProductID        string
	Approved         bool
	AdjustedQuantity *int
}

// Filter narrows List results.
type Filter struct {
	Status     *Status
	Department *string
	CreatedBy  *string
}
