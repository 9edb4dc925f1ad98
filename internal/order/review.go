package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// applyReview runs the per-line adjustment pass of an approval. Every line
// must carry a verdict; rejected lines are retained for audit with zero
// contribution. The returned total replaces the order's pre-review
// estimate.
func applyReview(orderID string, items []LineItem, reviews []LineReview) ([]LineItem, decimal.Decimal, error) {
	verdicts := make(map[string]LineReview, len(reviews))
	for _, rv := range reviews {
		if rv.AdjustedQuantity != nil && *rv.AdjustedQuantity < 0 {
			return nil, decimal.Zero, fmt.Errorf("order %s: line %s: negative adjusted quantity %d: %w",
				orderID, rv.ProductID, *rv.AdjustedQuantity, ErrValidation)
		}
		if _, dup := verdicts[rv.ProductID]; dup {
			return nil, decimal.Zero, fmt.Errorf("order %s: duplicate review for line %s: %w", orderID, rv.ProductID, ErrValidation)
		}
		verdicts[rv.ProductID] = rv
	}

	reviewed := make([]LineItem, len(items))
	total := decimal.Zero
	effective := 0

	for i, li := range items {
		rv, ok := verdicts[li.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("order %s: line %s has no review verdict: %w", orderID, li.ProductID, ErrValidation)
		}
		delete(verdicts, li.ProductID)

		approved := rv.Approved
		li.Approved = &approved

		if !approved {
			li.Status = LineRejected
			li.AdjustedQuantity = nil
			li.Total = decimal.Zero
			reviewed[i] = li
			continue
		}

		qty := li.Quantity
		if rv.AdjustedQuantity != nil {
			qty = *rv.AdjustedQuantity
		}
		li.Status = LineApproved
		li.AdjustedQuantity = &qty
		li.Total = li.Price.Mul(decimal.NewFromInt(int64(qty)))

		total = total.Add(li.Total)
		effective += qty
		reviewed[i] = li
	}

	if len(verdicts) > 0 {
		for productID := range verdicts {
			return nil, decimal.Zero, fmt.Errorf("order %s: review references unknown line %s: %w", orderID, productID, ErrValidation)
		}
	}

	if effective == 0 {
		return nil, decimal.Zero, fmt.Errorf("order %s: every line rejected or zeroed, use reject instead: %w", orderID, ErrEmptyApproval)
	}

	return reviewed, total, nil
}
