package procurement

import (
	"context"
	"fmt"
	"time"

	"bonstock-be/internal/actor"
	"bonstock-be/internal/inventory"
	"bonstock-be/internal/logger"
	"bonstock-be/internal/notification"
	"bonstock-be/internal/order"
	"bonstock-be/internal/purchase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator runs the saga between an approved order, its purchase record
// and the stock ledger. It is registered as a transition hook on the order
// service, so side effects fire after each transition commits.
type Coordinator interface {
	order.TransitionHook

	// Progress moves the order to processing or purchased, keeping the
	// purchase record in lockstep.
	Progress(ctx context.Context, orderID string, target order.Status, by actor.Actor) (*order.Order, error)

	// Receive books physical reception of purchase lines into the ledger.
	// An empty lineIDs receives every outstanding line. Lines already
	// received are skipped, so retries never double-post stock.
	Receive(ctx context.Context, orderID string, lineIDs []string, by actor.Actor) (*purchase.Purchase, error)

	AssignSupplier(ctx context.Context, orderID, supplier, paymentMethod string, expectedAt *time.Time) (*purchase.Purchase, error)
	GetByOrder(ctx context.Context, orderID string) (*purchase.Purchase, error)
}

type coordinator struct {
	orders     order.Service
	purchases  purchase.Repository
	ledger     inventory.Ledger
	dispatcher notification.Dispatcher
}

func NewCoordinator(
	orders order.Service,
	purchases purchase.Repository,
	ledger inventory.Ledger,
	dispatcher notification.Dispatcher,
) Coordinator {
	return &coordinator{
		orders:     orders,
		purchases:  purchases,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// OrderTransitioned reacts to committed workflow transitions: approval opens
// a purchase and notifies, rejection and delivery notify the requester.
func (c *coordinator) OrderTransitioned(ctx context.Context, o *order.Order, from order.Status) error {
	switch o.Status {
	case order.StatusApproved:
		return c.openPurchase(ctx, o)

	case order.StatusRejected:
		note := ""
		if o.DecisionNote != nil {
			note = *o.DecisionNote
		}
		c.dispatcher.Dispatch(ctx, notification.ForUser(
			o.CreatedBy,
			notification.TypeOrderRejected,
			"Order rejected",
			fmt.Sprintf("%q was rejected: %s", o.Title, note),
			o.ID,
		))

	case order.StatusDelivered:
		c.dispatcher.Dispatch(ctx, notification.ForUser(
			o.CreatedBy,
			notification.TypeOrderDelivered,
			"Order delivered",
			fmt.Sprintf("%q has been delivered in full", o.Title),
			o.ID,
		))
	}
	return nil
}

func (c *coordinator) openPurchase(ctx context.Context, o *order.Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "openPurchase"),
		zap.String("order_id", o.ID),
	)

	p := &purchase.Purchase{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Status:    purchase.StatusScheduled,
		CreatedAt: time.Now(),
	}
	for _, li := range o.Items {
		qty := li.EffectiveQuantity()
		if qty == 0 {
			continue // rejected or zeroed lines buy nothing
		}
		p.Lines = append(p.Lines, purchase.Line{
			ID:        uuid.NewString(),
			ProductID: li.ProductID,
			Name:      li.Name,
			Unit:      li.Unit,
			Quantity:  qty,
			Price:     li.Price,
		})
	}

	if err := c.purchases.Insert(ctx, p); err != nil {
		log.Error("failed to open purchase", zap.Error(err))
		return fmt.Errorf("open purchase for order %s: %w", o.ID, err)
	}

	log.Info("purchase opened",
		zap.String("purchase_id", p.ID),
		zap.Int("line_count", len(p.Lines)),
	)

	c.dispatcher.Dispatch(ctx, notification.ForUser(
		o.CreatedBy,
		notification.TypeOrderApproved,
		"Order approved",
		fmt.Sprintf("%q was approved, total %s", o.Title, o.Total.String()),
		o.ID,
	))
	c.dispatcher.Dispatch(ctx, notification.ForRole(
		actor.RolePurchasing,
		notification.TypePurchaseOpened,
		"Purchase scheduled",
		fmt.Sprintf("Order %q needs a supplier (%d lines)", o.Title, len(p.Lines)),
		p.ID,
	))

	return nil
}

func (c *coordinator) Progress(ctx context.Context, orderID string, target order.Status, by actor.Actor) (*order.Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Progress"),
		zap.String("order_id", orderID),
		zap.String("target", string(target)),
	)

	p, err := c.purchases.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch target {
	case order.StatusProcessing:
		moved, err := c.purchases.UpdateStatus(ctx, p.ID, purchase.StatusScheduled, purchase.StatusProcessing)
		if err != nil {
			return nil, err
		}
		if !moved {
			// The purchase may already be processing from an earlier
			// attempt whose order update failed; retrying heals that.
			p, err = c.purchases.GetByID(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			if p.Status.Rank() < purchase.StatusProcessing.Rank() {
				return nil, fmt.Errorf("order %s: purchase %s is %s: %w", orderID, p.ID, p.Status, ErrInconsistentState)
			}
		}

	case order.StatusPurchased:
		if p.Status.Rank() < purchase.StatusProcessing.Rank() {
			return nil, fmt.Errorf("order %s: purchase %s still %s: %w", orderID, p.ID, p.Status, ErrInconsistentState)
		}

	default:
		return nil, fmt.Errorf("order %s: progress to %s: %w", orderID, target, order.ErrInvalidTransition)
	}

	o, err := c.orders.Advance(ctx, orderID, target, by)
	if err != nil {
		log.Error("failed to advance order", zap.Error(err))
		return nil, err
	}

	log.Info("pipeline progressed", zap.String("purchase_id", p.ID))
	return o, nil
}

func (c *coordinator) Receive(ctx context.Context, orderID string, lineIDs []string, by actor.Actor) (*purchase.Purchase, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Receive"),
		zap.String("order_id", orderID),
	)

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPurchased {
		return nil, fmt.Errorf("order %s: cannot receive while %s: %w", orderID, o.Status, ErrInconsistentState)
	}

	p, err := c.purchases.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}

	received := 0
	for i := range p.Lines {
		line := &p.Lines[i]
		if len(wanted) > 0 && !wanted[line.ID] {
			continue
		}

		first, err := c.purchases.MarkLineReceived(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		if !first {
			line.Received = true
			continue // already booked, never post twice
		}

		_, err = c.ledger.PostMovement(ctx, inventory.PostInput{
			ProductID: line.ProductID,
			Type:      inventory.MovementIn,
			Quantity:  line.Quantity,
			CreatedBy: by.ID,
			Reference: &p.ID,
		})
		if err != nil {
			// The flag stays set: the reception was accepted, only the
			// posting failed, and Rebuild reconciles the cache.
			log.Error("failed to post reception",
				zap.String("line_id", line.ID),
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("receive line %s: %w", line.ID, err)
		}
		line.Received = true
		received++
	}

	log.Info("lines received",
		zap.String("purchase_id", p.ID),
		zap.Int("received", received),
	)

	if !p.AllReceived() {
		return p, nil
	}

	now := time.Now()
	if err := c.purchases.SetDelivered(ctx, p.ID, now); err != nil {
		return nil, err
	}
	p.Status = purchase.StatusDelivered
	p.DeliveredAt = &now

	if _, err := c.orders.Advance(ctx, orderID, order.StatusDelivered, by); err != nil {
		return nil, err
	}

	return p, nil
}

func (c *coordinator) AssignSupplier(ctx context.Context, orderID, supplier, paymentMethod string, expectedAt *time.Time) (*purchase.Purchase, error) {
	p, err := c.purchases.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := c.purchases.SetSupplier(ctx, p.ID, supplier, paymentMethod, expectedAt); err != nil {
		return nil, err
	}

	p.Supplier = supplier
	p.PaymentMethod = paymentMethod
	p.ExpectedAt = expectedAt
	return p, nil
}

func (c *coordinator) GetByOrder(ctx context.Context, orderID string) (*purchase.Purchase, error) {
	return c.purchases.GetByOrderID(ctx, orderID)
}
