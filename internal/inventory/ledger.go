package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bonstock-be/internal/actor"
	"bonstock-be/internal/logger"
	"bonstock-be/internal/metrics"
	"bonstock-be/internal/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PostInput describes one stock movement to append. Quantity is unsigned;
// direction comes from Type.
type PostInput struct {
	ProductID string
	Type      MovementType
	Quantity  int
	CreatedBy string
	Reference *string
	Note      *string
}

type Ledger interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, productID string) (*Item, error)
	ListItems(ctx context.Context, status *StockStatus) ([]*Item, error)

	PostMovement(ctx context.Context, input PostInput) (*Movement, error)
	CurrentQuantity(ctx context.Context, productID string) (int, error)
	History(ctx context.Context, productID string) ([]*Movement, error)
	Rebuild(ctx context.Context, productID string) (int, error)
}

type ledger struct {
	repo       Repository
	dispatcher notification.Dispatcher

	// mu guards locks; each product gets its own mutex so movements on the
	// same product apply in the order they are accepted.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	clampWarn *rate.Limiter
	clamped   *metrics.Counter
	posted    *metrics.Counter
}

func NewLedger(repo Repository, dispatcher notification.Dispatcher) Ledger {
	return &ledger{
		repo:       repo,
		dispatcher: dispatcher,
		locks:      map[string]*sync.Mutex{},
		clampWarn:  rate.NewLimiter(rate.Every(10*time.Second), 5),
		clamped:    metrics.NewCounter("ledger_clamped_movements"),
		posted:     metrics.NewCounter("ledger_posted_movements"),
	}
}

func (l *ledger) lockProduct(productID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[productID] = m
	}
	return m
}

// CreateItem registers a product with an empty ledger baseline. Opening
// stock is posted as a regular movement afterwards, so the replay invariant
// holds from day one.
func (l *ledger) CreateItem(ctx context.Context, item *Item) error {
	if item.ProductID == "" {
		return fmt.Errorf("item: missing product id: %w", ErrValidation)
	}
	if item.Name == "" {
		return fmt.Errorf("item %s: missing name: %w", item.ProductID, ErrValidation)
	}
	if item.Threshold < 0 {
		return fmt.Errorf("item %s: negative threshold: %w", item.ProductID, ErrValidation)
	}

	item.Quantity = 0
	item.Status = StatusFor(0, item.Threshold)
	item.UpdatedAt = time.Now()

	return l.repo.CreateItem(ctx, item)
}

func (l *ledger) GetItem(ctx context.Context, productID string) (*Item, error) {
	return l.repo.GetItem(ctx, productID)
}

func (l *ledger) ListItems(ctx context.Context, status *StockStatus) ([]*Item, error) {
	return l.repo.ListItems(ctx, status)
}

func (l *ledger) PostMovement(ctx context.Context, input PostInput) (*Movement, error) {
	if input.ProductID == "" {
		return nil, fmt.Errorf("movement: missing product id: %w", ErrValidation)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("movement for %s: unknown type %q: %w", input.ProductID, input.Type, ErrValidation)
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("movement for %s: quantity %d must be positive: %w", input.ProductID, input.Quantity, ErrValidation)
	}
	if input.CreatedBy == "" {
		return nil, fmt.Errorf("movement for %s: missing actor: %w", input.ProductID, ErrValidation)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "PostMovement"),
		zap.String("product_id", input.ProductID),
		zap.String("type", string(input.Type)),
		zap.Int("quantity", input.Quantity),
	)

	lock := l.lockProduct(input.ProductID)
	lock.Lock()
	defer lock.Unlock()

	item, err := l.repo.GetItem(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	movement := &Movement{
		ID:        uuid.NewString(),
		ProductID: input.ProductID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		CreatedBy: input.CreatedBy,
		Reference: input.Reference,
		Note:      input.Note,
		CreatedAt: time.Now(),
	}

	if err := l.repo.InsertMovement(ctx, movement); err != nil {
		log.Error("failed to append movement", zap.Error(err))
		return nil, err
	}
	l.posted.Inc()

	// Recompute the cached quantity. Going below zero is not a hard
	// failure: the movement stays on record (corrections must remain
	// representable even when prior data was wrong) and the cache clamps.
	newQty := item.Quantity + movement.Delta()
	if newQty < 0 {
		l.clamped.Inc()
		if l.clampWarn.Allow() {
			log.Warn("movement drives quantity below zero, clamping",
				zap.Int("cached_quantity", item.Quantity),
				zap.Int("delta", movement.Delta()),
			)
		}
		newQty = 0
	}

	newStatus := StatusFor(newQty, item.Threshold)
	if err := l.repo.UpdateItemQuantity(ctx, item.ProductID, newQty, newStatus, movement.CreatedAt); err != nil {
		log.Error("failed to update cached quantity", zap.Error(err))
		return nil, err
	}

	// Alert only when the item enters a degraded band; repeated movements
	// inside the same band stay silent.
	if newStatus != item.Status {
		l.notifyBandEntry(ctx, item, newQty, newStatus)
	}

	log.Debug("movement posted",
		zap.Int("new_quantity", newQty),
		zap.String("stock_status", string(newStatus)),
	)

	return movement, nil
}

func (l *ledger) notifyBandEntry(ctx context.Context, item *Item, qty int, status StockStatus) {
	switch status {
	case StockLow:
		l.dispatcher.Dispatch(ctx, notification.ForRole(
			actor.RoleWarehouse, notification.TypeLowStock,
			"Low stock: "+item.Name,
			fmt.Sprintf("%s is down to %d %s (threshold %d)", item.Name, qty, item.Unit, item.Threshold),
			item.ProductID,
		))
	case StockOut:
		l.dispatcher.Dispatch(ctx, notification.ForRole(
			actor.RoleWarehouse, notification.TypeOutOfStock,
			"Out of stock: "+item.Name,
			fmt.Sprintf("%s is out of stock", item.Name),
			item.ProductID,
		))
	}
}

func (l *ledger) CurrentQuantity(ctx context.Context, productID string) (int, error) {
	item, err := l.repo.GetItem(ctx, productID)
	if err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

func (l *ledger) History(ctx context.Context, productID string) ([]*Movement, error) {
	return l.repo.ListMovements(ctx, productID)
}

// Rebuild recomputes the cached quantity as a pure fold over the product's
// history, overwriting whatever the cache held. Used for recovery and
// audits; it dispatches no alerts.
func (l *ledger) Rebuild(ctx context.Context, productID string) (int, error) {
	lock := l.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	item, err := l.repo.GetItem(ctx, productID)
	if err != nil {
		return 0, err
	}

	history, err := l.repo.ListMovements(ctx, productID)
	if err != nil {
		return 0, err
	}

	qty := Replay(0, history)
	status := StatusFor(qty, item.Threshold)

	if err := l.repo.UpdateItemQuantity(ctx, productID, qty, status, time.Now()); err != nil {
		return 0, err
	}

	if qty != item.Quantity {
		logger.FromCtx(ctx).Warn("rebuild corrected cached quantity",
			zap.String("product_id", productID),
			zap.Int("cached", item.Quantity),
			zap.Int("replayed", qty),
		)
	}

	return qty, nil
}
