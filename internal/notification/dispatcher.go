package notification

import (
	"context"
	"time"

	"bonstock-be/internal/logger"
	"bonstock-be/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher persists workflow notifications. Dispatch is fire-and-forget:
// a failed write must never fail the transition that triggered it, so
// errors are logged and counted but not returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification)
}

type dispatcher struct {
	repo    Repository
	dropped *metrics.Counter
	sent    *metrics.Counter
}

func NewDispatcher(repo Repository) Dispatcher {
	return &dispatcher{
		repo:    repo,
		dropped: metrics.NewCounter("notifications_dropped"),
		sent:    metrics.NewCounter("notifications_sent"),
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, n *Notification) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "dispatcher"),
		zap.String("type", string(n.Type)),
		zap.String("reference", n.Reference),
	)

	if n.RecipientRole == nil && n.RecipientID == nil {
		d.dropped.Inc()
		log.Warn("notification dropped", zap.Error(ErrNoRecipient))
		return
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := d.repo.Insert(ctx, n); err != nil {
		d.dropped.Inc()
		log.Warn("failed to persist notification", zap.Error(err))
		return
	}

	d.sent.Inc()
	log.Debug("notification dispatched")
}
