package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bonstock-be/internal/actor"
	"bonstock-be/internal/logger"
	"bonstock-be/internal/validation"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransitionHook runs after a transition has been durably recorded. Hooks
// execute in registration order; the first failing hook aborts the rest
// and surfaces its error, but the transition itself is never rolled back.
type TransitionHook interface {
	OrderTransitioned(ctx context.Context, o *Order, from Status) error
}

type Service interface {
	Submit(ctx context.Context, input SubmitInput, by actor.Actor) (*Order, error)
	Approve(ctx context.Context, orderID string, by actor.Actor, note string, reviews []LineReview) (*Order, error)
	Reject(ctx context.Context, orderID string, by actor.Actor, note string) (*Order, error)
	Advance(ctx context.Context, orderID string, target Status, by actor.Actor) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context, filter Filter, limit, page int32) ([]*Order, error)
	RegisterHook(h TransitionHook)
}

type service struct {
	repo     Repository
	validate *validatorv10.Validate
	hooks    []TransitionHook
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validation.New(),
	}
}

// RegisterHook appends a post-transition hook. Called during wiring, before
// the service handles traffic; not safe for concurrent registration.
func (s *service) RegisterHook(h TransitionHook) {
	s.hooks = append(s.hooks, h)
}

func (s *service) Submit(ctx context.Context, input SubmitInput, by actor.Actor) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Submit"),
		zap.Int("item_count", len(input.Items)),
	)

	if err := s.validate.Struct(input); err != nil {
		fields := validation.Fields(err)
		log.Warn("submit rejected", zap.Strings("fields", fields))
		return nil, fmt.Errorf("submit: %s: %w", strings.Join(fields, "; "), ErrValidation)
	}
	if !by.Role.Valid() {
		return nil, fmt.Errorf("submit: unknown role %q: %w", by.Role, ErrValidation)
	}

	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	items := make([]LineItem, 0, len(input.Items))
	total := decimal.Zero
	for _, in := range input.Items {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("submit: line %s: negative price: %w", in.ProductID, ErrValidation)
		}
		lineTotal := in.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		items = append(items, LineItem{
			ProductID: in.ProductID,
			Name:      in.Name,
			Category:  in.Category,
			Unit:      in.Unit,
			Quantity:  in.Quantity,
			Price:     in.Price,
			Total:     lineTotal,
		})
		total = total.Add(lineTotal)
	}

	o := &Order{
		ID:            uuid.NewString(),
		Title:         input.Title,
		Department:    input.Department,
		CreatedBy:     by.ID,
		CreatedByRole: by.Role,
		CreatedAt:     time.Now(),
		Priority:      priority,
		Status:        StatusPending,
		Items:         items,
		Total:         total,
	}

	if err := s.repo.Insert(ctx, o); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return nil, err
	}

	log.Info("order submitted",
		zap.String("order_id", o.ID),
		zap.String("priority", string(o.Priority)),
	)

	// No notification here: the requester already knows.
	return o, nil
}

func (s *service) Approve(ctx context.Context, orderID string, by actor.Actor, note string, reviews []LineReview) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Approve"),
		zap.String("order_id", orderID),
	)

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(o, StatusApproved, by); err != nil {
		return nil, err
	}

	reviewed, total, err := applyReview(o.ID, o.Items, reviews)
	if err != nil {
		log.Warn("review failed", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusApproved
	o.Items = reviewed
	o.Total = total
	o.ApprovedBy = &by.ID
	o.ApprovedAt = &now
	if note = strings.TrimSpace(note); note != "" {
		o.DecisionNote = &note
	}

	ok, err := s.repo.RecordApproval(ctx, o)
	if err != nil {
		log.Error("failed to record approval", zap.Error(err))
		return nil, err
	}
	if !ok {
		// Another reviewer got there first; their decision stands.
		return nil, fmt.Errorf("order %s: %w", o.ID, ErrAlreadyDecided)
	}

	log.Info("order approved",
		zap.String("approved_by", by.ID),
		zap.String("total", total.String()),
	)

	if err := s.runHooks(ctx, o, from); err != nil {
		return o, err
	}
	return o, nil
}

func (s *service) Reject(ctx context.Context, orderID string, by actor.Actor, note string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Reject"),
		zap.String("order_id", orderID),
	)

	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("order %s: rejection requires a note: %w", orderID, ErrValidation)
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(o, StatusRejected, by); err != nil {
		return nil, err
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusRejected
	o.RejectedBy = &by.ID
	o.RejectedAt = &now
	o.DecisionNote = &note
	// Items stay untouched for audit.

	ok, err := s.repo.RecordRejection(ctx, o)
	if err != nil {
		log.Error("failed to record rejection", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order %s: %w", o.ID, ErrAlreadyDecided)
	}

	log.Info("order rejected", zap.String("rejected_by", by.ID))

	if err := s.runHooks(ctx, o, from); err != nil {
		return o, err
	}
	return o, nil
}

func (s *service) Advance(ctx context.Context, orderID string, target Status, by actor.Actor) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Advance"),
		zap.String("order_id", orderID),
		zap.String("target", string(target)),
	)

	if target == StatusApproved || target == StatusRejected {
		return nil, fmt.Errorf("order %s: decisions go through Approve/Reject: %w", orderID, ErrInvalidTransition)
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(o, target, by); err != nil {
		return nil, err
	}

	from := o.Status
	ok, err := s.repo.UpdateStatus(ctx, o.ID, from, target)
	if err != nil {
		log.Error("failed to update status", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order %s: status changed concurrently: %w", o.ID, ErrInvalidTransition)
	}
	o.Status = target

	log.Info("order advanced", zap.String("from", string(from)))

	if err := s.runHooks(ctx, o, from); err != nil {
		return o, err
	}
	return o, nil
}

func (s *service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *service) List(ctx context.Context, filter Filter, limit, page int32) ([]*Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}

	return s.repo.List(ctx, filter, limit, (page-1)*limit)
}

func (s *service) runHooks(ctx context.Context, o *Order, from Status) error {
	for _, h := range s.hooks {
		if err := h.OrderTransitioned(ctx, o, from); err != nil {
			logger.FromCtx(ctx).Error("post-transition hook failed",
				zap.String("order_id", o.ID),
				zap.String("from", string(from)),
				zap.String("to", string(o.Status)),
				zap.Error(err),
			)
			return fmt.Errorf("order %s: post-transition: %w", o.ID, err)
		}
	}
	return nil
}
