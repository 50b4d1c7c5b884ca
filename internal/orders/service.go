package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/rbac"
	"github.com/medstock/medstock/internal/shared"
)

const (
	approvalModule    = "orders"
	idempotencyModule = "orders.create"
)

// IdempotencyGuard reserves submission keys.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ApprovalSink stores the approval trail of an order.
type ApprovalSink interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// StatusChange describes a completed transition.
type StatusChange struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	From    Status
	To      Status
	Path    Path
	At      time.Time
}

// Notifier is told about completed transitions.
type Notifier interface {
	StatusChanged(ctx context.Context, change StatusChange) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, change StatusChange) error

// StatusChanged calls f.
func (f NotifierFunc) StatusChanged(ctx context.Context, change StatusChange) error {
	return f(ctx, change)
}

// View is a classified page of the snapshot.
type View struct {
	Orders        []Order  `json:"orders"`
	Counts        Counts   `json:"counts"`
	StatusOptions []Status `json:"status_options"`
}

// Service orchestrates the order workflow.
type Service struct {
	repo        *Repository
	policy      *Policy
	gateway     *Gateway
	validate    *validator.Validate
	logger      *slog.Logger
	idempotency IdempotencyGuard
	approvals   ApprovalSink
	notifier    Notifier
	now         func() time.Time
}

// ServiceConfig collects Service dependencies. Idempotency, Approvals and
// Notifier are optional.
type ServiceConfig struct {
	Repository  *Repository
	Policy      *Policy
	Gateway     *Gateway
	Logger      *slog.Logger
	Idempotency IdempotencyGuard
	Approvals   ApprovalSink
	Notifier    Notifier
	Now         func() time.Time
}

// NewService constructs the workflow service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewPolicy(WithClock(now))
	}
	return &Service{
		repo:        cfg.Repository,
		policy:      policy,
		gateway:     cfg.Gateway,
		validate:    validator.New(),
		logger:      logger,
		idempotency: cfg.Idempotency,
		approvals:   cfg.Approvals,
		notifier:    cfg.Notifier,
		now:         now,
	}
}

// Policy exposes the transition policy.
func (s *Service) Policy() *Policy {
	return s.policy
}

// ListOrders classifies the current snapshot. Counts cover the whole snapshot.
func (s *Service) ListOrders(ctx context.Context, filter Filter) (View, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return View{}, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if filter.Tab == "" {
		filter.Tab = TabActive
	}
	if filter.Status != "" && TabOf(filter.Status) != filter.Tab {
		return View{}, fmt.Errorf("%w: status %s is not part of tab %s", ErrValidation, filter.Status, filter.Tab)
	}
	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return View{}, err
	}
	return View{
		Orders:        Classify(snapshot, filter),
		Counts:        Count(snapshot),
		StatusOptions: StatusOptions(filter.Tab),
	}, nil
}

// GetOrder loads a single order.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	if id == uuid.Nil {
		return Order{}, fmt.Errorf("%w: order id required", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// CreateOrder stores a new pending order owned by caller.
func (s *Service) CreateOrder(ctx context.Context, caller Caller, draft Draft) (Order, error) {
	if err := s.validateDraft(draft); err != nil {
		return Order{}, err
	}
	if !caller.Actor.Active || caller.Actor.IsZero() {
		return Order{}, fmt.Errorf("%w: inactive actor", ErrForbidden)
	}

	key := strings.TrimSpace(draft.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Order{}, fmt.Errorf("%w: key %s", ErrDuplicate, key)
			}
			return Order{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
	}

	order := s.buildOrder(caller.Actor, draft)
	created, err := s.repo.Insert(ctx, caller, order)
	if err != nil {
		if key != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Order{}, err
	}
	s.invalidate(ctx)
	s.recordApproval(ctx, created.ID, caller.Actor.ID, shared.ApprovalSubmit, "")
	return created, nil
}

// UpdateStatus moves order id to target on behalf of caller.
func (s *Service) UpdateStatus(ctx context.Context, caller Caller, id uuid.UUID, target Status) (Order, error) {
	if id == uuid.Nil {
		return Order{}, fmt.Errorf("%w: order id required", ErrValidation)
	}
	if !target.IsValid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	decision, err := s.policy.Transition(current.Status, target, caller.Actor, current.CreatedBy)
	if err != nil {
		return Order{}, err
	}
	updated, path, err := s.gateway.Apply(ctx, caller, id, decision)
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)

	s.recordApproval(ctx, id, caller.Actor.ID, approvalActionFor(target), string(path))
	if s.notifier != nil {
		change := StatusChange{OrderID: id, ActorID: caller.Actor.ID, From: decision.From, To: decision.To, Path: path, At: s.now().UTC()}
		if err := s.notifier.StatusChanged(ctx, change); err != nil {
			s.logger.Warn("notify status change", slog.String("order_id", id.String()), slog.Any("error", err))
		}
	}
	return updated, nil
}

// DeleteOrder removes a pending order. Non-pending orders are rejected
// without touching the store.
func (s *Service) DeleteOrder(ctx context.Context, caller Caller, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: order id required", ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanDelete() {
		return fmt.Errorf("%w: order %s is %s", ErrNotPending, id, current.Status)
	}
	if !canDelete(caller.Actor, current.CreatedBy) {
		return fmt.Errorf("%w: cannot delete order %s", ErrForbidden, id)
	}
	if err := s.repo.DeletePending(ctx, caller, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.repo.Invalidate(ctx)
}

// AvailableActions lists the statuses actor may request for order.
func (s *Service) AvailableActions(order Order, actor rbac.Actor) []Status {
	return s.policy.Allowed(order.Status, actor, order.CreatedBy)
}

func (s *Service) validateDraft(draft Draft) error {
	if err := s.validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrValidation, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (s *Service) buildOrder(actor rbac.Actor, draft Draft) Order {
	now := s.now().UTC()
	requestDate := now
	if draft.RequestDate != nil {
		requestDate = draft.RequestDate.UTC()
	}
	order := Order{
		ID:            uuid.New(),
		RequesterName: strings.TrimSpace(draft.RequesterName),
		Subdistrict:   strings.TrimSpace(draft.Subdistrict),
		RequestDate:   truncateDate(requestDate),
		Observations:  cloneString(draft.Observations),
		Status:        StatusPending,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.Items = make([]Item, len(draft.Items))
	for i, d := range draft.Items {
		order.Items[i] = Item{
			ID:            uuid.New(),
			OrderID:       order.ID,
			ProductID:     d.ProductID,
			ProductName:   strings.TrimSpace(d.ProductName),
			Quantity:      d.Quantity,
			UnitOfMeasure: strings.TrimSpace(d.UnitOfMeasure),
		}
	}
	return order
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.repo.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate order snapshot", slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, id, actorID uuid.UUID, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	entry := shared.ApprovalLog{Module: approvalModule, RefID: id, ActorID: actorID, Action: action, Note: note, At: s.now().UTC()}
	if err := s.approvals.Record(ctx, entry); err != nil {
		s.logger.Warn("record approval", slog.String("order_id", id.String()), slog.Any("error", err))
	}
}

func approvalActionFor(target Status) shared.ApprovalAction {
	switch target {
	case StatusApproved:
		return shared.ApprovalApprove
	case StatusDelivered:
		return shared.ApprovalDeliver
	case StatusReceived:
		return shared.ApprovalReceive
	case StatusCancelled:
		return shared.ApprovalCancel
	case StatusPending:
		return shared.ApprovalSubmit
	default:
		return shared.ApprovalSubmit
	}
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
