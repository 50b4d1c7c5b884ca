package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/rbac"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusDelivered},
	StatusDelivered: {StatusReceived},
}

// Decision is the outcome of evaluating a requested transition.
type Decision struct {
	Allowed bool
	From    Status
	To      Status
	Reason  string
	Patch   Patch
}

// Policy evaluates status transitions. It never writes state.
type Policy struct {
	now func() time.Time
}

// PolicyOption customises Policy instances.
type PolicyOption func(*Policy)

// WithClock injects a custom time source (useful for tests).
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPolicy constructs a Policy.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Transition decides whether actor may move an order owned by ownerID from
// current to requested. Re-requesting the current status is illegal.
func (p *Policy) Transition(current, requested Status, actor rbac.Actor, ownerID uuid.UUID) (Decision, error) {
	decision := Decision{From: current, To: requested}
	if !current.IsValid() || !requested.IsValid() {
		decision.Reason = "unknown status"
		return decision, fmt.Errorf("%w: %s -> %s", ErrValidation, current, requested)
	}
	if !canTransition(current, requested) {
		decision.Reason = "transition not permitted"
		return decision, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, requested)
	}
	if !actor.Active || actor.IsZero() {
		decision.Reason = "actor inactive"
		return decision, fmt.Errorf("%w: inactive actor", ErrForbidden)
	}
	if !rolePermits(current, requested, actor, ownerID) {
		decision.Reason = "role not permitted"
		return decision, fmt.Errorf("%w: role %q cannot move %s -> %s", ErrForbidden, actor.Role, current, requested)
	}
	decision.Allowed = true
	decision.Patch = p.sideEffects(requested, actor)
	return decision, nil
}

// Allowed lists the statuses actor may request for an order in current.
func (p *Policy) Allowed(current Status, actor rbac.Actor, ownerID uuid.UUID) []Status {
	var out []Status
	for _, next := range allowedTransitions[current] {
		if _, err := p.Transition(current, next, actor, ownerID); err == nil {
			out = append(out, next)
		}
	}
	return out
}

func (p *Policy) sideEffects(to Status, actor rbac.Actor) Patch {
	now := p.now().UTC()
	patch := Patch{Status: to}
	switch to {
	case StatusApproved:
		patch.ApprovedBy = &actor.ID
		patch.ApprovedAt = &now
	case StatusDelivered:
		patch.DeliveredAt = &now
	case StatusReceived:
		patch.ReceivedBy = &actor.ID
		patch.ReceivedAt = &now
	case StatusPending, StatusCancelled:
	}
	return patch
}

func canTransition(from, to Status) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func rolePermits(from, to Status, actor rbac.Actor, ownerID uuid.UUID) bool {
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWarehouseManager:
		return true
	case rbac.RoleSupervisor:
		return from == StatusDelivered && to == StatusReceived && actor.ID == ownerID
	case rbac.RoleRequester:
		return false
	default:
		return false
	}
}

// canDelete reports whether actor may delete an order owned by ownerID.
func canDelete(actor rbac.Actor, ownerID uuid.UUID) bool {
	if !actor.Active {
		return false
	}
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWarehouseManager:
		return true
	case rbac.RoleSupervisor, rbac.RoleRequester:
		return actor.ID == ownerID
	default:
		return false
	}
}
