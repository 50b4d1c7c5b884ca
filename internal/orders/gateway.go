package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultMutationTimeout = 10 * time.Second

// Path identifies which write path applied a mutation.
type Path string

const (
	PathDirect   Path = "direct"
	PathFallback Path = "fallback"
)

// DirectWriter applies a patch using the caller's own store credentials.
type DirectWriter interface {
	ApplyStatus(ctx context.Context, caller Caller, id uuid.UUID, patch Patch) (Order, error)
}

// PrivilegedInvoker calls the server-side function that re-checks the caller
// and applies the transition with elevated credentials.
type PrivilegedInvoker interface {
	UpdateStatus(ctx context.Context, credential string, id uuid.UUID, target Status) (Order, error)
}

// MutationObserver records which path a mutation took and how it ended.
type MutationObserver interface {
	ObserveMutation(path, outcome string)
}

// Gateway applies approved decisions, falling back to the privileged
// function only when the store denies the direct write.
type Gateway struct {
	direct     DirectWriter
	privileged PrivilegedInvoker
	timeout    time.Duration
	logger     *slog.Logger
	observer   MutationObserver
}

// GatewayConfig collects Gateway dependencies.
type GatewayConfig struct {
	Direct     DirectWriter
	Privileged PrivilegedInvoker
	Timeout    time.Duration
	Logger     *slog.Logger
	Observer   MutationObserver
}

// NewGateway constructs a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMutationTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		direct:     cfg.Direct,
		privileged: cfg.Privileged,
		timeout:    timeout,
		logger:     logger,
		observer:   cfg.Observer,
	}
}

// Apply writes decision to order id and reports the path that succeeded.
func (g *Gateway) Apply(ctx context.Context, caller Caller, id uuid.UUID, decision Decision) (Order, Path, error) {
	if !decision.Allowed {
		return Order{}, "", fmt.Errorf("%w: %s -> %s not allowed", ErrIllegalTransition, decision.From, decision.To)
	}
	logger := g.logger.With(
		slog.String("order_id", id.String()),
		slog.String("from", string(decision.From)),
		slog.String("to", string(decision.To)),
	)

	order, err := g.callDirect(ctx, caller, id, decision.Patch)
	if err == nil {
		g.observe(PathDirect, "success")
		logger.Info("order status updated", slog.String("path", string(PathDirect)))
		return order, PathDirect, nil
	}
	if !errors.Is(err, ErrPermissionDenied) {
		g.observe(PathDirect, outcomeOf(err))
		return Order{}, PathDirect, err
	}

	logger.Warn("direct write denied, invoking privileged function", slog.Any("error", err))
	if g.privileged == nil {
		g.observe(PathFallback, "error")
		return Order{}, PathFallback, &FallbackError{OrderID: id, Err: err}
	}
	order, err = g.callPrivileged(ctx, caller.Credential, id, decision.To)
	if err != nil {
		g.observe(PathFallback, outcomeOf(err))
		logger.Warn("privileged function failed", slog.Any("error", err))
		return Order{}, PathFallback, &FallbackError{OrderID: id, Err: err}
	}
	g.observe(PathFallback, "success")
	logger.Info("order status updated", slog.String("path", string(PathFallback)))
	return order, PathFallback, nil
}

func (g *Gateway) callDirect(ctx context.Context, caller Caller, id uuid.UUID, patch Patch) (Order, error) {
	if g.direct == nil {
		return Order{}, errors.New("orders: direct writer not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	order, err := g.direct.ApplyStatus(callCtx, caller, id, patch)
	return order, classifyTimeout(callCtx, err)
}

func (g *Gateway) callPrivileged(ctx context.Context, credential string, id uuid.UUID, target Status) (Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	order, err := g.privileged.UpdateStatus(callCtx, credential, id, target)
	return order, classifyTimeout(callCtx, err)
}

func (g *Gateway) observe(path Path, outcome string) {
	if g.observer != nil {
		g.observer.ObserveMutation(string(path), outcome)
	}
}

// classifyTimeout turns deadline failures into ErrTransient so they never
// reach the permission-denied branch.
func classifyTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal"
	default:
		return "error"
	}
}
