// Package privileged implements the server-side status function that applies
// transitions with elevated store credentials, and the client that calls it.
package privileged

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/auth"
	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/rbac"
)

// Route is the path the function is mounted at, relative to /functions/v1.
const Route = "/update-order-status"

// TokenVerifier validates bearer credentials.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// ActorResolver reloads the caller's profile.
type ActorResolver interface {
	Actor(ctx context.Context, userID uuid.UUID) (rbac.Actor, error)
}

// OrderLoader reads the current order.
type OrderLoader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (orders.Order, error)
}

// ElevatedWriter applies a patch with the function's own store privileges.
type ElevatedWriter interface {
	ApplyStatusElevated(ctx context.Context, id uuid.UUID, patch orders.Patch) (orders.Order, error)
}

// Handler serves the privileged status function. It trusts nothing from the
// request beyond the bearer subject: role and active flag are reloaded.
type Handler struct {
	tokens TokenVerifier
	actors ActorResolver
	orders OrderLoader
	writer ElevatedWriter
	policy *orders.Policy
	logger *slog.Logger
}

// Config collects Handler dependencies.
type Config struct {
	Tokens TokenVerifier
	Actors ActorResolver
	Orders OrderLoader
	Writer ElevatedWriter
	Policy *orders.Policy
	Logger *slog.Logger
}

// NewHandler constructs the function handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = orders.NewPolicy()
	}
	return &Handler{
		tokens: cfg.Tokens,
		actors: cfg.Actors,
		orders: cfg.Orders,
		writer: cfg.Writer,
		policy: policy,
		logger: logger,
	}
}

// MountRoutes registers the function route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post(Route, h.updateOrderStatus)
}

// UpdateRequest is the function's request body.
type UpdateRequest struct {
	OrderID      string `json:"orderId"`
	TargetStatus string `json:"targetStatus"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	identity, err := h.tokens.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid bearer token")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.OrderID == "" || req.TargetStatus == "" {
		writeError(w, http.StatusBadRequest, "orderId and targetStatus are required")
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return
	}
	target, err := orders.ParseStatus(req.TargetStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid targetStatus")
		return
	}

	actor, err := h.actors.Actor(r.Context(), identity.Subject)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrInactive):
			writeError(w, http.StatusForbidden, "account inactive")
		case errors.Is(err, rbac.ErrNotFound):
			writeError(w, http.StatusForbidden, "profile not found")
		default:
			h.logger.Error("privileged: load profile", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to load profile")
		}
		return
	}

	current, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, id, err)
		return
	}
	decision, err := h.policy.Transition(current.Status, target, actor, current.CreatedBy)
	if err != nil {
		h.fail(w, id, err)
		return
	}
	updated, err := h.writer.ApplyStatusElevated(r.Context(), id, decision.Patch)
	if err != nil {
		h.fail(w, id, err)
		return
	}
	h.logger.Info("privileged status update",
		slog.String("order_id", id.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.String("from", string(decision.From)),
		slog.String("to", string(decision.To)),
	)
	httpx.JSON(w, http.StatusOK, orders.NewOrderResponse(updated))
}

func (h *Handler) fail(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, orders.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		h.logger.Error("privileged: update status", slog.String("order_id", id.String()), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "update failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	httpx.JSON(w, status, errorResponse{Error: msg})
}
