package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/auth"
	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/rbac"
	"github.com/medstock/medstock/internal/shared"
)

// ErrorMappings binds order errors to problem responses.
var ErrorMappings = []httpx.Mapping{
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Target: ErrIllegalTransition, Status: http.StatusConflict, Title: "Illegal Transition"},
	{Target: ErrNotPending, Status: http.StatusConflict, Title: "Not Pending"},
	{Target: ErrDuplicate, Status: http.StatusConflict, Title: "Duplicate"},
	{Target: ErrTransient, Status: http.StatusServiceUnavailable, Title: "Service Unavailable"},
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Target: ErrForbidden, Status: http.StatusForbidden, Title: "Forbidden"},
	{Target: ErrPermissionDenied, Status: http.StatusForbidden, Title: "Forbidden"},
	{Target: ErrFallbackFailed, Status: http.StatusBadGateway, Title: "Fallback Failed"},
}

// ApprovalHistory lists the approval trail of an order.
type ApprovalHistory interface {
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// Handler manages order request HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	history ApprovalHistory
}

// NewHandler creates a new handler. history may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, history ApprovalHistory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, history: history}
}

// MountRoutes registers routes on the router. Requests must already carry a
// bearer identity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.ResolveActor)
	r.Use(h.rbac.RequireRole(rbac.Roles()...))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Get("/{id}/history", h.showHistory)
	r.Post("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab, err := ParseTab(q.Get("tab"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	filter := Filter{
		Tab:     tab,
		Search:  q.Get("q"),
		SortBy:  SortBy(strings.ToLower(q.Get("sort"))),
		SortDir: SortDir(strings.ToLower(q.Get("dir"))),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			h.respondError(w, err)
			return
		}
		filter.Status = status
	}
	view, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := ListResponse{
		Tab:           tab,
		Orders:        make([]OrderResponse, len(view.Orders)),
		Counts:        view.Counts,
		StatusOptions: view.StatusOptions,
	}
	for i, o := range view.Orders {
		resp.Orders[i] = NewOrderResponse(o)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := NewOrderResponse(order)
	caller := callerFromRequest(r)
	resp.AvailableActions = h.service.AvailableActions(order, caller.Actor)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) showHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		httpx.JSON(w, http.StatusOK, []HistoryEntry{})
		return
	}
	if _, err := h.service.GetOrder(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	logs, err := h.history.List(r.Context(), approvalModule, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newHistory(logs))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	draft, err := req.ToDraft(r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), callerFromRequest(r), draft)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewOrderResponse(order))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	target, err := ParseStatus(req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.service.UpdateStatus(r.Context(), callerFromRequest(r), id, target)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewOrderResponse(order))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), callerFromRequest(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status, _ := httpx.StatusFor(err, ErrorMappings...)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("orders request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err, ErrorMappings...)
}

func callerFromRequest(r *http.Request) Caller {
	actor, _ := rbac.ActorFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())
	return Caller{Actor: actor, Credential: identity.Token}
}
