package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medstock/medstock/internal/auth"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/orders/privileged"
	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Tokens            *auth.TokenIssuer
	AuthHandler       *auth.Handler
	OrdersHandler     *orders.Handler
	PrivilegedHandler *privileged.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.OrdersHandler != nil {
		r.Route("/api/orders", func(r chi.Router) {
			r.Use(auth.RequireBearer(params.Tokens, params.Logger))
			params.OrdersHandler.MountRoutes(r)
		})
	}
	if params.PrivilegedHandler != nil {
		r.Route("/functions/v1", params.PrivilegedHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
	return r
}
