package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medstock/medstock/internal/auth"
	"github.com/medstock/medstock/internal/platform/httpx"
)

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor resolved by Middleware.ResolveActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// ResolveActor loads the profile of the bearer identity and stores the actor in context.
// Inactive actors are still stored; downstream checks reject them.
func (m Middleware) ResolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
			return
		}
		actor, err := m.Service.Actor(r.Context(), identity.Subject)
		switch {
		case err == nil, errors.Is(err, ErrInactive):
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "no profile for caller")
			return
		default:
			if m.Logger != nil {
				m.Logger.Error("rbac resolve actor", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole ensures the current actor is active and holds one of the given roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || !actor.Active {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "inactive or unknown caller")
				return
			}
			if len(roles) > 0 && !hasAnyRole(actor.Role, roles) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyRole(role Role, allowed []Role) bool {
	if !role.IsValid() {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
