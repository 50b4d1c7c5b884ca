package auth

import (
	"log/slog"
	"net/http"

	"github.com/medstock/medstock/internal/platform/httpx"
)

// RequireBearer rejects requests without a valid bearer token and stores the identity in context.
func RequireBearer(issuer *TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			identity, err := issuer.Verify(raw)
			if err != nil {
				if logger != nil {
					logger.Debug("bearer rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}
