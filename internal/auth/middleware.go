package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sekolah-suite/sekolah/internal/observability"
	"github.com/sekolah-suite/sekolah/internal/platform/httpx"
	"github.com/sekolah-suite/sekolah/internal/shared"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// RequireAccessToken verifies the bearer token and injects the principal
// into the request context. Every verification outcome is counted. It
// performs no RBAC checks; those belong to internal/rbac.
func RequireAccessToken(service *Service, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(authorizationHeader))
			if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			token := strings.TrimPrefix(raw, bearerPrefix)

			principal, err := service.VerifyAccess(r.Context(), token)
			metrics.RecordTokenVerification(verificationResult(err))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}

			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, shared.ErrTokenExpired):
		return "expired"
	case errors.Is(err, shared.ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}

// BearerToken extracts the raw bearer token from a request, for handlers
// that operate on the presented token itself (logout).
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(authorizationHeader))
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(raw, bearerPrefix)
}
