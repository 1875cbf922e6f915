package rbac

import (
	"log/slog"
	"net/http"

	"github.com/sekolah-suite/sekolah/internal/platform/httpx"
	"github.com/sekolah-suite/sekolah/internal/shared"
)

// Guard wires authorization checks for HTTP handlers.
type Guard struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// Require returns middleware denying requests whose principal is not
// allowed to perform action on resource. Ownership-scoped checks cannot
// happen here because the target entity is not known yet; handlers that
// need "-own" semantics call Allowed with the owner id after loading the
// entity.
func (g Guard) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			decision := g.Evaluator.Authorize(p, resource, action, "")
			if !decision.Allowed {
				if g.Logger != nil {
					g.Logger.Warn("authorization denied",
						slog.String("user_id", p.UserID),
						slog.String("role", p.Role),
						slog.String("resource", string(resource)),
						slog.String("action", string(action)),
						slog.String("reason", decision.Reason))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", decision.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allowed is the handler-side check for requests with a known target owner.
func (g Guard) Allowed(p shared.Principal, resource Resource, action Action, ownerID string) Decision {
	return g.Evaluator.Authorize(p, resource, action, ownerID)
}
