package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sekolah-suite/sekolah/internal/auth"
	"github.com/sekolah-suite/sekolah/internal/observability"
	"github.com/sekolah-suite/sekolah/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthService  *auth.Service
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router. Business resource routers (students,
// grades, finance, ...) are mounted by their own services against the same
// token middleware and evaluator; this process serves the auth core and the
// user store.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/users", func(r chi.Router) {
		r.Use(auth.RequireAccessToken(params.AuthService, params.Metrics))
		params.UsersHandler.MountRoutes(r)
	})

	return r
}
