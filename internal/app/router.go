package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/fibertrail/fibertrail/internal/auth"
	"github.com/fibertrail/fibertrail/internal/notify"
	"github.com/fibertrail/fibertrail/internal/observability"
	"github.com/fibertrail/fibertrail/internal/project"
	"github.com/fibertrail/fibertrail/internal/users"
	"github.com/fibertrail/fibertrail/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthService    *auth.Service
	AuthHandler    *auth.Handler
	ProjectHandler *project.Handler
	UsersHandler   *users.Handler
	NotifyHandler  *notify.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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

	r.Route("/api", func(r chi.Router) {
		// Credential endpoints get a tighter rate limit than the rest.
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.AuthHandler.MountRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.AuthService.RequireAuth)
			params.ProjectHandler.MountRoutes(r)
			params.UsersHandler.MountRoutes(r)
			params.NotifyHandler.MountRoutes(r)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
