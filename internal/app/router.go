package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	billinghttp "github.com/condohub/condohub/internal/billing/http"
	"github.com/condohub/condohub/internal/observability"
	targetinghttp "github.com/condohub/condohub/internal/targeting/http"
	visibilityhttp "github.com/condohub/condohub/internal/visibility/http"
	"github.com/condohub/condohub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	TargetingHandler  *targetinghttp.Handler
	BillingHandler    *billinghttp.Handler
	VisibilityHandler *visibilityhttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with CondoHub defaults.
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
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/communities/{communityID}", func(r chi.Router) {
		params.TargetingHandler.MountRoutes(r)
		params.BillingHandler.MountRoutes(r)
		params.VisibilityHandler.MountRoutes(r)
	})

	return r
}
