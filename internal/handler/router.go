package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fitlab/coachbill/pkg/featuregate"
	"github.com/fitlab/coachbill/pkg/httpserver"
	"github.com/fitlab/coachbill/pkg/plan"
)

// RouterDeps carries everything the API router mounts.
type RouterDeps struct {
	Entitlements  *EntitlementsHandler
	Subscriptions *SubscriptionsHandler
	Preferences   *PreferencesHandler
	Webhooks      *WebhooksHandler
	Scores        *ScoresHandler
	ScoreGate     *featuregate.Gate

	Log *slog.Logger

	// ReadinessChecks back the /readyz probe (storage, cache).
	ReadinessChecks []func(context.Context) error
}

// NewRouter assembles the v1 API.
func NewRouter(deps RouterDeps) chi.Router {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, deps.ReadinessChecks...))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/subscribers/{id}/entitlements", deps.Entitlements.Get)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/change-plan", deps.Subscriptions.ChangePlan)
			r.Post("/cancel", deps.Subscriptions.Cancel)
			r.Post("/reactivate", deps.Subscriptions.Reactivate)
		})

		r.Route("/students/{id}", func(r chi.Router) {
			r.Get("/preference", deps.Preferences.Get)
			r.Put("/preference", deps.Preferences.Update)

			r.Route("/scores", func(r chi.Router) {
				r.Use(featuregate.Middleware(deps.ScoreGate, plan.FeatureScoreLoading,
					"Score loading", featuregate.URLParamExtractor("id")))
				r.Post("/", deps.Scores.Create)
				r.Get("/", deps.Scores.List)
			})
		})

		r.Post("/webhooks/payment", deps.Webhooks.Payment)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
