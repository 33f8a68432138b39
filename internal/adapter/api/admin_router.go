package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/reqnotify/internal/adapter/api/handler"
	"github.com/V4T54L/reqnotify/internal/adapter/api/middleware"
	"github.com/V4T54L/reqnotify/internal/domain"
)

// NewAdminRouter creates the router for the admin and metrics server.
// /metrics and /health are open; everything under /admin requires an API key
// when keys is non-nil.
func NewAdminRouter(h *handler.AdminHandler, broker http.Handler, metrics http.Handler, keys domain.APIKeyRepository, logger *slog.Logger) http.Handler {
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Handle("/metrics", metrics)
	r.Get("/health", h.HealthCheck)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(keys, logger))

		r.Get("/notifier", h.GetNotifier)
		r.Get("/outcomes/recent", h.RecentOutcomes)
		if broker != nil {
			r.Handle("/outcomes/live", broker)
		}

		r.Route("/streams/{streamName}", func(r chi.Router) {
			r.Get("/groups", h.GetGroupInfo)
			r.Post("/trim", h.TrimStream)

			r.Route("/groups/{groupName}", func(r chi.Router) {
				r.Get("/consumers", h.GetConsumerInfo)
				r.Get("/pending", h.GetPendingSummary)
				r.Get("/pending/messages", h.GetPendingMessages)
				r.Post("/claim", h.ClaimMessages)
				r.Post("/ack", h.AcknowledgeMessages)
			})
		})
	})

	return r
}
