package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/reqnotify/internal/adapter/api/middleware"
	"github.com/V4T54L/reqnotify/internal/domain"
)

// NewRouter builds the public HTTP pipeline: every request gets an ID, is logged,
// schedules one webhook notification and is then served by app.
func NewRouter(app http.Handler, notifier *domain.PreparedNotifier, scheduler domain.NotificationScheduler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Notify(notifier, scheduler, logger))

	r.Handle("/*", app)
	return r
}
