package middleware

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// Notify is a middleware factory that schedules one webhook notification per request.
// The notification is scheduled before the inner handler runs, so it fires whether the
// handler succeeds, fails or panics. The ResponseWriter is passed through untouched.
func Notify(notifier *domain.PreparedNotifier, scheduler domain.NotificationScheduler, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "notify_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheduleNotification(notifier, scheduler, logger, r)
			next.ServeHTTP(w, r)
		})
	}
}

func scheduleNotification(notifier *domain.PreparedNotifier, scheduler domain.NotificationScheduler, logger *slog.Logger, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("failed to schedule webhook notification", "panic", rec, "path", r.URL.Path)
		}
	}()
	scheduler.Schedule(notifier.NewNotification(r, RequestIDFromContext(r.Context())))
}
