package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/V4T54L/reqnotify/internal/adapter/api/middleware"
)

// NewAppHandler returns the application wrapped by the notifier: a reverse proxy to
// upstream when one is configured, otherwise a built-in echo service.
func NewAppHandler(upstream *url.URL, logger *slog.Logger) http.Handler {
	if upstream == nil {
		return http.HandlerFunc(echo)
	}

	logger = logger.With("component", "upstream_proxy", "upstream", upstream.Redacted())
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing to answer.
			return
		}
		logger.Error("upstream request failed", "error", err, "path", r.URL.Path)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	return proxy
}

type echoResponse struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

func echo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(echoResponse{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}
