package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/reqnotify/internal/adapter/api/handler"
	"github.com/V4T54L/reqnotify/internal/adapter/api/middleware"
	"github.com/V4T54L/reqnotify/internal/domain"
	"github.com/V4T54L/reqnotify/internal/domain/mocks"
	"github.com/V4T54L/reqnotify/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRouter(t *testing.T) {
	notifier, err := domain.PrepareNotifier(domain.NotifierConfig{URL: "http://hooks.local/notify"})
	require.NoError(t, err)
	scheduler := &mocks.MockScheduler{}

	router := NewRouter(handler.NewAppHandler(nil, discardLogger()), notifier, scheduler, discardLogger())

	req := httptest.NewRequest(http.MethodPut, "/orders/42", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-123", rr.Header().Get(middleware.RequestIDHeader))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "PUT", body["method"])
	assert.Equal(t, "/orders/42", body["path"])

	sent := scheduler.Notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "req-123", sent[0].RequestID)
	assert.Equal(t, "/orders/42", sent[0].RequestPath)
	assert.Equal(t, "http://hooks.local/notify", sent[0].URL)
}

func TestNewAdminRouter(t *testing.T) {
	repo := &mocks.MockStreamAdminRepository{
		Groups:  []domain.ConsumerGroupInfo{{Name: "outcome-archivers"}},
		Trimmed: 7,
	}
	keys := &mocks.MockAPIKeyRepository{Keys: map[string]bool{"admin-key": true}}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	h := handler.NewAdminHandler(usecase.NewAdminStreamUseCase(repo), handler.NotifierView{URL: "http://hooks.local"}, "webhook_outcomes", discardLogger())
	router := NewAdminRouter(h, nil, metrics, keys, discardLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		key            string
		expectedStatus int
		expectedBody   string
	}{
		{name: "Metrics are open", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK, expectedBody: "# metrics"},
		{name: "Health is open", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK, expectedBody: `"ok"`},
		{name: "Admin requires key", method: http.MethodGet, path: "/admin/notifier", expectedStatus: http.StatusUnauthorized},
		{name: "Notifier view", method: http.MethodGet, path: "/admin/notifier", key: "admin-key", expectedStatus: http.StatusOK, expectedBody: "hooks.local"},
		{name: "Group info", method: http.MethodGet, path: "/admin/streams/webhook_outcomes/groups", key: "admin-key", expectedStatus: http.StatusOK, expectedBody: "outcome-archivers"},
		{name: "Trim", method: http.MethodPost, path: "/admin/streams/webhook_outcomes/trim", body: `{"maxlen":10}`, key: "admin-key", expectedStatus: http.StatusOK, expectedBody: `"trimmed":7`},
		{name: "Trim with bad maxlen", method: http.MethodPost, path: "/admin/streams/webhook_outcomes/trim", body: `{"maxlen":0}`, key: "admin-key", expectedStatus: http.StatusBadRequest},
		{name: "Ack without ids", method: http.MethodPost, path: "/admin/streams/webhook_outcomes/groups/g/ack", body: `{}`, key: "admin-key", expectedStatus: http.StatusBadRequest},
		{name: "Wrong method", method: http.MethodGet, path: "/admin/streams/webhook_outcomes/trim", key: "admin-key", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.key != "" {
				req.Header.Set(middleware.APIKeyHeader, tt.key)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
		})
	}

	assert.Equal(t, "webhook_outcomes", repo.LastStream)
}
