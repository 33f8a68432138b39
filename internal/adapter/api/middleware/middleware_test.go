package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/V4T54L/reqnotify/internal/domain/mocks"
)

func TestAdminAuth(t *testing.T) {
	repo := &mocks.MockAPIKeyRepository{Keys: map[string]bool{"secret": true}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name           string
		repo           *mocks.MockAPIKeyRepository
		header         string
		value          string
		expectedStatus int
	}{
		{name: "Valid X-API-Key", repo: repo, header: APIKeyHeader, value: "secret", expectedStatus: http.StatusOK},
		{name: "Valid bearer token", repo: repo, header: "Authorization", value: "Bearer secret", expectedStatus: http.StatusOK},
		{name: "Missing key", repo: repo, expectedStatus: http.StatusUnauthorized},
		{name: "Wrong key", repo: repo, header: APIKeyHeader, value: "nope", expectedStatus: http.StatusUnauthorized},
		{name: "Repository error", repo: &mocks.MockAPIKeyRepository{Err: errors.New("db down")}, header: APIKeyHeader, value: "secret", expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AdminAuth(tt.repo, discardLogger())(ok)
			req := httptest.NewRequest(http.MethodGet, "/admin/notifier", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}

	t.Run("Nil repository disables auth", func(t *testing.T) {
		rr := httptest.NewRecorder()
		AdminAuth(nil, discardLogger())(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("Keeps valid client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client_id-1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, "client_id-1", seen)
		assert.Equal(t, "client_id-1", rr.Header().Get(RequestIDHeader))
	})

	t.Run("Replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "bad id\twith spaces")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.NotEqual(t, "bad id\twith spaces", seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/brew")
}
