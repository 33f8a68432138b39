package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/reqnotify/internal/adapter/webhook"
	"github.com/V4T54L/reqnotify/internal/domain"
	"github.com/V4T54L/reqnotify/internal/domain/mocks"
	"github.com/V4T54L/reqnotify/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPrepare(t *testing.T, cfg domain.NotifierConfig) *domain.PreparedNotifier {
	t.Helper()
	p, err := domain.PrepareNotifier(cfg)
	require.NoError(t, err)
	return p
}

func appHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/panic":
			panic("inner handler exploded")
		default:
			w.Header().Set("X-App", "yes")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	})
}

func TestNotify_ResponseIsUnchanged(t *testing.T) {
	notifier := mustPrepare(t, domain.NotifierConfig{URL: "http://hooks.invalid/notify"})

	for _, path := range []string{"/", "/fail"} {
		t.Run(path, func(t *testing.T) {
			direct := httptest.NewRecorder()
			appHandler().ServeHTTP(direct, httptest.NewRequest(http.MethodPost, path, strings.NewReader("payload")))

			wrapped := httptest.NewRecorder()
			h := Notify(notifier, &mocks.MockScheduler{}, discardLogger())(appHandler())
			h.ServeHTTP(wrapped, httptest.NewRequest(http.MethodPost, path, strings.NewReader("payload")))

			assert.Equal(t, direct.Code, wrapped.Code)
			assert.Equal(t, direct.Header(), wrapped.Header())
			assert.Equal(t, direct.Body.Bytes(), wrapped.Body.Bytes())
		})
	}
}

func TestNotify_SchedulesOncePerRequest(t *testing.T) {
	notifier := mustPrepare(t, domain.NotifierConfig{URL: "http://hooks.invalid/notify"})

	tests := []struct {
		name      string
		path      string
		wantPanic bool
	}{
		{name: "Inner handler succeeds", path: "/"},
		{name: "Inner handler errors", path: "/fail"},
		{name: "Inner handler panics", path: "/panic", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := &mocks.MockScheduler{}
			h := Notify(notifier, scheduler, discardLogger())(appHandler())

			serve := func() {
				h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			}
			if tt.wantPanic {
				assert.Panics(t, serve, "inner panic must propagate unchanged")
			} else {
				assert.NotPanics(t, serve)
			}

			got := scheduler.Notifications()
			require.Len(t, got, 1)
			assert.Equal(t, tt.path, got[0].RequestPath)
		})
	}
}

type panickingScheduler struct{}

func (panickingScheduler) Schedule(domain.Notification) { panic("scheduler broke") }

func TestNotify_SchedulerFailureDoesNotFailRequest(t *testing.T) {
	notifier := mustPrepare(t, domain.NotifierConfig{URL: "http://hooks.invalid/notify"})
	h := Notify(notifier, panickingScheduler{}, discardLogger())(appHandler())

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestNotify_CarriesRequestID(t *testing.T) {
	notifier := mustPrepare(t, domain.NotifierConfig{URL: "http://hooks.invalid/notify"})
	scheduler := &mocks.MockScheduler{}
	h := RequestID(Notify(notifier, scheduler, discardLogger())(appHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	got := scheduler.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, "abc-123", got[0].RequestID)
}

type webhookHit struct {
	token string
	body  string
}

func TestNotify_EndToEnd(t *testing.T) {
	var mu sync.Mutex
	var hits []webhookHit
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, webhookHit{token: r.Header.Get("X-Token"), body: string(b)})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	ping := "ping"
	notifier := mustPrepare(t, domain.NotifierConfig{
		URL:     hook.URL,
		Body:    &ping,
		Headers: map[string]string{"X-Token": "abc"},
	})
	client := webhook.NewClient(webhook.ClientOptions{Timeout: 2 * time.Second})
	dispatcher := usecase.NewNotificationDispatcher(
		usecase.NewDeliverNotificationUseCase(client, discardLogger(), nil), discardLogger(), nil, 0)

	h := Notify(notifier, dispatcher, discardLogger())(appHandler())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusCreated, rr.Code)
		}()
	}
	wg.Wait()
	require.NoError(t, dispatcher.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Equal(t, "abc", hit.token)
		assert.Equal(t, "ping", hit.body)
	}
}

func TestNotify_UnreachableWebhookAddsNoLatency(t *testing.T) {
	// A target that accepts the connection but never answers.
	release := make(chan struct{})
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer hook.Close()
	defer close(release)

	notifier := mustPrepare(t, domain.NotifierConfig{URL: hook.URL})
	client := webhook.NewClient(webhook.ClientOptions{Timeout: 5 * time.Second})
	dispatcher := usecase.NewNotificationDispatcher(
		usecase.NewDeliverNotificationUseCase(client, discardLogger(), nil), discardLogger(), nil, 0)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	}()

	h := Notify(notifier, dispatcher, discardLogger())(appHandler())

	start := time.Now()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}
