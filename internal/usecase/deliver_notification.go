package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/V4T54L/reqnotify/internal/adapter/metrics"
	"github.com/V4T54L/reqnotify/internal/domain"
)

const (
	defaultDeliveryTimeout = 10 * time.Second
	defaultJournalTimeout  = 2 * time.Second
	maxDrainBytes          = 64 << 10
)

// HTTPDoer is the subset of *http.Client used for deliveries.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliverNotificationUseCase performs the single webhook POST for a notification
// and reports the outcome to logs, metrics, observers and the optional journal.
type DeliverNotificationUseCase struct {
	client         HTTPDoer
	logger         *slog.Logger
	metrics        *metrics.NotifierMetrics
	journal        domain.OutcomeJournal
	observers      []domain.OutcomeObserver
	timeout        time.Duration
	journalTimeout time.Duration
	journalWarn    rate.Sometimes
}

// DeliverOption configures a DeliverNotificationUseCase.
type DeliverOption func(*DeliverNotificationUseCase)

// WithDeliveryTimeout bounds each webhook POST.
func WithDeliveryTimeout(d time.Duration) DeliverOption {
	return func(uc *DeliverNotificationUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

// WithOutcomeJournal appends every outcome to j.
func WithOutcomeJournal(j domain.OutcomeJournal) DeliverOption {
	return func(uc *DeliverNotificationUseCase) {
		uc.journal = j
	}
}

// WithOutcomeObservers registers observers that are told about every outcome.
func WithOutcomeObservers(obs ...domain.OutcomeObserver) DeliverOption {
	return func(uc *DeliverNotificationUseCase) {
		for _, o := range obs {
			if o != nil {
				uc.observers = append(uc.observers, o)
			}
		}
	}
}

// NewDeliverNotificationUseCase creates a new DeliverNotificationUseCase.
// The client is shared by every delivery; m may be nil.
func NewDeliverNotificationUseCase(client HTTPDoer, logger *slog.Logger, m *metrics.NotifierMetrics, opts ...DeliverOption) *DeliverNotificationUseCase {
	uc := &DeliverNotificationUseCase{
		client:         client,
		logger:         logger.With("component", "webhook_delivery"),
		metrics:        m,
		timeout:        defaultDeliveryTimeout,
		journalTimeout: defaultJournalTimeout,
		journalWarn:    rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Deliver makes exactly one POST attempt. Failures are recorded, never returned.
func (uc *DeliverNotificationUseCase) Deliver(ctx context.Context, n domain.Notification) domain.Outcome {
	ctx, span := otel.Tracer("webhook-delivery").Start(ctx, "Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification.id", n.ID),
		attribute.String("request.id", n.RequestID),
	)

	start := time.Now()
	statusCode, err := uc.post(ctx, n)
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))

	outcome := domain.Outcome{
		NotificationID: n.ID,
		URL:            n.URL,
		State:          domain.DeliverySucceeded,
		StatusCode:     statusCode,
		Duration:       time.Since(start),
		RequestMethod:  n.RequestMethod,
		RequestPath:    n.RequestPath,
		RequestID:      n.RequestID,
		ScheduledAt:    n.ScheduledAt,
		CompletedAt:    time.Now().UTC(),
	}
	if err != nil {
		outcome.State = domain.DeliveryFailed
		outcome.Error = err.Error()
		span.SetStatus(codes.Error, outcome.Error)
	}

	uc.record(ctx, outcome, err)
	return outcome
}

func (uc *DeliverNotificationUseCase) post(ctx context.Context, n domain.Notification) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if n.HasBody && len(n.Body) > 0 {
		body = bytes.NewReader(n.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.URL, body)
	if err != nil {
		return 0, &domain.DeliveryError{Err: err}
	}
	for name, values := range n.Header {
		if name == "Host" {
			// net/http ignores Header["Host"]; the override goes through req.Host.
			if len(values) > 0 {
				req.Host = values[0]
			}
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := uc.client.Do(req)
	if err != nil {
		return 0, &domain.DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	// Drain so the pooled connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &domain.DeliveryError{StatusCode: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

func (uc *DeliverNotificationUseCase) record(ctx context.Context, o domain.Outcome, err error) {
	attrs := []any{
		"notification_id", o.NotificationID,
		"request_id", o.RequestID,
		"method", o.RequestMethod,
		"path", o.RequestPath,
		"duration_ms", o.Duration.Milliseconds(),
	}

	result := "succeeded"
	var delErr *domain.DeliveryError
	switch {
	case err == nil:
		uc.logger.Debug("webhook notification delivered", append(attrs, "status", o.StatusCode)...)
	case errors.As(err, &delErr) && delErr.StatusCode != 0:
		result = "failed_status"
		uc.logger.Debug("webhook notification failed", append(attrs, "status", delErr.StatusCode)...)
	default:
		result = "failed_transport"
		uc.logger.Debug("webhook notification failed", append(attrs, "error", err)...)
	}

	if uc.metrics != nil {
		uc.metrics.DeliveriesTotal.WithLabelValues(result).Inc()
		uc.metrics.DeliveryDuration.Observe(o.Duration.Seconds())
	}

	for _, obs := range uc.observers {
		obs.ObserveOutcome(o)
	}

	if uc.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(ctx, uc.journalTimeout)
	defer cancel()
	if jerr := uc.journal.AppendOutcome(jctx, o); jerr != nil {
		if uc.metrics != nil {
			uc.metrics.JournalErrors.Inc()
		}
		uc.journalWarn.Do(func() {
			uc.logger.Warn("failed to append outcome to journal", "error", jerr, "notification_id", o.NotificationID)
		})
	}
}
