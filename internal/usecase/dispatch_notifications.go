package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/reqnotify/internal/adapter/metrics"
	"github.com/V4T54L/reqnotify/internal/domain"
)

// NotificationDeliverer performs the delivery of a single notification.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, n domain.Notification) domain.Outcome
}

// NotificationDispatcher runs each scheduled notification on its own goroutine.
// Callers never wait for a delivery; Shutdown bounds how long the process waits for stragglers.
type NotificationDispatcher struct {
	deliverer NotificationDeliverer
	logger    *slog.Logger
	metrics   *metrics.NotifierMetrics

	// slots caps concurrent deliveries; nil means unbounded.
	slots chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropLog rate.Sometimes
}

// NewNotificationDispatcher creates a dispatcher. maxInFlight <= 0 leaves concurrency unbounded.
func NewNotificationDispatcher(deliverer NotificationDeliverer, logger *slog.Logger, m *metrics.NotifierMetrics, maxInFlight int) *NotificationDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &NotificationDispatcher{
		deliverer: deliverer,
		logger:    logger.With("component", "notification_dispatcher"),
		metrics:   m,
		baseCtx:   ctx,
		cancel:    cancel,
		dropLog:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	if maxInFlight > 0 {
		d.slots = make(chan struct{}, maxInFlight)
	}
	return d
}

// Schedule starts the background delivery of n and returns immediately.
func (d *NotificationDispatcher) Schedule(n domain.Notification) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		if d.metrics != nil {
			d.metrics.NotificationsDropped.Inc()
		}
		d.dropLog.Do(func() {
			d.logger.Debug("dispatcher is shut down, dropping notification", "notification_id", n.ID)
		})
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	if d.metrics != nil {
		d.metrics.NotificationsScheduled.Inc()
	}
	go d.run(n)
}

func (d *NotificationDispatcher) run(n domain.Notification) {
	defer d.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("webhook delivery panicked", "panic", rec, "notification_id", n.ID)
		}
	}()

	if d.slots != nil {
		if d.metrics != nil {
			d.metrics.DeliveriesWaiting.Inc()
		}
		select {
		case d.slots <- struct{}{}:
			if d.metrics != nil {
				d.metrics.DeliveriesWaiting.Dec()
			}
			defer func() { <-d.slots }()
		case <-d.baseCtx.Done():
			if d.metrics != nil {
				d.metrics.DeliveriesWaiting.Dec()
			}
			d.logger.Debug("abandoning notification on shutdown", "notification_id", n.ID)
			return
		}
	}

	if d.metrics != nil {
		d.metrics.DeliveriesInFlight.Inc()
		defer d.metrics.DeliveriesInFlight.Dec()
	}
	d.deliverer.Deliver(d.baseCtx, n)
}

// Shutdown stops accepting notifications and waits for in-flight deliveries until ctx is done.
// Deliveries still running when ctx expires are cancelled and ctx.Err() is returned.
func (d *NotificationDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	defer d.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
