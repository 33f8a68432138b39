package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/reqnotify/internal/adapter/metrics"
	"github.com/V4T54L/reqnotify/internal/domain"
)

type funcDeliverer func(ctx context.Context, n domain.Notification) domain.Outcome

func (f funcDeliverer) Deliver(ctx context.Context, n domain.Notification) domain.Outcome {
	return f(ctx, n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotificationDispatcher(t *testing.T) {
	t.Run("Schedule does not wait for delivery", func(t *testing.T) {
		release := make(chan struct{})
		var delivered atomic.Int32
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			<-release
			delivered.Add(1)
			return domain.Outcome{}
		}), discardLogger(), nil, 0)

		start := time.Now()
		d.Schedule(domain.Notification{ID: "n1"})
		assert.Less(t, time.Since(start), 100*time.Millisecond)
		assert.Equal(t, int32(0), delivered.Load())

		close(release)
		require.NoError(t, d.Shutdown(context.Background()))
		assert.Equal(t, int32(1), delivered.Load())
	})

	t.Run("Every scheduled notification is delivered once", func(t *testing.T) {
		var mu sync.Mutex
		seen := map[string]int{}
		m := metrics.NewNotifierMetrics(prometheus.NewRegistry())
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			mu.Lock()
			seen[n.ID]++
			mu.Unlock()
			return domain.Outcome{}
		}), discardLogger(), m, 0)

		ids := []string{"a", "b", "c", "d", "e"}
		for _, id := range ids {
			d.Schedule(domain.Notification{ID: id})
		}
		require.NoError(t, d.Shutdown(context.Background()))

		for _, id := range ids {
			assert.Equal(t, 1, seen[id], "notification %s", id)
		}
		assert.Equal(t, 5.0, testutil.ToFloat64(m.NotificationsScheduled))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.DeliveriesInFlight))
	})

	t.Run("Shutdown does not block past its context", func(t *testing.T) {
		cancelled := make(chan struct{})
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			<-ctx.Done()
			close(cancelled)
			return domain.Outcome{}
		}), discardLogger(), nil, 0)

		d.Schedule(domain.Notification{ID: "stuck"})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := d.Shutdown(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("in-flight delivery was not cancelled")
		}
	})

	t.Run("Schedule after shutdown drops", func(t *testing.T) {
		var delivered atomic.Int32
		m := metrics.NewNotifierMetrics(prometheus.NewRegistry())
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			delivered.Add(1)
			return domain.Outcome{}
		}), discardLogger(), m, 0)

		require.NoError(t, d.Shutdown(context.Background()))
		d.Schedule(domain.Notification{ID: "late"})

		assert.Equal(t, int32(0), delivered.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsDropped))
	})

	t.Run("MaxInFlight caps concurrent deliveries", func(t *testing.T) {
		var current, peak atomic.Int32
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			c := current.Add(1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return domain.Outcome{}
		}), discardLogger(), nil, 2)

		for i := 0; i < 10; i++ {
			d.Schedule(domain.Notification{ID: "n"})
		}
		require.NoError(t, d.Shutdown(context.Background()))

		assert.LessOrEqual(t, peak.Load(), int32(2))
		assert.Equal(t, int32(0), current.Load())
	})

	t.Run("Delivery panic is contained", func(t *testing.T) {
		d := NewNotificationDispatcher(funcDeliverer(func(ctx context.Context, n domain.Notification) domain.Outcome {
			panic("boom")
		}), discardLogger(), nil, 0)

		d.Schedule(domain.Notification{ID: "p"})
		assert.NoError(t, d.Shutdown(context.Background()))
	})
}
