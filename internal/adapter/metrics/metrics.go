package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotifierMetrics holds all Prometheus metrics for the webhook notifier.
type NotifierMetrics struct {
	NotificationsScheduled prometheus.Counter
	NotificationsDropped   prometheus.Counter
	DeliveriesTotal        *prometheus.CounterVec
	DeliveriesInFlight     prometheus.Gauge
	DeliveriesWaiting      prometheus.Gauge
	DeliveryDuration       prometheus.Histogram
	JournalErrors          prometheus.Counter
	APIKeyCacheHits        prometheus.Counter
	APIKeyCacheMisses      prometheus.Counter
}

// NewNotifierMetrics initializes the metrics and registers them with reg.
func NewNotifierMetrics(reg prometheus.Registerer) *NotifierMetrics {
	factory := promauto.With(reg)
	return &NotifierMetrics{
		NotificationsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "notifications_scheduled_total",
			Help:      "Total number of webhook notifications scheduled by the middleware.",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "notifications_dropped_total",
			Help:      "Notifications scheduled after the dispatcher was shut down.",
		}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Total number of webhook delivery attempts by result.",
		}, []string{"result"}), // result: succeeded, failed_status, failed_transport
		DeliveriesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "deliveries_in_flight",
			Help:      "Number of webhook POSTs currently in flight.",
		}),
		DeliveriesWaiting: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "deliveries_waiting",
			Help:      "Scheduled notifications waiting for a delivery slot.",
		}),
		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reqnotify",
			Subsystem: "notifier",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of webhook delivery attempts.",
			Buckets:   prometheus.DefBuckets,
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "journal",
			Name:      "append_errors_total",
			Help:      "Total number of outcomes that could not be appended to the journal.",
		}),
		APIKeyCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqnotify",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
