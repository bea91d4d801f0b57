package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for ideaflow components.
type Registry struct {
	// Queue Metrics
	QueueSize   *prometheus.GaugeVec
	QueuePushed *prometheus.CounterVec
	QueuePolled *prometheus.CounterVec

	// Worker Metrics
	WorkerTicks        *prometheus.CounterVec
	WorkerTickFailures *prometheus.CounterVec
	WorkerTickDuration *prometheus.HistogramVec
	WorkersRunning     prometheus.Gauge

	// Enrichment Metrics
	EnrichCalls    *prometheus.CounterVec
	EnrichFailures *prometheus.CounterVec
	EnrichDuration *prometheus.HistogramVec

	// Rate Limiting Metrics
	RateLimitWaitTime *prometheus.HistogramVec

	// Session Metrics
	SessionsCompleted prometheus.Counter
	ItemsStaged       prometheus.Counter
}

// DefaultRegistry is the registry used when a component is given metrics.Config
// without an explicit Prometheus registerer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace)
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		QueueSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "size",
				Help:      "Current number of items in the queue",
			},
			[]string{"queue"},
		),

		QueuePushed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "pushed_total",
				Help:      "Total number of items pushed onto the queue",
			},
			[]string{"queue"},
		),

		QueuePolled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "polled_total",
				Help:      "Total number of items removed from the queue",
			},
			[]string{"queue"},
		),

		WorkerTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "ticks_total",
				Help:      "Total number of stage ticks executed",
			},
			[]string{"worker"},
		),

		WorkerTickFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "tick_failures_total",
				Help:      "Total number of ticks that returned an error or panicked",
			},
			[]string{"worker"},
		),

		WorkerTickDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "tick_duration_seconds",
				Help:      "Time spent in one stage tick, excluding pacing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"worker"},
		),

		WorkersRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "running",
				Help:      "Number of worker goroutines currently running",
			},
		),

		EnrichCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrich",
				Name:      "calls_total",
				Help:      "Total number of score and evolve calls",
			},
			[]string{"op"},
		),

		EnrichFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrich",
				Name:      "failures_total",
				Help:      "Total number of enrichment calls that fell back",
			},
			[]string{"op"},
		),

		EnrichDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "enrich",
				Name:      "duration_seconds",
				Help:      "Latency of enrichment calls",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"op"},
		),

		RateLimitWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for rate limit approval",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"limiter_name"},
		),

		SessionsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "completed_total",
				Help:      "Total number of pipeline sessions that ran to teardown",
			},
		),

		ItemsStaged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "items_staged_total",
				Help:      "Total number of items drained from the terminal queue",
			},
		),
	}
}

// SetQueueSize records the size of a named queue. Safe on a nil Registry.
func (r *Registry) SetQueueSize(queue string, size int) {
	if r == nil {
		return
	}
	r.QueueSize.WithLabelValues(queue).Set(float64(size))
}

// ObserveEnrich records one enrichment call outcome. Safe on a nil Registry.
func (r *Registry) ObserveEnrich(op string, seconds float64, failed bool) {
	if r == nil {
		return
	}
	r.EnrichCalls.WithLabelValues(op).Inc()
	r.EnrichDuration.WithLabelValues(op).Observe(seconds)
	if failed {
		r.EnrichFailures.WithLabelValues(op).Inc()
	}
}
