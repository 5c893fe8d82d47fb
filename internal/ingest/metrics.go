package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsProcessed = "ingest_events_processed_total"
	MetricEventErrors     = "ingest_event_errors_total"
	MetricApplyLatency    = "ingest_apply_latency_seconds"
)

// Metrics contains Prometheus metrics for the sync feed consumer.
// All operations are thread-safe.
type Metrics struct {
	eventsProcessed *prometheus.CounterVec
	eventErrors     prometheus.Counter
	applyLatency    prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsProcessed,
			Help: "Total number of change feed events applied to the store",
		}, []string{"kind", "op"}),
		eventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEventErrors,
			Help: "Total number of change feed events that failed to decode or apply",
		}),
		applyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricApplyLatency,
			Help:    "Histogram of event apply latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEventsProcessed increments the processed counter for one kind/op pair.
func (m *Metrics) IncEventsProcessed(kind, op string) {
	m.eventsProcessed.WithLabelValues(kind, op).Inc()
}

// IncEventErrors increments the event error counter.
func (m *Metrics) IncEventErrors() {
	m.eventErrors.Inc()
}

// ObserveApplyLatency records an apply latency sample.
func (m *Metrics) ObserveApplyLatency(seconds float64) {
	m.applyLatency.Observe(seconds)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.eventsProcessed,
		m.eventErrors,
		m.applyLatency,
	}
}
