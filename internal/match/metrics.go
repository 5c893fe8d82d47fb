package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricPairsScoredTotal  = "match_pairs_scored_total"
	MetricHardFailsTotal    = "match_hard_fails_total"
	MetricRankRequestsTotal = "match_rank_requests_total"
	MetricRankDuration      = "match_rank_duration_seconds"
	MetricRankPoolSize      = "match_rank_pool_size"
)

// Metrics contains Prometheus metrics for the match engine's host layer.
// The engine itself stays pure; callers observe around engine invocations.
// All operations are thread-safe.
type Metrics struct {
	pairsScoredTotal  prometheus.Counter
	hardFailsTotal    prometheus.Counter
	rankRequestsTotal *prometheus.CounterVec
	rankDuration      *prometheus.HistogramVec
	rankPoolSize      prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		pairsScoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPairsScoredTotal,
			Help: "Total number of profile/assignment pairs scored",
		}),
		hardFailsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricHardFailsTotal,
			Help: "Total number of scored pairs with a hard skill failure",
		}),
		rankRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankRequestsTotal,
				Help: "Total number of ranking requests by mode",
			},
			[]string{"mode"},
		),
		rankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankDuration,
				Help:    "Histogram of ranking pass duration in seconds by mode",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"mode"},
		),
		rankPoolSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankPoolSize,
			Help:    "Histogram of candidate pool sizes per ranking pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
		}),
	}
}

// Collectors returns all collectors owned by this Metrics instance.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.pairsScoredTotal,
		m.hardFailsTotal,
		m.rankRequestsTotal,
		m.rankDuration,
		m.rankPoolSize,
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncPairsScored increments the scored-pairs counter.
func (m *Metrics) IncPairsScored() {
	m.pairsScoredTotal.Inc()
}

// IncHardFails increments the hard-fail counter.
func (m *Metrics) IncHardFails() {
	m.hardFailsTotal.Inc()
}

// IncRankRequests increments the ranking-request counter for a mode.
func (m *Metrics) IncRankRequests(mode Mode) {
	m.rankRequestsTotal.WithLabelValues(string(mode)).Inc()
}

// ObserveRankDuration records a ranking pass duration sample for a mode.
func (m *Metrics) ObserveRankDuration(mode Mode, seconds float64) {
	m.rankDuration.WithLabelValues(string(mode)).Observe(seconds)
}

// ObservePoolSize records the candidate pool size of a ranking pass.
func (m *Metrics) ObservePoolSize(n int) {
	m.rankPoolSize.Observe(float64(n))
}
