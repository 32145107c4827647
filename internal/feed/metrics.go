package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankDuration     = "feed_rank_duration_seconds"
	MetricRankTotal        = "feed_rank_total"
	MetricRankErrors       = "feed_rank_errors_total"
	MetricCandidatePosts   = "feed_candidate_posts"
	MetricProfileCacheMiss = "feed_profile_fetch_total"
)

// Metrics contains Prometheus metrics for the ranking engine.
// All operations are thread-safe.
type Metrics struct {
	rankDuration   prometheus.Histogram
	rankTotal      prometheus.Counter
	rankErrors     *prometheus.CounterVec
	candidatePosts *prometheus.HistogramVec
	profileFetches prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of end-to-end feed ranking duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),
		rankTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankTotal,
			Help: "Total number of feed ranking requests",
		}),
		rankErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankErrors,
				Help: "Total number of feed ranking failures by error kind",
			},
			[]string{"kind"},
		),
		candidatePosts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricCandidatePosts,
				Help:    "Number of posts per ranking request by pipeline stage",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"stage"},
		),
		profileFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricProfileCacheMiss,
			Help: "Total number of author profile batch lookups",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rankDuration,
		m.rankTotal,
		m.rankErrors,
		m.candidatePosts,
		m.profileFetches,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRank records a completed ranking pass.
func (m *Metrics) ObserveRank(durationSeconds float64, retrieved, returned int) {
	m.rankTotal.Inc()
	m.rankDuration.Observe(durationSeconds)
	m.candidatePosts.WithLabelValues("retrieved").Observe(float64(retrieved))
	m.candidatePosts.WithLabelValues("returned").Observe(float64(returned))
}

// IncRankErrors increments the failure counter for the given error kind.
func (m *Metrics) IncRankErrors(kind string) {
	m.rankErrors.WithLabelValues(kind).Inc()
}

// IncProfileFetches increments the profile batch lookup counter.
func (m *Metrics) IncProfileFetches() {
	m.profileFetches.Inc()
}
