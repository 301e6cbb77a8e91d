package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Metrics contains Prometheus metrics for policy evaluation.
type Metrics struct {
	evaluations *prometheus.CounterVec
	denials     *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates evaluation metrics registered on the default
// registry. Create at most one per process.
func NewMetrics() *Metrics {
	return newMetricsWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsFor creates evaluation metrics on a caller-owned registry.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	return newMetricsWith(promauto.With(reg))
}

func newMetricsWith(factory promauto.Factory) *Metrics {
	return &Metrics{
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_policy_evaluations_total",
				Help: "Total number of policy evaluations by outcome",
			},
			[]string{"outcome"},
		),
		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_policy_denials_total",
				Help: "Total number of denials by policy kind",
			},
			[]string{"kind"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tollgate_policy_evaluation_duration_seconds",
				Help:    "Time spent evaluating a request against the policy set",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
	}
}

// observe records one evaluation.
func (m *Metrics) observe(d Decision, set *ast.PolicySet, elapsed time.Duration) {
	m.evaluations.WithLabelValues(string(d.Outcome)).Inc()
	if d.Outcome == OutcomeDeny && d.RuleIndex >= 0 && d.RuleIndex < set.Len() {
		m.denials.WithLabelValues(string(set.Policies[d.RuleIndex].Kind())).Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}
