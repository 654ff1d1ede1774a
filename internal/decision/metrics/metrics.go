package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for decision evaluation.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	OverridesTotal     prometheus.Counter
	FraudSignalsTotal  *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
}

// New creates and registers all decision metrics.
func New() *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_decisions_total",
			Help: "Finalized decisions by outcome and matched rule",
		}, []string{"outcome", "rule"}),
		OverridesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "underwrite_decision_overrides_total",
			Help: "Manual overrides appended to finalized decisions",
		}),
		FraudSignalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_fraud_signals_total",
			Help: "Computed fraud signals by aggregate severity",
		}, []string{"severity"}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "underwrite_decision_evaluation_seconds",
			Help:    "Wall time of risk+fraud computation and rule evaluation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveDecision(outcome, rule string, severity string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(outcome, rule).Inc()
	m.FraudSignalsTotal.WithLabelValues(severity).Inc()
	m.EvaluationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementOverrides() {
	if m == nil {
		return
	}
	m.OverridesTotal.Inc()
}
