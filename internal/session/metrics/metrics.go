package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for session lifecycle tracking.
type Metrics struct {
	StartedTotal   *prometheus.CounterVec
	CompletedTotal *prometheus.CounterVec
	ReapedTotal    prometheus.Counter
	AnswersTotal   prometheus.Counter
	DocumentsTotal *prometheus.CounterVec
}

// New creates and registers all session metrics.
func New() *Metrics {
	return &Metrics{
		StartedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_sessions_started_total",
			Help: "Intake sessions started, by kind",
		}, []string{"kind"}),
		CompletedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_sessions_completed_total",
			Help: "Sessions that reached a terminal state, by state",
		}, []string{"state"}),
		ReapedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "underwrite_sessions_reaped_total",
			Help: "Sessions abandoned by the idle-timeout reaper",
		}),
		AnswersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "underwrite_answers_submitted_total",
			Help: "Questionnaire answers accepted",
		}),
		DocumentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_documents_total",
			Help: "Document records by final verification status",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveStarted(kind string) {
	if m == nil {
		return
	}
	m.StartedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveCompleted(state string) {
	if m == nil {
		return
	}
	m.CompletedTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveReaped() {
	if m == nil {
		return
	}
	m.ReapedTotal.Inc()
}

func (m *Metrics) ObserveAnswer() {
	if m == nil {
		return
	}
	m.AnswersTotal.Inc()
}

func (m *Metrics) ObserveDocument(status string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(status).Inc()
}
