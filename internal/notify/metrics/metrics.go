package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for notification dispatch.
type Metrics struct {
	AttemptsTotal  *prometheus.CounterVec
	DeliveredTotal *prometheus.CounterVec
	FailedTotal    *prometheus.CounterVec
	CancelledTotal prometheus.Counter
	QueueDepth     prometheus.Gauge
}

// New creates and registers all dispatch metrics.
func New() *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_dispatch_attempts_total",
			Help: "Delivery attempts by channel, including retries",
		}, []string{"channel"}),
		DeliveredTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_dispatch_delivered_total",
			Help: "Deliveries that reached DELIVERED, by channel",
		}, []string{"channel"}),
		FailedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "underwrite_dispatch_failed_total",
			Help: "Deliveries that exhausted retries, by channel",
		}, []string{"channel"}),
		CancelledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "underwrite_dispatch_cancelled_total",
			Help: "Queued deliveries skipped because their session was abandoned",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "underwrite_dispatch_queue_depth",
			Help: "Deliveries waiting for a worker",
		}),
	}
}

func (m *Metrics) ObserveAttempt(channel string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) ObserveDelivered(channel string) {
	if m == nil {
		return
	}
	m.DeliveredTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) ObserveFailed(channel string) {
	if m == nil {
		return
	}
	m.FailedTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) ObserveCancelled() {
	if m == nil {
		return
	}
	m.CancelledTotal.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
