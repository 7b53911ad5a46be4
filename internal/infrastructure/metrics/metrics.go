package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sheetsync-core-pipedrive-layer/internal/ports"
)

// PrometheusMetrics implements SyncMetrics on Prometheus counters.
type PrometheusMetrics struct {
	pullsTotal    *prometheus.CounterVec
	pullRowsTotal *prometheus.CounterVec
	pushRowsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates the counters and registers them.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		pullsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sheetsync_pulls_total",
			Help: "Completed pull operations by entity type.",
		}, []string{"entity"}),
		pullRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sheetsync_pull_rows_total",
			Help: "Rows written to the grid by pull operations.",
		}, []string{"entity"}),
		pushRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sheetsync_push_rows_total",
			Help: "Row push outcomes by entity type and result.",
		}, []string{"entity", "result"}),
	}
	reg.MustRegister(m.pullsTotal, m.pullRowsTotal, m.pushRowsTotal)
	return m
}

// PullCompleted records a finished pull and its row count.
func (m *PrometheusMetrics) PullCompleted(entity string, rows int) {
	m.pullsTotal.WithLabelValues(entity).Inc()
	m.pullRowsTotal.WithLabelValues(entity).Add(float64(rows))
}

// PushRow records one row's push outcome.
func (m *PrometheusMetrics) PushRow(entity string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.pushRowsTotal.WithLabelValues(entity, result).Inc()
}

var _ ports.SyncMetrics = (*PrometheusMetrics)(nil)
