package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the collector's prometheus series, labelled by collector name
// a nil *Metrics records nothing
type Metrics struct {
	Commits *prometheus.CounterVec
	Batches *prometheus.CounterVec
	Runs    *prometheus.CounterVec
	Cursor  *prometheus.GaugeVec
}

// NewMetrics registers the collector series on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Commits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ngmeta_collector_commits_total",
			Help: "Commit groups whose batch was processed",
		}, []string{"collector"}),
		Batches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ngmeta_collector_batches_total",
			Help: "Flushed batches by outcome",
		}, []string{"collector", "status"}),
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ngmeta_collector_runs_total",
			Help: "Collector runs by outcome",
		}, []string{"collector", "status"}),
		Cursor: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ngmeta_collector_cursor_seconds",
			Help: "Front cursor position as unix seconds",
		}, []string{"collector"}),
	}
}

func (m *Metrics) batch(collector string, groups int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Batches.WithLabelValues(collector, "failed").Inc()
		return
	}
	m.Batches.WithLabelValues(collector, "ok").Inc()
	m.Commits.WithLabelValues(collector).Add(float64(groups))
}

func (m *Metrics) run(collector, status string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(collector, status).Inc()
}

func (m *Metrics) cursor(collector string, ts time.Time) {
	if m == nil {
		return
	}
	m.Cursor.WithLabelValues(collector).Set(float64(ts.UnixNano()) / 1e9)
}
