package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the resolver's prometheus series; a nil *Metrics records nothing
type Metrics struct {
	Documents *prometheus.CounterVec
	MergeTime prometheus.Histogram
}

// NewMetrics registers the resolver series on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Documents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ngmeta_resolver_documents_total",
			Help: "Resolver document merges by outcome (created, merged, failed)",
		}, []string{"outcome"}),
		MergeTime: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "ngmeta_resolver_merge_seconds",
			Help:    "Time to load, merge and save one resolver document",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
}

func (m *Metrics) merged(created bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "merged"
	if created {
		outcome = "created"
	}
	m.Documents.WithLabelValues(outcome).Inc()
	m.MergeTime.Observe(elapsed.Seconds())
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues("failed").Inc()
}
