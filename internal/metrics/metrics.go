// Package metrics holds the prometheus collectors for ledger writes and
// report renders.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Deletions   prometheus.Counter
	Reorders    prometheus.Counter
	RenderTime  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mia",
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Transaction submissions by type and result.",
		}, []string{"type", "result"}),
		Deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mia",
			Subsystem: "ledger",
			Name:      "deletions_total",
			Help:      "Deleted transactions.",
		}),
		Reorders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mia",
			Subsystem: "ledger",
			Name:      "reorders_total",
			Help:      "Explicit same-day reorders.",
		}),
		RenderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mia",
			Subsystem: "report",
			Name:      "render_seconds",
			Help:      "Time spent computing a report.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Submissions, m.Deletions, m.Reorders, m.RenderTime)
	return m
}

// Submitted counts a submission outcome ("ok", "invalid" or "error").
func (m *Metrics) Submitted(txnType, result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(txnType, result).Inc()
}

// Deleted counts a deleted transaction.
func (m *Metrics) Deleted() {
	if m == nil {
		return
	}
	m.Deletions.Inc()
}

// Reordered counts an explicit reorder.
func (m *Metrics) Reordered() {
	if m == nil {
		return
	}
	m.Reorders.Inc()
}

// ObserveRender records how long a report took since start.
func (m *Metrics) ObserveRender(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.RenderTime.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
