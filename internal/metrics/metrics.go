// Package metrics exposes Prometheus instrumentation for the defense workflow and sync.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gradschool"

// Metrics holds the registered collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	transitions         *prometheus.CounterVec
	aaStatusChanges     *prometheus.CounterVec
	honorariaCreated    prometheus.Counter
	unresolvedPanelists prometheus.Counter
	orphanPanelists     prometheus.Counter
	syncRuns            *prometheus.CounterVec
	syncDuration        prometheus.Histogram
	notifications       *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
// If collectProcessMetrics is true the Go and process collectors are registered too.
func New(collectProcessMetrics bool) *Metrics {
	registry := prometheus.NewRegistry()
	if collectProcessMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		Registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Defense request workflow transitions",
		}, []string{"from", "to"}),
		aaStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aa",
			Name:      "status_changes_total",
			Help:      "AA payment verification status changes, duplicates excluded",
		}, []string{"status"}),
		honorariaCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "honorarium",
			Name:      "payments_created_total",
			Help:      "Honorarium payments materialized",
		}),
		unresolvedPanelists: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "honorarium",
			Name:      "unresolved_panelists_total",
			Help:      "Committee names not found in the panelist directory at materialization",
		}),
		orphanPanelists: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "orphan_panelists_total",
			Help:      "Honoraria whose panelist no longer exists in the directory at sync",
		}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Student record sync runs by result",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Student record sync duration",
			Buckets:   prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dispatched_total",
			Help:      "Notification dispatch attempts by event and result",
		}, []string{"event", "result"}),
	}

	registry.MustRegister(
		m.transitions,
		m.aaStatusChanges,
		m.honorariaCreated,
		m.unresolvedPanelists,
		m.orphanPanelists,
		m.syncRuns,
		m.syncDuration,
		m.notifications,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) AAStatusChanged(status string) {
	if m == nil {
		return
	}
	m.aaStatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) HonorariaCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.honorariaCreated.Add(float64(n))
}

func (m *Metrics) UnresolvedPanelist() {
	if m == nil {
		return
	}
	m.unresolvedPanelists.Inc()
}

func (m *Metrics) OrphanPanelist() {
	if m == nil {
		return
	}
	m.orphanPanelists.Inc()
}

// SyncRun records one sync attempt. result is "ok", "not_ready" or "error".
func (m *Metrics) SyncRun(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Notification(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(event, result).Inc()
}
