package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shipwright-run/shipwright/internal/model"
)

// Metrics holds the Prometheus gauges the dashboard's /metrics endpoint
// serves, updated on every /status read. Grounded on the
// jordigilh/kubernaut go.mod's prometheus/client_golang dependency, wired
// here since SPEC_FULL.md's domain-stack table calls for exercising it.
type Metrics struct {
	activeJobs   prometheus.Gauge
	queuedJobs   prometheus.Gauge
	priorityLane prometheus.Gauge
	paused       prometheus.Gauge
}

// NewMetrics registers a fresh set of gauges against the default registry.
// Safe to call once per process; callers embedding multiple Servers in one
// process (never the case in production, only tests) should share one
// Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shipwright", Name: "active_jobs", Help: "Number of jobs currently in active_jobs.",
		}),
		queuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shipwright", Name: "queued_jobs", Help: "Number of issues awaiting admission capacity.",
		}),
		priorityLane: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shipwright", Name: "priority_lane_active", Help: "Number of active jobs holding a priority-lane slot.",
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shipwright", Name: "paused", Help: "1 if admission is paused, 0 otherwise.",
		}),
	}
	prometheus.MustRegister(m.activeJobs, m.queuedJobs, m.priorityLane, m.paused)
	return m
}

// Observe updates every gauge from the latest snapshot.
func (m *Metrics) Observe(snap *model.DaemonState, paused bool) {
	m.activeJobs.Set(float64(len(snap.ActiveJobs)))
	m.queuedJobs.Set(float64(len(snap.Queued)))
	m.priorityLane.Set(float64(len(snap.PriorityLaneActive)))
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}
