package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs               *prometheus.CounterVec
	failures           *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	assignmentsClosed  prometheus.Counter
	permissionsEnsured prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddClosedAssignments counts assignments closed by the orphan sweep.
func (m *Metrics) AddClosedAssignments(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.assignmentsClosed.Add(float64(count))
}

// AddEnsuredPermissions counts catalog entries upserted by the sync job.
func (m *Metrics) AddEnsuredPermissions(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.permissionsEnsured.Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "univera_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "univera_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "univera_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	assignmentsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "univera_hr_orphaned_assignments_closed_total",
		Help: "Open assignments of inactive employees closed by the sweep job.",
	})
	permissionsEnsured := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "univera_rbac_permissions_ensured_total",
		Help: "Permission catalog entries upserted by the sync job.",
	})
	registerer.MustRegister(runs, failures, duration, assignmentsClosed, permissionsEnsured)
	return &Metrics{
		runs:               runs,
		failures:           failures,
		duration:           duration,
		assignmentsClosed:  assignmentsClosed,
		permissionsEnsured: permissionsEnsured,
	}
}
