package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	RunReported = "reported"
	RunNoAction = "no_action"
	RunFailed   = "failed"
)

// Lifecycle check outcomes.
const (
	CheckNotTriggered     = "not_triggered"
	CheckDeployed         = "deployed"
	CheckFeedbackFailed   = "feedback_failed"
	CheckTrainingFailed   = "training_failed"
	CheckDeploymentFailed = "deployment_failed"
)

// Metrics holds the Prometheus collectors for trafficwatch.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	ViolationsTotal *prometheus.CounterVec
	ChecksTotal     *prometheus.CounterVec
	HubReportsTotal prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficwatch_runs_total",
			Help: "Incident runs by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trafficwatch_stage_duration_seconds",
			Help:    "Pipeline stage duration by stage and outcome",
			Buckets: []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage", "outcome"}),
		ViolationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficwatch_violations_total",
			Help: "Violations reported to the central server by type",
		}, []string{"type"}),
		ChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficwatch_lifecycle_checks_total",
			Help: "Lifecycle checks by outcome",
		}, []string{"outcome"}),
		HubReportsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "trafficwatch_hub_reports_total",
			Help: "Reports accepted by the hub",
		}),
	}
}

// StageDone records one stage execution. It satisfies pipeline.Observer.
func (m *Metrics) StageDone(stage string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

// RunFinished counts an incident run.
func (m *Metrics) RunFinished(outcome string) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// ViolationReported counts an accepted report.
func (m *Metrics) ViolationReported(violationType string) {
	m.ViolationsTotal.WithLabelValues(violationType).Inc()
}

// CheckFinished counts a lifecycle check.
func (m *Metrics) CheckFinished(outcome string) {
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}

// HubReportReceived counts a report stored by the hub.
func (m *Metrics) HubReportReceived() {
	m.HubReportsTotal.Inc()
}

// Handler serves the metrics registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
