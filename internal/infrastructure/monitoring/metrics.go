package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	WorkflowsSubmitted *prometheus.CounterVec
	WorkflowsFinished  *prometheus.CounterVec
	WorkflowDuration   *prometheus.HistogramVec
	ActiveWorkflows    prometheus.Gauge
	StageLatency       *prometheus.HistogramVec
	StageErrors        *prometheus.CounterVec
	StageRetries       *prometheus.CounterVec
	RiskCategories     *prometheus.CounterVec
	Violations         *prometheus.CounterVec
	Commands           *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg means
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		WorkflowsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_workflows_submitted_total",
				Help: "Total number of accepted scan requests.",
			},
			[]string{"priority"},
		),
		WorkflowsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_workflows_finished_total",
				Help: "Total number of workflows reaching a terminal stage.",
			},
			[]string{"result"},
		),
		WorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astragrid_workflow_duration_seconds",
				Help:    "Wall time from submission to terminal stage.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"result"},
		),
		ActiveWorkflows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "astragrid_active_workflows",
			Help: "Number of non-terminal workflows.",
		}),
		StageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astragrid_stage_latency_seconds",
				Help:    "Latency of one pipeline stage execution.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_stage_errors_total",
				Help: "Total number of failed stage executions.",
			},
			[]string{"stage"},
		),
		StageRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_stage_retries_total",
				Help: "Total number of stage retries by error kind.",
			},
			[]string{"stage", "kind"},
		),
		RiskCategories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_risk_assessments_total",
				Help: "Total number of risk assessments by category.",
			},
			[]string{"category"},
		),
		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_compliance_violations_total",
				Help: "Total number of compliance violations by regulation.",
			},
			[]string{"regulation"},
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_agent_commands_total",
				Help: "Total number of commands received on the agent channel.",
			},
			[]string{"type"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astragrid_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"path", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astragrid_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		HTTPActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "astragrid_http_active_requests",
				Help: "Number of in-flight HTTP requests.",
			},
			[]string{"path", "method"},
		),
	}
}

func (m *Metrics) ActiveRequestsInc(path, method string) {
	m.HTTPActiveRequests.WithLabelValues(path, method).Inc()
}

func (m *Metrics) ActiveRequestsDec(path, method string) {
	m.HTTPActiveRequests.WithLabelValues(path, method).Dec()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(path, method string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

//Personal.AI order the ending
