// Package monitoring provides adapters to connect the domain's metrics interface with a concrete implementation like Prometheus.
package monitoring

import (
	"time"

	"github.com/turtacn/astragrid/internal/domain/service"
)

// MetricsAdapter implements the domain's service.Metrics interface on top of Prometheus.
// MetricsAdapter 实现了域的 service.Metrics 接口，将指标发送到 Prometheus 后端。
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter wraps a concrete Prometheus Metrics object.
// NewMetricsAdapter 创建一个包装具体 Prometheus Metrics 对象的新适配器。
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

func (a *MetricsAdapter) RecordWorkflowSubmitted(priority string) {
	a.metrics.WorkflowsSubmitted.WithLabelValues(priority).Inc()
}

func (a *MetricsAdapter) RecordWorkflowFinished(result string, duration time.Duration) {
	a.metrics.WorkflowsFinished.WithLabelValues(result).Inc()
	a.metrics.WorkflowDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordStage observes stage latency; failed executions are also counted separately.
func (a *MetricsAdapter) RecordStage(stage string, duration time.Duration, err error) {
	a.metrics.StageLatency.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		a.metrics.StageErrors.WithLabelValues(stage).Inc()
	}
}

func (a *MetricsAdapter) RecordStageRetry(stage, kind string) {
	a.metrics.StageRetries.WithLabelValues(stage, kind).Inc()
}

func (a *MetricsAdapter) RecordRiskCategory(category string) {
	a.metrics.RiskCategories.WithLabelValues(category).Inc()
}

func (a *MetricsAdapter) RecordViolation(regulation string) {
	a.metrics.Violations.WithLabelValues(regulation).Inc()
}

func (a *MetricsAdapter) SetActiveWorkflows(count int) {
	a.metrics.ActiveWorkflows.Set(float64(count))
}

func (a *MetricsAdapter) RecordCommand(commandType string) {
	a.metrics.Commands.WithLabelValues(commandType).Inc()
}
