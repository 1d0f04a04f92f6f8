// Package service defines the stage capabilities of the inspection pipeline and
// their rule-based implementations.
package service

import (
	"time"
)

// Metrics defines the interface for collecting pipeline metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集流水线指标的接口。
type Metrics interface {
	// RecordWorkflowSubmitted counts an accepted scan request.
	RecordWorkflowSubmitted(priority string)

	// RecordWorkflowFinished records a workflow reaching a terminal stage.
	// RecordWorkflowFinished 记录工作流到达终态。
	RecordWorkflowFinished(result string, duration time.Duration)

	// RecordStage records the latency and outcome of one stage execution.
	RecordStage(stage string, duration time.Duration, err error)

	// RecordStageRetry records a retry of a stage, labelled by the error kind that caused it.
	// RecordStageRetry 记录阶段重试及其错误类型。
	RecordStageRetry(stage, kind string)

	// RecordRiskCategory counts produced assessments by category.
	RecordRiskCategory(category string)

	// RecordViolation counts violations by regulation code.
	RecordViolation(regulation string)

	// SetActiveWorkflows updates the gauge of non-terminal workflows.
	SetActiveWorkflows(count int)

	// RecordCommand counts commands received on the control channel.
	RecordCommand(commandType string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordWorkflowSubmitted(string)               {}
func (NoopMetrics) RecordWorkflowFinished(string, time.Duration) {}
func (NoopMetrics) RecordStage(string, time.Duration, error)     {}
func (NoopMetrics) RecordStageRetry(string, string)              {}
func (NoopMetrics) RecordRiskCategory(string)                    {}
func (NoopMetrics) RecordViolation(string)                       {}
func (NoopMetrics) SetActiveWorkflows(int)                       {}
func (NoopMetrics) RecordCommand(string)                         {}
