package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/infrastructure/monitoring"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

func TestMetricsAdapter_RecordsPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	adapter := monitoring.NewMetricsAdapter(m)

	adapter.RecordWorkflowSubmitted("high")
	adapter.RecordWorkflowFinished("completed", 2*time.Second)
	adapter.RecordStage("Extracting", 10*time.Millisecond, nil)
	adapter.RecordStage("Extracting", 10*time.Millisecond, errors.New("boom"))
	adapter.RecordStageRetry("Assessing", "dependency_unavailable")
	adapter.RecordRiskCategory("Critical")
	adapter.RecordViolation("OSHA 1910.269")
	adapter.SetActiveWorkflows(3)
	adapter.RecordCommand("status")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsSubmitted.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageErrors.WithLabelValues("Extracting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRetries.WithLabelValues("Assessing", "dependency_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskCategories.WithLabelValues("Critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("OSHA 1910.269")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveWorkflows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("status")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageLatency))
}

func TestMetrics_HTTP(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	m.ActiveRequestsInc("/api/v1/scans", "POST")
	m.ObserveRequest("/api/v1/scans", "POST", 202, 5*time.Millisecond)
	m.ActiveRequestsDec("/api/v1/scans", "POST")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/scans", "POST", "202")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPActiveRequests.WithLabelValues("/api/v1/scans", "POST")))
}

func TestZapLogger_AddsContextIDs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := monitoring.NewZapLoggerFrom(zap.New(core)).WithComponent("Orchestrator")

	ctx := context.WithValue(context.Background(), constants.ContextKeyScanID, "SCAN-1")
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, "req-9")
	log.Info(ctx, "stage advanced", logger.String("stage", "Assessing"))
	log.Error(ctx, "stage failed", errors.New("timeout"))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, "Orchestrator", first["component"])
	assert.Equal(t, "SCAN-1", first["scan_id"])
	assert.Equal(t, "req-9", first["request_id"])
	assert.Equal(t, "Assessing", first["stage"])
	assert.Equal(t, "timeout", logs.All()[1].ContextMap()["error"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	log.SetLevel("debug")
	log.Debug(context.Background(), "visible after level change")
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := monitoring.NewTracingManager(&config.TracingConfig{ServiceName: "astragrid"}, logger.NewNoopLogger())
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "scan")
	defer span.End()
	tm.RecordError(ctx, errors.New("ignored"))
	assert.Empty(t, tm.GetTraceID(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}
