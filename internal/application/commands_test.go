package application_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/astragrid/internal/application"
	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/internal/domain/models"
)

func TestHandleCommand_PassthroughAcknowledges(t *testing.T) {
	o := application.NewOrchestrator(testConfig(), newHarness(t).deps)

	resp := o.HandleCommand(context.Background(), dto.Command{Type: "ping", Payload: json.RawMessage(`[1,2]`)})

	assert.Equal(t, "executed", resp.Status)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping","status":"executed","result":{}}`, string(raw))
}

func TestHandleCommand_StatusListsAgentsAndWorkflows(t *testing.T) {
	o := application.NewOrchestrator(testConfig(), newHarness(t).deps)
	wf, err := o.Submit(context.Background(), sector, []string{"X"}, "")
	require.NoError(t, err)

	resp := o.HandleCommand(context.Background(), dto.Command{Type: "status"})
	require.Equal(t, "ok", resp.Status)
	result, ok := resp.Result.(dto.StatusResult)
	require.True(t, ok)
	require.Len(t, result.Agents, 4)
	assert.Equal(t, "Infrastructure Scout", result.Agents[0].Name)
	assert.Equal(t, "idle", result.Agents[0].Status)
	workflows := result.Workflows.([]*models.Workflow)
	require.Len(t, workflows, 1)
	assert.Equal(t, wf.ScanID, workflows[0].ScanID)

	one := o.HandleCommand(context.Background(), dto.Command{Type: "status", ScanID: wf.ScanID})
	assert.Equal(t, "ok", one.Status)
	assert.Equal(t, wf.ScanID, one.Result.(*models.Workflow).ScanID)
}

func TestHandleCommand_ExecuteWithPayload(t *testing.T) {
	h := newHarness(t)
	id := sector + "-COMP-001"
	h.twin.On("Components", mock.Anything, sector).Return(nil, nil)
	h.capture.On("Capture", mock.Anything, sector, id).Return(capture(id, 0.95), nil)
	h.history.On("GetSeries", mock.Anything, id, mock.Anything).Return(models.Series{}, nil)
	h.history.On("Append", mock.Anything, mock.Anything).Return(nil)
	h.twin.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	o := h.start(t, testConfig())

	resp := o.HandleCommand(waitCtx(t), dto.Command{Type: "execute", RequestID: "r-1", Payload: json.RawMessage(`{"sector":"B4-SECTOR-01"}`)})

	require.Equal(t, "ok", resp.Status, "error: %+v", resp.Error)
	assert.Equal(t, "r-1", resp.RequestID)
	result := resp.Result.(*dto.ExecuteResult)
	assert.Equal(t, models.StageCompleted, result.WorkflowStatus)
	assert.Equal(t, 1, result.ComponentsAnalyzed)
	assert.Equal(t, 0, result.Violations)
	h.twin.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestHandleCommand_Errors(t *testing.T) {
	o := application.NewOrchestrator(testConfig(), newHarness(t).deps)

	resp := o.HandleCommand(context.Background(), dto.Command{Type: "cancel"})
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "malformed_input", resp.Error.Code)

	resp = o.HandleCommand(context.Background(), dto.Command{Type: "cancel", ScanID: "SCAN-missing"})
	assert.Equal(t, "not_found", resp.Error.Code)

	resp = o.HandleCommand(context.Background(), dto.Command{Type: "execute", Sector: "nope"})
	assert.Equal(t, "malformed_input", resp.Error.Code)

	resp = o.HandleCommand(context.Background(), dto.Command{Type: "status", Payload: json.RawMessage(`"x"`)})
	assert.Equal(t, "malformed_input", resp.Error.Code)
}
