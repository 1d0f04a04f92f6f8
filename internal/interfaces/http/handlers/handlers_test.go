package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/internal/interfaces/http/handlers"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Submit(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error) {
	args := m.Called(ctx, sectorID, componentIDs, priority)
	wf, _ := args.Get(0).(*models.Workflow)
	return wf, args.Error(1)
}

func (m *MockScanService) Status(ctx context.Context, scanID string) (*models.Workflow, error) {
	args := m.Called(ctx, scanID)
	wf, _ := args.Get(0).(*models.Workflow)
	return wf, args.Error(1)
}

func (m *MockScanService) List(ctx context.Context) []*models.Workflow {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Workflow)
}

func (m *MockScanService) Cancel(ctx context.Context, scanID string) (*models.Workflow, error) {
	args := m.Called(ctx, scanID)
	wf, _ := args.Get(0).(*models.Workflow)
	return wf, args.Error(1)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.APIResponse {
	t.Helper()
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func scanRouter(svc handlers.ScanService) *gin.Engine {
	h := handlers.NewScanHandler(svc, logger.NewNoopLogger())
	r := gin.New()
	r.POST("/scans", h.SubmitScan)
	r.GET("/scans", h.ListScans)
	r.GET("/scans/:scan_id", h.GetScan)
	r.DELETE("/scans/:scan_id", h.CancelScan)
	return r
}

func TestSubmitScan_Accepted(t *testing.T) {
	svc := new(MockScanService)
	wf := models.NewWorkflow("SCAN-B4-SECTOR-01-20240101000000-abcd1234", "B4-SECTOR-01", models.PriorityHigh, []string{"C1", "C2"}, time.Now())
	svc.On("Submit", mock.Anything, "B4-SECTOR-01", []string(nil), models.PriorityHigh).Return(wf, nil)

	w := httptest.NewRecorder()
	body := `{"sector":"B4-SECTOR-01","priority":"high"}`
	scanRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, wf.ScanID, data["scan_id"])
	assert.Equal(t, 2.0, data["components_found"])
	assert.Equal(t, "Queued", data["status"])
	svc.AssertExpectations(t)
}

func TestSubmitScan_RejectsMalformedSector(t *testing.T) {
	svc := new(MockScanService)

	w := httptest.NewRecorder()
	scanRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{"sector":"sector one"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, string(errors.KindMalformedInput), resp.Error.Code)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitScan_RejectsInvalidJSON(t *testing.T) {
	w := httptest.NewRecorder()
	scanRouter(new(MockScanService)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitScan_QueueFull(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Submit", mock.Anything, "B4-SECTOR-01", []string{"C1"}, models.PriorityMedium).Return(nil, errors.ErrQueueFull(1))

	w := httptest.NewRecorder()
	body := `{"sector":"B4-SECTOR-01","component_ids":["C1"]}`
	scanRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(errors.KindDependencyUnavailable), decode(t, w).Error.Code)
}

func TestGetScan(t *testing.T) {
	svc := new(MockScanService)
	wf := models.NewWorkflow("SCAN-1", "B4-SECTOR-01", models.PriorityMedium, []string{"C1"}, time.Now())
	svc.On("Status", mock.Anything, "SCAN-1").Return(wf, nil)
	svc.On("Status", mock.Anything, "SCAN-404").Return(nil, errors.ErrScanNotFound("SCAN-404"))
	r := scanRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/SCAN-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SCAN-1", decode(t, w).Data.(map[string]interface{})["scan_id"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/SCAN-404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.KindNotFound), decode(t, w).Error.Code)
}

func TestListScans_Limit(t *testing.T) {
	svc := new(MockScanService)
	now := time.Now()
	svc.On("List", mock.Anything).Return([]*models.Workflow{
		models.NewWorkflow("SCAN-2", "B4-SECTOR-01", models.PriorityMedium, nil, now),
		models.NewWorkflow("SCAN-1", "B4-SECTOR-01", models.PriorityMedium, nil, now),
	})
	r := scanRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Len(t, data["scans"], 1)
	assert.Equal(t, 2.0, data["total"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelScan_Terminal(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Cancel", mock.Anything, "SCAN-1").Return(nil, errors.ErrWorkflowTerminal("SCAN-1", "Completed"))

	w := httptest.NewRecorder()
	scanRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/scans/SCAN-1", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

type fakeAgents struct {
	handled chan dto.Command
}

func (f *fakeAgents) Agents() []dto.AgentStatus {
	return []dto.AgentStatus{{Name: "Infrastructure Scout", Role: "extraction", Status: "idle"}}
}

func (f *fakeAgents) Execute(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error) {
	now := time.Now()
	wf := models.NewWorkflow("SCAN-X", sectorID, priority, []string{"C1"}, now)
	wf.Stage = models.StageCompleted
	return wf, nil
}

func (f *fakeAgents) HandleCommand(ctx context.Context, cmd dto.Command) *dto.CommandResponse {
	if f.handled != nil {
		f.handled <- cmd
	}
	return &dto.CommandResponse{Type: cmd.Type, RequestID: cmd.RequestID, Status: "ok", Result: map[string]interface{}{}}
}

func agentRouter(agents handlers.AgentService) *gin.Engine {
	h := handlers.NewAgentHandler(agents, config.WebSocketConfig{
		CommandsPerSecond: 100,
		Burst:             10,
		WriteTimeout:      time.Second,
		MaxMessageBytes:   1 << 16,
	}, logger.NewNoopLogger())
	r := gin.New()
	r.GET("/agents/status", h.Status)
	r.POST("/agents/execute", h.Execute)
	r.GET("/agents/ws", h.Commands)
	return r
}

func TestAgentStatus(t *testing.T) {
	w := httptest.NewRecorder()
	agentRouter(&fakeAgents{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agents/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	agents := decode(t, w).Data.(map[string]interface{})["agents"].([]interface{})
	assert.Len(t, agents, 1)
}

func TestAgentExecute(t *testing.T) {
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"sector":"B4-SECTOR-01"}`)
	agentRouter(&fakeAgents{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/agents/execute", body))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "Completed", data["workflow_status"])
	assert.Equal(t, "B4-SECTOR-01", data["sector"])
}

func TestAgentCommands_WebSocket(t *testing.T) {
	agents := &fakeAgents{handled: make(chan dto.Command, 1)}
	srv := httptest.NewServer(agentRouter(agents))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/agents/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var bad dto.CommandResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "error", bad.Status)
	require.NotNil(t, bad.Error)
	assert.Equal(t, string(errors.KindMalformedInput), bad.Error.Code)

	require.NoError(t, conn.WriteJSON(dto.Command{Type: "status", RequestID: "r-1"}))
	var ok dto.CommandResponse
	require.NoError(t, conn.ReadJSON(&ok))
	assert.Equal(t, "ok", ok.Status)
	assert.Equal(t, "r-1", ok.RequestID)
	assert.Equal(t, "status", (<-agents.handled).Type)
}

type fakeTwin struct {
	components map[string]*models.TwinComponent
}

func (f *fakeTwin) Components(ctx context.Context, sectorID string) ([]*models.TwinComponent, error) {
	var out []*models.TwinComponent
	for _, c := range f.components {
		if sectorID == "" || c.SectorID == sectorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeTwin) Component(ctx context.Context, componentID string) (*models.TwinComponent, error) {
	c, ok := f.components[componentID]
	if !ok {
		return nil, errors.ErrComponentNotFound(componentID)
	}
	return c, nil
}

type fakeStandards []service.Standard

func (f fakeStandards) Standards() []service.Standard { return f }

func twinRouter() *gin.Engine {
	twin := &fakeTwin{components: map[string]*models.TwinComponent{
		"C1": {ComponentID: "C1", SectorID: "B4-SECTOR-01", RiskCategory: models.RiskCritical},
	}}
	h := handlers.NewTwinHandler(twin, fakeStandards{{Code: "OSHA 1910.269", Description: "Electric power generation"}})
	r := gin.New()
	r.GET("/twin/components", h.ListComponents)
	r.GET("/twin/components/:component_id", h.GetComponent)
	r.GET("/compliance/standards", h.ListStandards)
	return r
}

func TestTwinHandler(t *testing.T) {
	r := twinRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/twin/components?sector=B4-SECTOR-01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w).Data.(map[string]interface{})["total"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/twin/components?sector=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/twin/components/C1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Critical", decode(t, w).Data.(map[string]interface{})["risk_category"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/twin/components/C9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/compliance/standards", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OSHA 1910.269")
}

type checkerFunc func(ctx context.Context) (map[string]interface{}, error)

func (f checkerFunc) HealthCheck(ctx context.Context) (map[string]interface{}, error) { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := checkerFunc(func(ctx context.Context) (map[string]interface{}, error) { return nil, nil })
	broken := checkerFunc(func(ctx context.Context) (map[string]interface{}, error) {
		return nil, errors.ErrDependencyUnavailable("redis", nil)
	})

	h := handlers.NewHealthHandler(map[string]handlers.HealthChecker{"database": healthy}, logger.NewNoopLogger())
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	h = handlers.NewHealthHandler(map[string]handlers.HealthChecker{"database": healthy, "redis": broken}, logger.NewNoopLogger())
	r = gin.New()
	r.GET("/health", h.HealthCheck)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unavailable")
}
