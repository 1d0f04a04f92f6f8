package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
	"github.com/turtacn/astragrid/pkg/utils"
)

// AgentService is the part of the orchestrator the agent endpoints use.
type AgentService interface {
	Agents() []dto.AgentStatus
	Execute(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error)
	HandleCommand(ctx context.Context, cmd dto.Command) *dto.CommandResponse
}

// AgentHandler serves the agent roster, synchronous execution and the live
// command channel.
// AgentHandler 提供代理状态、同步执行和实时命令通道。
type AgentHandler struct {
	agents   AgentService
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(agents AgentService, cfg config.WebSocketConfig, log logger.Logger) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.WithComponent("AgentHandler"),
	}
}

// Status reports every pipeline agent as busy or idle.
func (h *AgentHandler) Status(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"agents": h.agents.Agents()})
}

// Execute runs a scan to completion and returns its summary.
// The request blocks until the workflow is terminal or the client goes away.
func (h *AgentHandler) Execute(c *gin.Context) {
	var req dto.SubmitScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrMalformedInput("invalid request body").WithCause(err))
		return
	}
	if verr := utils.ValidateStruct(&req); verr != nil {
		respondError(c, verr)
		return
	}

	wf, err := h.agents.Execute(c.Request.Context(), req.Sector, req.ComponentIDs, models.ParsePriority(req.Priority))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewExecuteResult(wf))
}

// wsConn serialises writes to one websocket connection.
type wsConn struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

func (w *wsConn) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteJSON(v)
}

// Commands upgrades the request to a websocket and serves commands until the
// client disconnects. Each command runs in its own goroutine so a long execute
// does not block the next command; the connection is rate limited per client.
func (h *AgentHandler) Commands(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Websocket upgrade failed", logger.Error(err))
		return
	}
	connID := uuid.NewString()
	log := h.logger.WithFields(logger.String("connection_id", connID))

	// The server's read deadline survives the hijack; clear it for the long-lived channel.
	_ = conn.SetReadDeadline(time.Time{})
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}
	out := &wsConn{conn: conn, writeTimeout: h.cfg.WriteTimeout}
	limiter := rate.NewLimiter(rate.Limit(h.cfg.CommandsPerSecond), h.cfg.Burst)

	// The connection context outlives the upgrade request and ends on disconnect.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		_ = conn.Close()
		log.Info(ctx, "Command channel closed")
	}()
	log.Info(ctx, "Command channel opened", logger.String("remote", c.ClientIP()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn(ctx, "Command channel read failed", logger.Error(err))
			}
			return
		}

		var cmd dto.Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type == "" {
			resp := commandError(errors.ErrMalformedInput("command must be a JSON object with a type"))
			if err := out.send(resp); err != nil {
				return
			}
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		wg.Add(1)
		go func(cmd dto.Command) {
			defer wg.Done()
			resp := h.agents.HandleCommand(ctx, cmd)
			if err := out.send(resp); err != nil {
				log.Warn(ctx, "Command response not delivered",
					logger.String("type", cmd.Type), logger.Error(err))
			}
		}(cmd)
	}
}

func commandError(err error) *dto.CommandResponse {
	return &dto.CommandResponse{
		Status: "error",
		Result: map[string]interface{}{},
		Error:  dto.ErrorResponse(err, "").Error,
	}
}
