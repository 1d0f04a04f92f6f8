package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
	"github.com/turtacn/astragrid/pkg/utils"
)

// ScanService is the part of the orchestrator the scan endpoints use.
type ScanService interface {
	Submit(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error)
	Status(ctx context.Context, scanID string) (*models.Workflow, error)
	List(ctx context.Context) []*models.Workflow
	Cancel(ctx context.Context, scanID string) (*models.Workflow, error)
}

// ScanHandler serves the scan submission and lookup API.
// ScanHandler 提供扫描提交与查询接口。
type ScanHandler struct {
	scans  ScanService
	logger logger.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(scans ScanService, log logger.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, logger: log.WithComponent("ScanHandler")}
}

// SubmitScan godoc
// @Summary      Submit a scan
// @Description  Queues a scan of a sector and returns its id immediately.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        request body dto.SubmitScanRequest true "Scan request"
// @Success      202  {object}  dto.APIResponse
// @Failure      400  {object}  dto.APIResponse
// @Failure      503  {object}  dto.APIResponse
// @Router       /api/v1/scans [post]
func (h *ScanHandler) SubmitScan(c *gin.Context) {
	var req dto.SubmitScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrMalformedInput("invalid request body").WithCause(err))
		return
	}
	if verr := utils.ValidateStruct(&req); verr != nil {
		respondError(c, verr)
		return
	}

	wf, err := h.scans.Submit(c.Request.Context(), req.Sector, req.ComponentIDs, models.ParsePriority(req.Priority))
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Scan submission rejected",
			logger.String("sector", req.Sector), logger.Error(err))
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, dto.NewSubmitScanResponse(wf))
}

// GetScan returns the current snapshot of one workflow.
func (h *ScanHandler) GetScan(c *gin.Context) {
	wf, err := h.scans.Status(c.Request.Context(), c.Param("scan_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, wf)
}

// ListScans lists live and archived workflows, newest first. An optional
// limit query parameter truncates the list.
func (h *ScanHandler) ListScans(c *gin.Context) {
	scans := h.scans.List(c.Request.Context())
	total := len(scans)
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, errors.ErrMalformedInput("limit must be a non-negative integer"))
			return
		}
		if limit < len(scans) {
			scans = scans[:limit]
		}
	}
	respond(c, http.StatusOK, dto.ScanListResponse{Scans: scans, Total: total})
}

// CancelScan cancels a live workflow.
func (h *ScanHandler) CancelScan(c *gin.Context) {
	wf, err := h.scans.Cancel(c.Request.Context(), c.Param("scan_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, wf)
}
