package dto

import (
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
)

// SubmitScanRequest 扫描提交请求
type SubmitScanRequest struct {
	Sector       string   `json:"sector" binding:"required" validate:"required,sector"`
	Priority     string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	ComponentIDs []string `json:"component_ids,omitempty" validate:"omitempty,dive,required"`
}

// SubmitScanResponse 扫描提交响应
type SubmitScanResponse struct {
	ScanID          string          `json:"scan_id"`
	Sector          string          `json:"sector"`
	ComponentsFound int             `json:"components_found"`
	Priority        models.Priority `json:"priority"`
	Status          models.Stage    `json:"status"`
}

// NewSubmitScanResponse builds the response from the queued workflow.
func NewSubmitScanResponse(w *models.Workflow) *SubmitScanResponse {
	return &SubmitScanResponse{
		ScanID:          w.ScanID,
		Sector:          w.SectorID,
		ComponentsFound: len(w.ComponentIDs),
		Priority:        w.Priority,
		Status:          w.Stage,
	}
}

// ScanListResponse 扫描列表响应
type ScanListResponse struct {
	Scans []*models.Workflow `json:"scans"`
	Total int                `json:"total"`
}

// ExecuteResult summarises a synchronously executed workflow.
type ExecuteResult struct {
	ScanID             string           `json:"scan_id"`
	Sector             string           `json:"sector"`
	WorkflowStatus     models.Stage     `json:"workflow_status"`
	FailedStage        models.Stage     `json:"failed_stage,omitempty"`
	FailureCause       string           `json:"failure_cause,omitempty"`
	Violations         int              `json:"violations"`
	ComponentsAnalyzed int              `json:"components_analyzed"`
	Workflow           *models.Workflow `json:"workflow"`
	Duration           time.Duration    `json:"duration_ns"`
}

// NewExecuteResult summarises a terminal workflow.
func NewExecuteResult(w *models.Workflow) *ExecuteResult {
	res := &ExecuteResult{
		ScanID:         w.ScanID,
		Sector:         w.SectorID,
		WorkflowStatus: w.Stage,
		FailedStage:    w.FailedStage,
		FailureCause:   w.FailureCause,
		Workflow:       w,
		Duration:       w.UpdatedAt.Sub(w.CreatedAt),
	}
	for _, r := range w.Results {
		if r.Assessment != nil {
			res.ComponentsAnalyzed++
		}
		if r.Compliance != nil {
			res.Violations += len(r.Compliance.Violations)
		}
	}
	return res
}
