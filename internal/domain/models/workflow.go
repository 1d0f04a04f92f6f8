package models

import (
	"fmt"
	"time"
)

// Stage is the position of a workflow in the inspection pipeline.
type Stage string

const (
	StageQueued     Stage = "Queued"
	StageExtracting Stage = "Extracting"
	StageAssessing  Stage = "Assessing"
	StageAuditing   Stage = "Auditing"
	StageSyncing    Stage = "Syncing"
	StageCompleted  Stage = "Completed"
	StageFailed     Stage = "Failed"
)

var nextStage = map[Stage]Stage{
	StageQueued:     StageExtracting,
	StageExtracting: StageAssessing,
	StageAssessing:  StageAuditing,
	StageAuditing:   StageSyncing,
	StageSyncing:    StageCompleted,
}

// Next returns the stage that follows s, or "" for terminal stages.
func (s Stage) Next() Stage {
	return nextStage[s]
}

// IsTerminal reports whether no further transitions are possible.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Priority orders queued scans.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps an empty or unknown priority to medium.
func ParsePriority(p string) Priority {
	switch Priority(p) {
	case PriorityLow, PriorityHigh:
		return Priority(p)
	default:
		return PriorityMedium
	}
}

// ComponentResult holds the interim and final outputs for one component of a scan.
type ComponentResult struct {
	ComponentID          string            `json:"component_id"`
	Reading              *Reading          `json:"reading,omitempty"`
	ExtractionConfidence float64           `json:"extraction_confidence"`
	RescanAttempts       int               `json:"rescan_attempts"`
	Assessment           *RiskAssessment   `json:"assessment,omitempty"`
	Compliance           *ComplianceRecord `json:"compliance,omitempty"`
	Synced               bool              `json:"synced"`
}

// Workflow is the stateful execution of one scan request. Its stage only moves
// forward, or to Failed; a retry repeats the current stage without changing it.
type Workflow struct {
	ScanID       string                      `json:"scan_id"`
	SectorID     string                      `json:"sector"`
	Priority     Priority                    `json:"priority"`
	ComponentIDs []string                    `json:"component_ids"`
	Stage        Stage                       `json:"stage"`
	FailedStage  Stage                       `json:"failed_stage,omitempty"`
	FailureKind  string                      `json:"failure_kind,omitempty"`
	FailureCause string                      `json:"failure_cause,omitempty"`
	Retries      map[Stage]int               `json:"retries"`
	Results      map[string]*ComponentResult `json:"results"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// NewWorkflow creates a queued workflow.
func NewWorkflow(scanID, sectorID string, priority Priority, componentIDs []string, now time.Time) *Workflow {
	ids := make([]string, len(componentIDs))
	copy(ids, componentIDs)
	results := make(map[string]*ComponentResult, len(ids))
	for _, id := range ids {
		results[id] = &ComponentResult{ComponentID: id}
	}
	return &Workflow{
		ScanID:       scanID,
		SectorID:     sectorID,
		Priority:     priority,
		ComponentIDs: ids,
		Stage:        StageQueued,
		Retries:      make(map[Stage]int),
		Results:      results,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance moves the workflow to the stage after its current one.
func (w *Workflow) Advance(to Stage, now time.Time) error {
	if w.Stage.IsTerminal() {
		return fmt.Errorf("workflow %s: cannot advance from terminal stage %s", w.ScanID, w.Stage)
	}
	if w.Stage.Next() != to {
		return fmt.Errorf("workflow %s: illegal transition %s -> %s", w.ScanID, w.Stage, to)
	}
	w.Stage = to
	w.UpdatedAt = now
	return nil
}

// Fail moves a non-terminal workflow to Failed, remembering the stage it failed in.
// Results computed so far are kept.
func (w *Workflow) Fail(kind, cause string, now time.Time) error {
	if w.Stage.IsTerminal() {
		return fmt.Errorf("workflow %s: already %s", w.ScanID, w.Stage)
	}
	w.FailedStage = w.Stage
	w.FailureKind = kind
	w.FailureCause = cause
	w.Stage = StageFailed
	w.UpdatedAt = now
	return nil
}

// RecordRetry counts one more attempt of the current stage.
func (w *Workflow) RecordRetry(now time.Time) {
	w.Retries[w.Stage]++
	w.UpdatedAt = now
}

// Result returns the result slot for a component of this workflow.
func (w *Workflow) Result(componentID string) *ComponentResult {
	r, ok := w.Results[componentID]
	if !ok {
		r = &ComponentResult{ComponentID: componentID}
		w.Results[componentID] = r
	}
	return r
}

// IsTerminal reports whether the workflow reached Completed or Failed.
func (w *Workflow) IsTerminal() bool {
	return w.Stage.IsTerminal()
}

// Snapshot returns a deep copy safe to hand to readers.
func (w *Workflow) Snapshot() *Workflow {
	cp := *w
	cp.ComponentIDs = append([]string(nil), w.ComponentIDs...)
	cp.Retries = make(map[Stage]int, len(w.Retries))
	for k, v := range w.Retries {
		cp.Retries[k] = v
	}
	cp.Results = make(map[string]*ComponentResult, len(w.Results))
	for k, v := range w.Results {
		r := *v
		if v.Reading != nil {
			reading := *v.Reading
			r.Reading = &reading
		}
		if v.Assessment != nil {
			a := *v.Assessment
			a.RiskFactors = append([]string{}, v.Assessment.RiskFactors...)
			r.Assessment = &a
		}
		if v.Compliance != nil {
			c := *v.Compliance
			c.Violations = append([]Violation{}, v.Compliance.Violations...)
			r.Compliance = &c
		}
		cp.Results[k] = &r
	}
	return &cp
}
