package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TwinComponent is the digital twin's mirror of a component's latest known state.
type TwinComponent struct {
	ComponentID        string          `json:"component_id"`
	SectorID           string          `json:"sector"`
	Status             ComponentStatus `json:"status"`
	Temperature        float64         `json:"temperature_c"`
	Voltage            float64         `json:"voltage_v"`
	Current            float64         `json:"current_a"`
	Position           Position        `json:"position"`
	OCRConfidence      float64         `json:"ocr_confidence"`
	RiskScore          float64         `json:"risk_score"`
	RiskCategory       RiskCategory    `json:"risk_category"`
	TimeToFailureHours *float64        `json:"time_to_failure_hours"`
	RiskFactors        []string        `json:"risk_factors"`
	Compliant          bool            `json:"compliant"`
	Violations         []Violation     `json:"violations"`
	LastScanned        time.Time       `json:"last_scanned"`
}

// NewTwinComponent folds a finished pipeline run into twin state.
func NewTwinComponent(reading *Reading, record *ComplianceRecord, assessment *RiskAssessment) *TwinComponent {
	return &TwinComponent{
		ComponentID:        reading.ComponentID,
		SectorID:           reading.SectorID,
		Status:             reading.Status,
		Temperature:        reading.Temperature,
		Voltage:            reading.Voltage,
		Current:            reading.Current,
		Position:           reading.Position,
		OCRConfidence:      reading.Confidence,
		RiskScore:          assessment.RiskScore,
		RiskCategory:       assessment.Category(),
		TimeToFailureHours: assessment.TimeToFailureHours,
		RiskFactors:        assessment.RiskFactors,
		Compliant:          record.Compliant(),
		Violations:         record.Violations,
		LastScanned:        reading.CapturedAt,
	}
}

// TwinSyncEvent is published after a component's twin state was upserted.
type TwinSyncEvent struct {
	EventID      uuid.UUID       `json:"event_id"`
	ScanID       string          `json:"scan_id"`
	SectorID     string          `json:"sector"`
	ComponentID  string          `json:"component_id"`
	RiskScore    float64         `json:"risk_score"`
	RiskCategory RiskCategory    `json:"risk_category"`
	Compliant    bool            `json:"compliant"`
	Citations    []string        `json:"regulatory_citations"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewTwinSyncEvent creates a new sync event for a twin component.
func NewTwinSyncEvent(component *TwinComponent) *TwinSyncEvent {
	citations := make([]string, 0, len(component.Violations))
	for _, v := range component.Violations {
		citations = append(citations, v.RegulationCode)
	}
	return &TwinSyncEvent{
		EventID:      uuid.New(),
		SectorID:     component.SectorID,
		ComponentID:  component.ComponentID,
		RiskScore:    component.RiskScore,
		RiskCategory: component.RiskCategory,
		Compliant:    component.Compliant,
		Citations:    citations,
		Timestamp:    time.Now().UTC(),
	}
}

// WithScan sets the scan that produced the event.
func (e *TwinSyncEvent) WithScan(scanID string) *TwinSyncEvent {
	e.ScanID = scanID
	return e
}

// WithMetadata sets JSON metadata for the event.
func (e *TwinSyncEvent) WithMetadata(data interface{}) *TwinSyncEvent {
	jsonData, err := json.Marshal(data)
	if err == nil {
		e.Metadata = jsonData
	}
	return e
}

//Personal.AI order the ending
