package service

import (
	"context"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
)

// BoundingBox locates a text region inside a capture, in pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TextRegion is one OCR detection.
type TextRegion struct {
	Box                   BoundingBox `json:"bbox"`
	Text                  string      `json:"text"`
	Confidence            float64     `json:"confidence"`
	WeatheringCompensated bool        `json:"weathering_compensated"`
}

// GaugeType selects the calibration range of an analog gauge.
type GaugeType string

const (
	GaugeTemperature GaugeType = "temperature"
	GaugePressure    GaugeType = "pressure"
	GaugeVoltage     GaugeType = "voltage"
	GaugeCurrent     GaugeType = "current"
)

// GaugeObservation is the circular detector's raw output for one gauge.
type GaugeObservation struct {
	Type         GaugeType `json:"type"`
	Detected     bool      `json:"detected"`
	AngleDegrees float64   `json:"angle_degrees"`
}

// GaugeReading is a gauge observation mapped onto its calibrated range.
// Value is nil when the gauge was not detected.
type GaugeReading struct {
	Type       GaugeType `json:"type"`
	Value      *float64  `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error,omitempty"`
}

// Capture is one raw visual capture of a component as returned by the vision source.
type Capture struct {
	SectorID    string             `json:"sector_id"`
	ComponentID string             `json:"component_id"`
	Regions     []TextRegion       `json:"regions"`
	Gauges      []GaugeObservation `json:"gauges"`
	Position    models.Position    `json:"position"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// ExtractionResult is the structured output of the extraction stage.
type ExtractionResult struct {
	Reading        models.Reading `json:"reading"`
	Confidence     float64        `json:"confidence"`
	RequiresRescan bool           `json:"requires_rescan"`
	Regions        []TextRegion   `json:"regions"`
	Gauges         []GaugeReading `json:"gauges"`
}

// Standard is one entry of the compliance rule table.
type Standard struct {
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
}

//go:generate mockery --name CaptureSource --output mocks --outpkg mocks
// CaptureSource performs the slow external vision call for one component.
// CaptureSource 为单个组件执行外部视觉调用。
type CaptureSource interface {
	// Capture photographs and detects one component. A capture with no detections is
	// a valid result; only transport failures are errors.
	Capture(ctx context.Context, sectorID, componentID string) (*Capture, error)
}

//go:generate mockery --name Extractor --output mocks --outpkg mocks
// Extractor turns a raw capture into a structured reading with a confidence score.
// Extractor 将原始采集结果转换为带置信度的结构化读数。
type Extractor interface {
	// Extract never fails on a missing detection; it reports zero confidence instead.
	Extract(ctx context.Context, capture *Capture) (*ExtractionResult, error)
}

//go:generate mockery --name RiskReasoner --output mocks --outpkg mocks
// RiskReasoner combines a reading and its historical window into a risk assessment.
// RiskReasoner 结合读数与历史窗口生成风险评估。
type RiskReasoner interface {
	Assess(ctx context.Context, reading models.Reading, series models.Series) (*models.RiskAssessment, error)
}

//go:generate mockery --name ComplianceValidator --output mocks --outpkg mocks
// ComplianceValidator matches an assessment against the safety rule table.
// ComplianceValidator 将风险评估与安全规则表进行匹配。
type ComplianceValidator interface {
	// Audit is deterministic for a given (reading, assessment) pair.
	Audit(ctx context.Context, reading models.Reading, assessment *models.RiskAssessment) (*models.ComplianceRecord, error)

	// AuditBatch audits parallel lists pairwise, preserving order. Lists of
	// different lengths are rejected as malformed input.
	AuditBatch(ctx context.Context, readings []models.Reading, assessments []*models.RiskAssessment) ([]*models.ComplianceRecord, error)

	// Standards returns the rule table's regulation codes and descriptions.
	Standards() []Standard
}

//go:generate mockery --name TwinGateway --output mocks --outpkg mocks
// TwinGateway publishes finished assessments into the digital twin.
// TwinGateway 将完成的评估结果同步到数字孪生。
type TwinGateway interface {
	// Upsert replaces the twin state of the reading's component.
	Upsert(ctx context.Context, scanID string, reading models.Reading, record *models.ComplianceRecord, assessment *models.RiskAssessment) error

	// Components lists the twin components known in a sector.
	Components(ctx context.Context, sectorID string) ([]*models.TwinComponent, error)

	// Component returns the latest twin state of one component.
	Component(ctx context.Context, componentID string) (*models.TwinComponent, error)
}

//go:generate mockery --name EventPublisher --output mocks --outpkg mocks
// EventPublisher emits twin sync events to downstream consumers.
type EventPublisher interface {
	PublishTwinSync(ctx context.Context, event *models.TwinSyncEvent) error
	Close() error
}
