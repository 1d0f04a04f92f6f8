package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/turtacn/astragrid/internal/domain/models"
)

// readingRecord is one row of the append-only reading history.
type readingRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	ComponentID string    `gorm:"index:idx_readings_component_time,priority:1;size:128;not null"`
	SectorID    string    `gorm:"size:64"`
	Status      string    `gorm:"size:16"`
	Temperature float64 `gorm:"column:temperature_c"`
	Voltage     float64 `gorm:"column:voltage_v"`
	Current     float64 `gorm:"column:current_a"`
	PosX        float64
	PosY        float64
	PosZ        float64
	Confidence  float64
	Missing     uint8
	CapturedAt  time.Time `gorm:"index:idx_readings_component_time,priority:2;not null"`
}

func (readingRecord) TableName() string {
	return "readings"
}

func readingFromDomain(r models.Reading) *readingRecord {
	return &readingRecord{
		ComponentID: r.ComponentID,
		SectorID:    r.SectorID,
		Status:      string(r.Status),
		Temperature: r.Temperature,
		Voltage:     r.Voltage,
		Current:     r.Current,
		PosX:        r.Position.X,
		PosY:        r.Position.Y,
		PosZ:        r.Position.Z,
		Confidence:  r.Confidence,
		Missing:     uint8(r.Missing),
		CapturedAt:  r.CapturedAt.UTC(),
	}
}

func (rec *readingRecord) toDomain() models.Reading {
	return models.Reading{
		SectorID:    rec.SectorID,
		ComponentID: rec.ComponentID,
		Status:      models.ComponentStatus(rec.Status),
		Temperature: rec.Temperature,
		Voltage:     rec.Voltage,
		Current:     rec.Current,
		Position:    models.Position{X: rec.PosX, Y: rec.PosY, Z: rec.PosZ},
		Confidence:  rec.Confidence,
		CapturedAt:  rec.CapturedAt,
		Missing:     models.Channel(rec.Missing),
	}
}

// twinRecord is the database model for the twin_components table.
type twinRecord struct {
	ComponentID        string `gorm:"primaryKey;size:128"`
	SectorID           string `gorm:"index;size:64"`
	Status             string `gorm:"size:16"`
	Temperature        float64 `gorm:"column:temperature_c"`
	Voltage            float64 `gorm:"column:voltage_v"`
	Current            float64 `gorm:"column:current_a"`
	Position           datatypes.JSON
	OCRConfidence      float64
	RiskScore          float64
	RiskCategory       string `gorm:"size:16"`
	TimeToFailureHours *float64
	RiskFactors        datatypes.JSON
	Compliant          bool
	Violations         datatypes.JSON
	LastScanned        time.Time
	UpdatedAt          time.Time
}

func (twinRecord) TableName() string {
	return "twin_components"
}

func twinFromDomain(c *models.TwinComponent) (*twinRecord, error) {
	position, err := json.Marshal(c.Position)
	if err != nil {
		return nil, err
	}
	factors, err := json.Marshal(nonNilStrings(c.RiskFactors))
	if err != nil {
		return nil, err
	}
	violations := c.Violations
	if violations == nil {
		violations = []models.Violation{}
	}
	encodedViolations, err := json.Marshal(violations)
	if err != nil {
		return nil, err
	}
	return &twinRecord{
		ComponentID:        c.ComponentID,
		SectorID:           c.SectorID,
		Status:             string(c.Status),
		Temperature:        c.Temperature,
		Voltage:            c.Voltage,
		Current:            c.Current,
		Position:           datatypes.JSON(position),
		OCRConfidence:      c.OCRConfidence,
		RiskScore:          c.RiskScore,
		RiskCategory:       string(c.RiskCategory),
		TimeToFailureHours: c.TimeToFailureHours,
		RiskFactors:        datatypes.JSON(factors),
		Compliant:          c.Compliant,
		Violations:         datatypes.JSON(encodedViolations),
		LastScanned:        c.LastScanned.UTC(),
	}, nil
}

func (rec *twinRecord) toDomain() (*models.TwinComponent, error) {
	c := &models.TwinComponent{
		ComponentID:        rec.ComponentID,
		SectorID:           rec.SectorID,
		Status:             models.ComponentStatus(rec.Status),
		Temperature:        rec.Temperature,
		Voltage:            rec.Voltage,
		Current:            rec.Current,
		OCRConfidence:      rec.OCRConfidence,
		RiskScore:          rec.RiskScore,
		RiskCategory:       models.RiskCategory(rec.RiskCategory),
		TimeToFailureHours: rec.TimeToFailureHours,
		Compliant:          rec.Compliant,
		LastScanned:        rec.LastScanned,
		RiskFactors:        []string{},
		Violations:         []models.Violation{},
	}
	if len(rec.Position) > 0 {
		if err := json.Unmarshal(rec.Position, &c.Position); err != nil {
			return nil, err
		}
	}
	if len(rec.RiskFactors) > 0 {
		if err := json.Unmarshal(rec.RiskFactors, &c.RiskFactors); err != nil {
			return nil, err
		}
	}
	if len(rec.Violations) > 0 {
		if err := json.Unmarshal(rec.Violations, &c.Violations); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// scanRecord archives a terminal workflow. The full snapshot is kept as JSON,
// the indexed columns serve listing.
type scanRecord struct {
	ScanID    string `gorm:"primaryKey;size:128"`
	SectorID  string `gorm:"index;size:64"`
	Stage     string `gorm:"size:16"`
	Payload   datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (scanRecord) TableName() string {
	return "scans"
}

func scanFromDomain(w *models.Workflow) (*scanRecord, error) {
	payload, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return &scanRecord{
		ScanID:    w.ScanID,
		SectorID:  w.SectorID,
		Stage:     string(w.Stage),
		Payload:   datatypes.JSON(payload),
		CreatedAt: w.CreatedAt.UTC(),
		UpdatedAt: w.UpdatedAt.UTC(),
	}, nil
}

func (rec *scanRecord) toDomain() (*models.Workflow, error) {
	var w models.Workflow
	if err := json.Unmarshal(rec.Payload, &w); err != nil {
		return nil, err
	}
	if w.Retries == nil {
		w.Retries = make(map[models.Stage]int)
	}
	if w.Results == nil {
		w.Results = make(map[string]*models.ComponentResult)
	}
	return &w, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
