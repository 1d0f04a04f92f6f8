package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/turtacn/astragrid/pkg/constants"
)

// RiskCategory is the coarse classification of a risk score.
type RiskCategory string

const (
	RiskStable   RiskCategory = "Stable"
	RiskWarning  RiskCategory = "Warning"
	RiskCritical RiskCategory = "Critical"
)

// CategoryForScore maps a risk score to its category. Both thresholds are
// inclusive toward the higher category.
func CategoryForScore(score float64) RiskCategory {
	switch {
	case score >= constants.RiskCriticalThreshold:
		return RiskCritical
	case score >= constants.RiskWarningThreshold:
		return RiskWarning
	default:
		return RiskStable
	}
}

// ClampScore bounds a raw rule score into [0,1]. NaN is treated as 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return math.Min(score, 1)
}

// RiskAssessment is the derived risk of one component at a point in time.
// An assessment is never edited; a newer one supersedes it. The category is
// derived from the score and cannot be set independently.
type RiskAssessment struct {
	ComponentID        string    `json:"component_id"`
	RiskScore          float64   `json:"risk_score"`
	TimeToFailureHours *float64  `json:"time_to_failure_hours"`
	RiskFactors        []string  `json:"risk_factors"`
	Confidence         float64   `json:"prediction_confidence"`
	ReadingCapturedAt  time.Time `json:"reading_captured_at"`
	AssessedAt         time.Time `json:"assessed_at"`
}

// NewRiskAssessment builds an assessment with the score clamped into [0,1].
func NewRiskAssessment(componentID string, rawScore float64, factors []string, confidence float64, readingAt, assessedAt time.Time) *RiskAssessment {
	if factors == nil {
		factors = []string{}
	}
	return &RiskAssessment{
		ComponentID:       componentID,
		RiskScore:         ClampScore(rawScore),
		RiskFactors:       factors,
		Confidence:        confidence,
		ReadingCapturedAt: readingAt,
		AssessedAt:        assessedAt,
	}
}

// Category returns the category derived from the risk score.
func (a *RiskAssessment) Category() RiskCategory {
	return CategoryForScore(a.RiskScore)
}

// MarshalJSON adds the derived category to the encoded assessment.
func (a RiskAssessment) MarshalJSON() ([]byte, error) {
	type alias RiskAssessment
	return json.Marshal(struct {
		alias
		RiskCategory RiskCategory `json:"risk_category"`
	}{alias: alias(a), RiskCategory: CategoryForScore(a.RiskScore)})
}
