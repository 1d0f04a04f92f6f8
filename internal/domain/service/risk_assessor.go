package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

// riskRule is one additive condition of the rule score.
type riskRule struct {
	factor string
	weight float64
	when   func(TemporalFeatures) bool
}

var riskRules = []riskRule{
	{"Rising temperature trend", 0.25, func(f TemporalFeatures) bool { return f.TemperatureTrend > 0.5 }},
	{"High temperature variability", 0.20, func(f TemporalFeatures) bool { return f.TemperatureStd > 5.0 }},
	{"Voltage instability", 0.30, func(f TemporalFeatures) bool { return f.VoltageStd > 5.0 }},
	{"Frequent current spikes", 0.25, func(f TemporalFeatures) bool { return f.CurrentSpikes > 10 }},
}

// ttfBand is the time-to-failure range, in hours, of a risk category.
type ttfBand struct{ low, high float64 }

var ttfBands = map[models.RiskCategory]ttfBand{
	models.RiskWarning:  {72, 240},
	models.RiskCritical: {12, 72},
}

// TimeToFailureEstimator picks a time-to-failure estimate for a category.
// It returns nil for categories without a band.
type TimeToFailureEstimator interface {
	Estimate(category models.RiskCategory) *float64
}

// MidpointTimeToFailure always returns the middle of the category's band.
type MidpointTimeToFailure struct{}

// Estimate implements TimeToFailureEstimator.
func (MidpointTimeToFailure) Estimate(category models.RiskCategory) *float64 {
	band, ok := ttfBands[category]
	if !ok {
		return nil
	}
	v := (band.low + band.high) / 2
	return &v
}

// SampledTimeToFailure draws uniformly inside the band from a seeded source.
type SampledTimeToFailure struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampledTimeToFailure creates a sampler; equal seeds give equal sequences.
func NewSampledTimeToFailure(seed int64) *SampledTimeToFailure {
	return &SampledTimeToFailure{rng: rand.New(rand.NewSource(seed))}
}

// Estimate implements TimeToFailureEstimator.
func (s *SampledTimeToFailure) Estimate(category models.RiskCategory) *float64 {
	band, ok := ttfBands[category]
	if !ok {
		return nil
	}
	s.mu.Lock()
	v := band.low + s.rng.Float64()*(band.high-band.low)
	s.mu.Unlock()
	return &v
}

// RiskAssessorOption configures a RuleRiskReasoner.
type RiskAssessorOption func(*RuleRiskReasoner)

// WithTimeToFailure replaces the midpoint estimator.
func WithTimeToFailure(est TimeToFailureEstimator) RiskAssessorOption {
	return func(r *RuleRiskReasoner) { r.ttf = est }
}

// WithDerivedConfidence derives the assessment confidence from extraction
// confidence and channel completeness instead of the fixed constant.
func WithDerivedConfidence() RiskAssessorOption {
	return func(r *RuleRiskReasoner) { r.deriveConfidence = true }
}

// WithClock overrides the assessment timestamp source.
func WithClock(now func() time.Time) RiskAssessorOption {
	return func(r *RuleRiskReasoner) { r.now = now }
}

// RuleRiskReasoner scores risk with fixed additive rules over temporal features.
type RuleRiskReasoner struct {
	ttf              TimeToFailureEstimator
	deriveConfidence bool
	now              func() time.Time
	logger           logger.Logger
}

// NewRuleRiskReasoner creates a reasoner with deterministic defaults.
func NewRuleRiskReasoner(log logger.Logger, opts ...RiskAssessorOption) *RuleRiskReasoner {
	r := &RuleRiskReasoner{
		ttf:    MidpointTimeToFailure{},
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithComponent("RiskReasoner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Assess implements RiskReasoner.
func (r *RuleRiskReasoner) Assess(ctx context.Context, reading models.Reading, series models.Series) (*models.RiskAssessment, error) {
	features := ExtractFeatures(reading, series)

	var score float64
	factors := make([]string, 0, len(riskRules))
	for _, rule := range riskRules {
		if rule.when(features) {
			score += rule.weight
			factors = append(factors, rule.factor)
		}
	}

	confidence := constants.DefaultAssessmentConfidence
	if r.deriveConfidence {
		confidence = reading.Confidence * features.Completeness
	}

	assessment := models.NewRiskAssessment(reading.ComponentID, score, factors, confidence, reading.CapturedAt, r.now())
	assessment.TimeToFailureHours = r.ttf.Estimate(assessment.Category())

	r.logger.Debug(ctx, "risk assessed",
		logger.String("component_id", reading.ComponentID),
		logger.Int("samples", features.Samples),
		logger.Float64("risk_score", assessment.RiskScore),
		logger.String("risk_category", string(assessment.Category())),
	)
	return assessment, nil
}
