package service

import (
	"context"
	"strings"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

// gaugeCalibration is the linear value range of a gauge type across its sweep.
type gaugeCalibration struct {
	min, max float64
	unit     string
}

var gaugeCalibrations = map[GaugeType]gaugeCalibration{
	GaugeTemperature: {min: -20, max: 120, unit: "°C"},
	GaugePressure:    {min: 0, max: 300, unit: "psi"},
	GaugeVoltage:     {min: 0, max: 600, unit: "V"},
	GaugeCurrent:     {min: 0, max: 100, unit: "A"},
}

var defaultCalibration = gaugeCalibration{min: 0, max: 100}

const gaugeNotDetected = "Gauge not detected"

// RuleExtractor is the deterministic extraction stage. It averages region and
// gauge confidences and gates the result on the acceptance threshold.
type RuleExtractor struct {
	threshold float64
	logger    logger.Logger
}

// NewRuleExtractor creates an extractor using the default acceptance threshold.
func NewRuleExtractor(log logger.Logger) *RuleExtractor {
	return &RuleExtractor{
		threshold: constants.ExtractionConfidenceThreshold,
		logger:    log.WithComponent("Extractor"),
	}
}

// Extract implements Extractor.
func (e *RuleExtractor) Extract(ctx context.Context, capture *Capture) (*ExtractionResult, error) {
	regions := make([]TextRegion, len(capture.Regions))
	texts := make([]string, 0, len(capture.Regions))
	var sum float64
	var n int
	for i, r := range capture.Regions {
		r.WeatheringCompensated = r.Confidence < constants.WeatheringConfidenceFloor
		regions[i] = r
		texts = append(texts, r.Text)
		sum += r.Confidence
		n++
	}

	reading := models.Reading{
		SectorID:    capture.SectorID,
		ComponentID: capture.ComponentID,
		Status:      ParseStatus(strings.Join(texts, " ")),
		Position:    capture.Position,
		CapturedAt:  capture.CapturedAt,
		Missing:     models.ChannelTemperature | models.ChannelVoltage | models.ChannelCurrent,
	}

	gauges := make([]GaugeReading, 0, len(capture.Gauges))
	for _, g := range capture.Gauges {
		gr := ReadGauge(g)
		gauges = append(gauges, gr)
		sum += gr.Confidence
		n++
		if gr.Value == nil {
			continue
		}
		switch g.Type {
		case GaugeTemperature:
			reading.Temperature = *gr.Value
			reading.Missing &^= models.ChannelTemperature
		case GaugeVoltage:
			reading.Voltage = *gr.Value
			reading.Missing &^= models.ChannelVoltage
		case GaugeCurrent:
			reading.Current = *gr.Value
			reading.Missing &^= models.ChannelCurrent
		}
	}

	var confidence float64
	if n > 0 {
		confidence = sum / float64(n)
	}
	reading.Confidence = confidence

	result := &ExtractionResult{
		Reading:        reading,
		Confidence:     confidence,
		RequiresRescan: confidence < e.threshold,
		Regions:        regions,
		Gauges:         gauges,
	}
	if result.RequiresRescan {
		e.logger.Debug(ctx, "extraction below acceptance threshold",
			logger.String("component_id", capture.ComponentID),
			logger.Float64("confidence", confidence),
			logger.Int("detections", n),
		)
	}
	return result, nil
}

// ReadGauge maps a detector angle onto the gauge's calibrated range. An undetected
// gauge or an angle outside the sweep yields zero confidence and no value.
func ReadGauge(obs GaugeObservation) GaugeReading {
	cal, ok := gaugeCalibrations[obs.Type]
	if !ok {
		cal = defaultCalibration
	}
	out := GaugeReading{Type: obs.Type, Unit: cal.unit}
	// written as a range check so NaN angles are rejected too
	if a := obs.AngleDegrees; !obs.Detected || !(a >= 0 && a <= constants.GaugeSweepDegrees) {
		out.Error = gaugeNotDetected
		return out
	}
	value := cal.min + (obs.AngleDegrees/constants.GaugeSweepDegrees)*(cal.max-cal.min)
	out.Value = &value
	out.Confidence = constants.GaugeDetectionConfidence
	return out
}

// ParseStatus recovers the component status from label text.
func ParseStatus(text string) models.ComponentStatus {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "fault"), strings.Contains(t, "failure"):
		return models.StatusFault
	case strings.Contains(t, "degraded"), strings.Contains(t, "warning"):
		return models.StatusDegraded
	default:
		return models.StatusNormal
	}
}
