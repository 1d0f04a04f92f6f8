package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/logger"
)

func newCapture(regions []service.TextRegion, gauges []service.GaugeObservation) *service.Capture {
	return &service.Capture{
		SectorID:    "B4-SECTOR-01",
		ComponentID: "B4-SECTOR-01-COMP-001",
		Regions:     regions,
		Gauges:      gauges,
		CapturedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRuleExtractor_FullCapture(t *testing.T) {
	e := service.NewRuleExtractor(logger.NewNoopLogger())
	capture := newCapture(
		[]service.TextRegion{{Text: "Component Status: Normal, Serial: SN-12345", Confidence: 0.9}},
		[]service.GaugeObservation{
			{Type: service.GaugeTemperature, Detected: true, AngleDegrees: 135},
			{Type: service.GaugeVoltage, Detected: true, AngleDegrees: 90},
			{Type: service.GaugeCurrent, Detected: true, AngleDegrees: 27},
		},
	)

	res, err := e.Extract(context.Background(), capture)
	require.NoError(t, err)

	assert.InDelta(t, 0.915, res.Confidence, 1e-9)
	assert.False(t, res.RequiresRescan)
	assert.Equal(t, models.StatusNormal, res.Reading.Status)
	assert.InDelta(t, 50.0, res.Reading.Temperature, 1e-9)
	assert.InDelta(t, 200.0, res.Reading.Voltage, 1e-9)
	assert.InDelta(t, 10.0, res.Reading.Current, 1e-9)
	assert.Equal(t, models.Channel(0), res.Reading.Missing)
	assert.Equal(t, res.Confidence, res.Reading.Confidence)
	assert.Equal(t, capture.CapturedAt, res.Reading.CapturedAt)
}

func TestRuleExtractor_NoDetectionsIsZeroConfidence(t *testing.T) {
	e := service.NewRuleExtractor(logger.NewNoopLogger())

	res, err := e.Extract(context.Background(), newCapture(nil, nil))
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Confidence)
	assert.True(t, res.RequiresRescan)
	assert.False(t, res.Reading.Has(models.ChannelTemperature))
	assert.False(t, res.Reading.Has(models.ChannelVoltage))
	assert.False(t, res.Reading.Has(models.ChannelCurrent))
}

func TestRuleExtractor_ThresholdIsInclusive(t *testing.T) {
	e := service.NewRuleExtractor(logger.NewNoopLogger())

	at, err := e.Extract(context.Background(), newCapture([]service.TextRegion{{Text: "ok", Confidence: 0.85}}, nil))
	require.NoError(t, err)
	assert.False(t, at.RequiresRescan)

	below, err := e.Extract(context.Background(), newCapture([]service.TextRegion{{Text: "ok", Confidence: 0.8499}}, nil))
	require.NoError(t, err)
	assert.True(t, below.RequiresRescan)
}

func TestRuleExtractor_UndetectedGaugeLowersConfidence(t *testing.T) {
	e := service.NewRuleExtractor(logger.NewNoopLogger())
	capture := newCapture(
		[]service.TextRegion{{Text: "Status: Fault", Confidence: 0.95}},
		[]service.GaugeObservation{
			{Type: service.GaugeTemperature, Detected: true, AngleDegrees: 135},
			{Type: service.GaugeCurrent, Detected: false},
		},
	)

	res, err := e.Extract(context.Background(), capture)
	require.NoError(t, err)

	assert.InDelta(t, (0.95+0.92)/3, res.Confidence, 1e-9)
	assert.True(t, res.RequiresRescan)
	assert.Equal(t, models.StatusFault, res.Reading.Status)
	assert.False(t, res.Reading.Has(models.ChannelCurrent))
	require.Len(t, res.Gauges, 2)
	assert.Nil(t, res.Gauges[1].Value)
	assert.Equal(t, "Gauge not detected", res.Gauges[1].Error)
}

func TestRuleExtractor_WeatheringFlag(t *testing.T) {
	e := service.NewRuleExtractor(logger.NewNoopLogger())
	res, err := e.Extract(context.Background(), newCapture([]service.TextRegion{
		{Text: "worn", Confidence: 0.65},
		{Text: "clear", Confidence: 0.7},
	}, nil))
	require.NoError(t, err)

	assert.True(t, res.Regions[0].WeatheringCompensated)
	assert.False(t, res.Regions[1].WeatheringCompensated)
}

func TestReadGauge(t *testing.T) {
	cases := []struct {
		name  string
		obs   service.GaugeObservation
		value *float64
		conf  float64
	}{
		{"temperature low end", service.GaugeObservation{Type: service.GaugeTemperature, Detected: true, AngleDegrees: 0}, ptr(-20), 0.92},
		{"temperature full sweep", service.GaugeObservation{Type: service.GaugeTemperature, Detected: true, AngleDegrees: 270}, ptr(120), 0.92},
		{"pressure", service.GaugeObservation{Type: service.GaugePressure, Detected: true, AngleDegrees: 135}, ptr(150), 0.92},
		{"voltage", service.GaugeObservation{Type: service.GaugeVoltage, Detected: true, AngleDegrees: 270}, ptr(600), 0.92},
		{"unknown type uses 0..100", service.GaugeObservation{Type: "humidity", Detected: true, AngleDegrees: 135}, ptr(50), 0.92},
		{"angle beyond sweep", service.GaugeObservation{Type: service.GaugeVoltage, Detected: true, AngleDegrees: 300}, nil, 0},
		{"negative angle", service.GaugeObservation{Type: service.GaugeVoltage, Detected: true, AngleDegrees: -1}, nil, 0},
		{"not detected", service.GaugeObservation{Type: service.GaugePressure}, nil, 0},
		{"NaN angle", service.GaugeObservation{Type: service.GaugeCurrent, Detected: true, AngleDegrees: math.NaN()}, nil, 0},
		{"infinite angle", service.GaugeObservation{Type: service.GaugeCurrent, Detected: true, AngleDegrees: math.Inf(1)}, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.ReadGauge(tc.obs)
			assert.Equal(t, tc.conf, got.Confidence)
			if tc.value == nil {
				assert.Nil(t, got.Value)
				assert.Equal(t, "Gauge not detected", got.Error)
				return
			}
			require.NotNil(t, got.Value)
			assert.InDelta(t, *tc.value, *got.Value, 1e-9)
		})
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, models.StatusFault, service.ParseStatus("Breaker FAULT code 7"))
	assert.Equal(t, models.StatusFault, service.ParseStatus("fan failure"))
	assert.Equal(t, models.StatusDegraded, service.ParseStatus("Status: Degraded"))
	assert.Equal(t, models.StatusDegraded, service.ParseStatus("WARNING: high load"))
	assert.Equal(t, models.StatusNormal, service.ParseStatus("Component Status: Normal, Serial: SN-12345"))
	assert.Equal(t, models.StatusNormal, service.ParseStatus(""))
}

func ptr(v float64) *float64 { return &v }
