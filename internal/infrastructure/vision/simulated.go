// Package vision provides capture sources for the extraction stage: a seeded
// simulator for local runs and an HTTP client for a remote vision service.
package vision

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
)

// SimulatedSource fabricates plausible captures. Identical seeds produce
// identical capture sequences.
type SimulatedSource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
	latency time.Duration
}

// SimulatedOption configures a SimulatedSource.
type SimulatedOption func(*SimulatedSource)

// WithLatency makes every capture take d, honoring cancellation.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *SimulatedSource) { s.latency = d }
}

// WithSimulatedClock sets the capture timestamp source.
func WithSimulatedClock(now func() time.Time) SimulatedOption {
	return func(s *SimulatedSource) { s.now = now }
}

// NewSimulatedSource creates a simulator seeded with seed.
func NewSimulatedSource(seed int64, opts ...SimulatedOption) *SimulatedSource {
	s := &SimulatedSource{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ service.CaptureSource = (*SimulatedSource)(nil)

func (s *SimulatedSource) Capture(ctx context.Context, sectorID, componentID string) (*service.Capture, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uniform := func(lo, hi float64) float64 { return lo + s.rng.Float64()*(hi-lo) }

	regions := []service.TextRegion{
		{
			Box:        service.BoundingBox{X: 100, Y: 50, Width: 200, Height: 30},
			Text:       "Component Status: Normal",
			Confidence: uniform(0.85, 0.98),
		},
		{
			Box:        service.BoundingBox{X: 100, Y: 100, Width: 150, Height: 25},
			Text:       fmt.Sprintf("Serial: SN-%05d", s.rng.Intn(100000)),
			Confidence: uniform(0.85, 0.98),
		},
	}

	// Angles land in the usual operating band of each calibrated range.
	gauges := []service.GaugeObservation{
		{Type: service.GaugeTemperature, Detected: true, AngleDegrees: angleFor(uniform(35, 85), -20, 120)},
		{Type: service.GaugeVoltage, Detected: true, AngleDegrees: angleFor(uniform(220, 240), 0, 600)},
		{Type: service.GaugeCurrent, Detected: true, AngleDegrees: angleFor(uniform(5, 20), 0, 100)},
	}

	return &service.Capture{
		SectorID:    sectorID,
		ComponentID: componentID,
		Regions:     regions,
		Gauges:      gauges,
		Position: models.Position{
			X: uniform(0, 100),
			Y: uniform(0, 100),
			Z: uniform(0, 10),
		},
		CapturedAt: s.now().UTC(),
	}, nil
}

func angleFor(value, lo, hi float64) float64 {
	return (value - lo) / (hi - lo) * 270
}
