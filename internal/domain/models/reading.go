package models

import "time"

// ComponentStatus is the operating status read off a component's label or display.
type ComponentStatus string

const (
	StatusNormal   ComponentStatus = "normal"
	StatusDegraded ComponentStatus = "degraded"
	StatusFault    ComponentStatus = "fault"
)

// Channel identifies one measured quantity of a reading.
type Channel uint8

const (
	ChannelTemperature Channel = 1 << iota
	ChannelVoltage
	ChannelCurrent
)

// Position locates a component inside its sector, in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Reading is one structured snapshot of a component's observed state.
// Readings are immutable once captured.
type Reading struct {
	SectorID    string          `json:"sector_id"`
	ComponentID string          `json:"component_id"`
	Status      ComponentStatus `json:"status"`
	Temperature float64         `json:"temperature_c"`
	Voltage     float64         `json:"voltage_v"`
	Current     float64         `json:"current_a"`
	Position    Position        `json:"position"`
	Confidence  float64         `json:"confidence"`
	CapturedAt  time.Time       `json:"captured_at"`

	// Missing marks channels the capture could not measure; the zero value means all present.
	Missing Channel `json:"missing,omitempty"`
}

// Has reports whether the reading measured ch.
func (r Reading) Has(ch Channel) bool {
	return r.Missing&ch == 0
}

// Value returns the measured value of ch.
func (r Reading) Value(ch Channel) float64 {
	switch ch {
	case ChannelTemperature:
		return r.Temperature
	case ChannelVoltage:
		return r.Voltage
	case ChannelCurrent:
		return r.Current
	default:
		return 0
	}
}

// Series is the time-ordered history of one component.
type Series struct {
	ComponentID string    `json:"component_id"`
	Readings    []Reading `json:"readings"`
}

// Column returns the values of ch across the series, skipping readings that did not measure it.
func (s Series) Column(ch Channel) []float64 {
	out := make([]float64, 0, len(s.Readings))
	for _, r := range s.Readings {
		if r.Has(ch) {
			out = append(out, r.Value(ch))
		}
	}
	return out
}

// Len returns the number of readings in the series.
func (s Series) Len() int {
	return len(s.Readings)
}
