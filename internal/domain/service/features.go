package service

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/constants"
)

// TemporalFeatures summarises a component's historical window.
type TemporalFeatures struct {
	Samples          int     `json:"samples"`
	TemperatureMean  float64 `json:"temperature_mean"`
	TemperatureStd   float64 `json:"temperature_std"`
	TemperatureTrend float64 `json:"temperature_trend"`
	VoltageStd       float64 `json:"voltage_std"`
	CurrentSpikes    int     `json:"current_spikes"`

	// Completeness is the share of channels that had at least one sample.
	Completeness float64 `json:"completeness"`
}

// ExtractFeatures computes temporal features over series. When the series is
// empty the current reading is the whole window. A channel with no samples is
// treated as a single zero sample.
func ExtractFeatures(reading models.Reading, series models.Series) TemporalFeatures {
	if series.Len() == 0 {
		series = models.Series{ComponentID: reading.ComponentID, Readings: []models.Reading{reading}}
	}

	present := 0
	column := func(ch models.Channel) []float64 {
		xs := series.Column(ch)
		if len(xs) == 0 {
			return []float64{0}
		}
		present++
		return xs
	}
	temps := column(models.ChannelTemperature)
	volts := column(models.ChannelVoltage)
	amps := column(models.ChannelCurrent)

	return TemporalFeatures{
		Samples:          series.Len(),
		TemperatureMean:  stat.Mean(temps, nil),
		TemperatureStd:   sampleStd(temps),
		TemperatureTrend: (temps[len(temps)-1] - temps[0]) / float64(len(temps)),
		VoltageStd:       sampleStd(volts),
		CurrentSpikes:    countSpikes(amps, constants.SpikeQuantile),
		Completeness:     float64(present) / 3,
	}
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// countSpikes counts samples strictly above the q-quantile of xs.
func countSpikes(xs []float64, q float64) int {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	threshold := linearQuantile(sorted, q)
	spikes := 0
	for _, x := range xs {
		if x > threshold {
			spikes++
		}
	}
	return spikes
}

// linearQuantile interpolates between the closest ranks of sorted, placing the
// q-quantile at position (n-1)q (Hyndman-Fan type 7). gonum's stat.Quantile only
// offers the empirical and type 4 estimators.
func linearQuantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n == 1:
		return sorted[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
