package timeline

import (
	"math"

	"github.com/derickschaefer/bc19/internal/model"
)

// stepGranularities maps a lower bound (exclusive) on the maximum value to
// the rounding granularity used for axis steps. Checked top to bottom.
var stepGranularities = []struct {
	above   float64
	nearest float64
}{
	{10000, 1000},
	{1000, 100},
	{500, 50},
	{100, 25},
	{50, 10},
	{20, 5},
}

const defaultGranularity = 2

// Granularity returns the rounding granularity for maxValue.
func Granularity(maxValue float64) float64 {
	for _, g := range stepGranularities {
		if maxValue > g.above {
			return g.nearest
		}
	}
	return defaultGranularity
}

// StepSize returns a "nice" tick step for an axis that must show maxValue
// with about ticks ticks. The result is always a whole multiple of
// Granularity(maxValue).
func StepSize(maxValue float64, ticks int) float64 {
	if ticks < 1 {
		ticks = 1
	}
	if maxValue < 0 {
		maxValue = 0
	}
	nearest := Granularity(maxValue)
	return math.Ceil((maxValue/float64(ticks)+1)/nearest) * nearest
}

// AxisMax rounds maxValue up to a whole number of steps. The result is
// never below maxValue.
func AxisMax(maxValue float64, ticks int) float64 {
	if maxValue < 0 {
		maxValue = 0
	}
	step := StepSize(maxValue, ticks)
	return math.Ceil(maxValue/step) * step
}

// NormalizeRelativeValue returns value - previous for up/down indicators.
// It is 0 when either side is missing, or when hideNegative is set and the
// difference is negative.
func NormalizeRelativeValue(value, previous model.Number, hideNegative bool) float64 {
	if !previous.Valid || !value.Valid {
		return 0
	}
	d := value.Value - previous.Value
	if hideNegative && d < 0 {
		return 0
	}
	return d
}
