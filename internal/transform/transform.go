// Package transform implements stateless, null-aware operators. Scalar
// operators combine model.Numbers for the reducer's per-row arithmetic;
// slice operators take a series of Points and return a new, equally long
// series. No side effects, no I/O.
package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/derickschaefer/bc19/internal/model"
)

// ─── Scalar Operators ─────────────────────────────────────────────────────────

// Delta returns cur - prev, or Null if either side is missing.
func Delta(cur, prev model.Number) model.Number {
	if !cur.Valid || !prev.Valid {
		return model.Null
	}
	return model.Num(cur.Value - prev.Value)
}

// Ratio returns num / den * scale. Null when either side is missing or the
// denominator is zero; never NaN or Inf.
func Ratio(num, den model.Number, scale float64) model.Number {
	if !num.Valid || !den.Valid || den.Value == 0 {
		return model.Null
	}
	return model.Num(num.Value / den.Value * scale)
}

// ClampMin raises a valid value to at least min. Null stays Null.
func ClampMin(v model.Number, min float64) model.Number {
	if !v.Valid {
		return v
	}
	return model.Num(math.Max(v.Value, min))
}

// Round rounds a valid value to the given number of decimal places.
func Round(v model.Number, places int) model.Number {
	if !v.Valid {
		return v
	}
	p := math.Pow(10, float64(places))
	return model.Num(math.Round(v.Value*p) / p)
}

// SumValid adds the valid members. ok is false when none are valid.
func SumValid(vs ...model.Number) (sum float64, ok bool) {
	for _, v := range vs {
		if v.Valid {
			sum += v.Value
			ok = true
		}
	}
	return sum, ok
}

// SumAll adds every member, or reports false if any is missing.
func SumAll(vs ...model.Number) (float64, bool) {
	var sum float64
	for _, v := range vs {
		if !v.Valid {
			return 0, false
		}
		sum += v.Value
	}
	return sum, len(vs) > 0
}

// ─── Look-back Difference ─────────────────────────────────────────────────────

// WindowDelta returns vals[i] - vals[i-k]. Before the window can be
// satisfied (i-k < 0) or when either endpoint is missing, the result is Null.
func WindowDelta(vals []model.Number, i, k int) model.Number {
	if k < 0 || i < 0 || i >= len(vals) || i-k < 0 {
		return model.Null
	}
	return Delta(vals[i], vals[i-k])
}

// Diff computes v[t] - v[t-lag] for every point. Leading points without a
// prior value are Null so the output stays row-aligned with the input.
func Diff(pts []model.Point, lag int) ([]model.Point, error) {
	if lag < 1 {
		return nil, fmt.Errorf("diff: lag must be >= 1, got %d", lag)
	}
	vals := values(pts)
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{Date: p.Date, Value: WindowDelta(vals, i, lag)}
	}
	return out, nil
}

// ─── Percent Change ───────────────────────────────────────────────────────────

// PctChange computes (v[t] - v[t-period]) / |v[t-period]| * 100.
// Leading points, missing inputs, and zero bases produce Null.
func PctChange(pts []model.Point, period int) ([]model.Point, error) {
	if period < 1 {
		return nil, fmt.Errorf("pct-change: period must be >= 1, got %d", period)
	}
	vals := values(pts)
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		v := model.Null
		if i-period >= 0 {
			prev := vals[i-period]
			if prev.Valid {
				v = Ratio(Delta(vals[i], prev), model.Num(math.Abs(prev.Value)), 100)
			}
		}
		out[i] = model.Point{Date: p.Date, Value: v}
	}
	return out, nil
}

// ─── Clamp ────────────────────────────────────────────────────────────────────

// Clamp raises every valid value below min to min.
func Clamp(pts []model.Point, min float64) []model.Point {
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{Date: p.Date, Value: ClampMin(p.Value, min)}
	}
	return out
}

// ─── Filter ───────────────────────────────────────────────────────────────────

// FilterOptions controls which points are retained.
type FilterOptions struct {
	After       time.Time // zero = no lower bound
	Before      time.Time // zero = no upper bound
	DropMissing bool
}

// Filter returns the points that satisfy opts. Unlike the other operators it
// may shorten the series.
func Filter(pts []model.Point, opts FilterOptions) []model.Point {
	var out []model.Point
	for _, p := range pts {
		if !opts.After.IsZero() && p.Date.Before(opts.After) {
			continue
		}
		if !opts.Before.IsZero() && p.Date.After(opts.Before) {
			continue
		}
		if opts.DropMissing && !p.Value.Valid {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ─── Rolling Window ───────────────────────────────────────────────────────────

// RollStat selects the statistic for rolling window computation.
type RollStat string

const (
	RollMean RollStat = "mean"
	RollStd  RollStat = "std"
	RollMin  RollStat = "min"
	RollMax  RollStat = "max"
	RollSum  RollStat = "sum"
)

// Roll computes a rolling window statistic. Window points include the
// current point and the (window-1) preceding points. Null values are skipped.
// If fewer than minPeriods valid values exist in a window, the output is Null.
func Roll(pts []model.Point, window int, minPeriods int, stat RollStat) ([]model.Point, error) {
	if window < 1 {
		return nil, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	if minPeriods < 1 {
		minPeriods = 1
	}
	if minPeriods > window {
		return nil, fmt.Errorf("roll: min-periods (%d) cannot exceed window (%d)", minPeriods, window)
	}
	switch stat {
	case RollMean, RollStd, RollMin, RollMax, RollSum:
	default:
		return nil, fmt.Errorf("roll: unknown stat %q (use mean, std, min, max, sum)", stat)
	}

	out := make([]model.Point, len(pts))
	for i, p := range pts {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var vals []float64
		for _, w := range pts[start : i+1] {
			if w.Value.Valid {
				vals = append(vals, w.Value.Value)
			}
		}

		v := model.Null
		if len(vals) >= minPeriods {
			switch stat {
			case RollMean:
				v = model.Num(mean(vals))
			case RollStd:
				v = model.Num(stddev(vals, mean(vals)))
			case RollMin:
				mn, _ := minmax(vals)
				v = model.Num(mn)
			case RollMax:
				_, mx := minmax(vals)
				v = model.Num(mx)
			case RollSum:
				v = model.Num(sum(vals))
			}
		}
		out[i] = model.Point{Date: p.Date, Value: v}
	}
	return out, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func values(pts []model.Point) []model.Number {
	out := make([]model.Number, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func minmax(vals []float64) (float64, float64) {
	mn, mx := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}
