// Package analyze computes descriptive statistics and trend fits over a
// reduced series. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/derickschaefer/bc19/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one series. Statistics over an
// all-null series are null.
type Summary struct {
	Series     string       `json:"series"`
	Count      int          `json:"count"`
	Missing    int          `json:"missing"`
	MissingPct float64      `json:"missing_pct"`
	Mean       model.Number `json:"mean"`
	Std        model.Number `json:"std"`
	Min        model.Number `json:"min"`
	P25        model.Number `json:"p25"`
	Median     model.Number `json:"median"`
	P75        model.Number `json:"p75"`
	Max        model.Number `json:"max"`
	PeakDate   string       `json:"peak_date,omitempty"`
	First      model.Number `json:"first"`
	Last       model.Number `json:"last"`
	LastDate   string       `json:"last_date,omitempty"`
	Change     model.Number `json:"change"`
	ChangePct  model.Number `json:"change_pct"`
}

// Summarize computes statistics over pts. Nulls are counted as missing and
// excluded from every other figure.
func Summarize(name string, pts []model.Point) Summary {
	s := Summary{Series: name, Count: len(pts)}

	var vals []float64
	peak := -1
	for i, p := range pts {
		if !p.Value.Valid {
			s.Missing++
			continue
		}
		vals = append(vals, p.Value.Value)
		if peak < 0 || p.Value.Value > pts[peak].Value.Value {
			peak = i
		}
	}
	if s.Count > 0 {
		s.MissingPct = float64(s.Missing) / float64(s.Count) * 100
	}
	if len(vals) == 0 {
		return s
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mean := sumF(vals) / float64(len(vals))
	s.Mean = model.Num(mean)
	s.Std = model.Num(stddevF(vals, mean))
	s.Min = model.Num(sorted[0])
	s.Max = model.Num(sorted[len(sorted)-1])
	s.P25 = model.Num(percentile(sorted, 25))
	s.Median = model.Num(percentile(sorted, 50))
	s.P75 = model.Num(percentile(sorted, 75))
	s.PeakDate = formatDate(pts[peak].Date)

	for _, p := range pts {
		if p.Value.Valid {
			s.First = p.Value
			break
		}
	}
	for i := len(pts) - 1; i >= 0; i-- {
		if pts[i].Value.Valid {
			s.Last = pts[i].Value
			s.LastDate = formatDate(pts[i].Date)
			break
		}
	}
	s.Change = model.Num(s.Last.Value - s.First.Value)
	if s.First.Value != 0 {
		s.ChangePct = model.Num(s.Change.Value / math.Abs(s.First.Value) * 100)
	}
	return s
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// flatPerWeek is the weekly change below which a trend reads as flat.
const flatPerWeek = 0.01

// TrendResult is a fitted line over a series.
type TrendResult struct {
	Series       string      `json:"series"`
	Method       TrendMethod `json:"method"`
	Points       int         `json:"points"`
	Slope        float64     `json:"slope"` // units per day
	Intercept    float64     `json:"intercept"`
	R2           float64     `json:"r2"`
	SlopePerWeek float64     `json:"slope_per_week"`
	Direction    string      `json:"direction"` // "up", "down", "flat"
}

// Trend fits a line to the non-null points. X is days since the first
// non-null point.
func Trend(name string, pts []model.Point, method TrendMethod) (TrendResult, error) {
	tr := TrendResult{Series: name, Method: method}

	var xy []point
	var t0 time.Time
	for _, p := range pts {
		if !p.Value.Valid {
			continue
		}
		if len(xy) == 0 {
			t0 = p.Date
		}
		xy = append(xy, point{p.Date.Sub(t0).Hours() / 24, p.Value.Value})
	}
	tr.Points = len(xy)
	if len(xy) < 2 {
		return tr, fmt.Errorf("trend: need at least 2 non-null points, got %d", len(xy))
	}

	switch method {
	case TrendTheilSen:
		tr.Slope = theilSenSlope(xy)
		xMean := meanPts(xy, func(p point) float64 { return p.x })
		yMean := meanPts(xy, func(p point) float64 { return p.y })
		tr.Intercept = yMean - tr.Slope*xMean
	case TrendLinear, "":
		tr.Method = TrendLinear
		tr.Slope, tr.Intercept = olsRegress(xy)
	default:
		return tr, fmt.Errorf("trend: unknown method %q (use linear or theil-sen)", method)
	}

	tr.R2 = r2(xy, tr.Slope, tr.Intercept)
	tr.SlopePerWeek = tr.Slope * 7

	switch {
	case tr.SlopePerWeek > flatPerWeek:
		tr.Direction = "up"
	case tr.SlopePerWeek < -flatPerWeek:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// stddevF is the sample standard deviation.
func stddevF(vals []float64, m float64) float64 {
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

// percentile interpolates linearly between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

// theilSenSlope is the median of all pairwise slopes.
func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if dx := pts[j].x - pts[i].x; dx != 0 {
				slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
			}
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })
	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
