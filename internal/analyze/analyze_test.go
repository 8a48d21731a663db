package analyze_test

import (
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/bc19/internal/analyze"
	"github.com/derickschaefer/bc19/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// makeDaily builds consecutive daily points starting at 2020-11-01.
// NaN becomes a null value.
func makeDaily(values ...float64) []model.Point {
	start := time.Date(2020, time.November, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Point, len(values))
	for i, v := range values {
		out[i] = model.Point{Date: start.AddDate(0, 0, i), Value: model.Num(v)}
	}
	return out
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func expectNum(t *testing.T, field string, got model.Number, want float64) {
	t.Helper()
	if !got.Valid {
		t.Errorf("%s: expected %g, got null", field, want)
		return
	}
	if !approxEqual(got.Value, want, 1e-6) {
		t.Errorf("%s: expected %g, got %g", field, want, got.Value)
	}
}

// ─── Summarize ────────────────────────────────────────────────────────────────

func TestSummarizeCounts(t *testing.T) {
	s := analyze.Summarize("cases.newCases", makeDaily(1, 2, math.NaN(), 4, 5))

	if s.Series != "cases.newCases" {
		t.Errorf("Series: expected cases.newCases, got %q", s.Series)
	}
	if s.Count != 5 {
		t.Errorf("Count: expected 5, got %d", s.Count)
	}
	if s.Missing != 1 {
		t.Errorf("Missing: expected 1, got %d", s.Missing)
	}
	if !approxEqual(s.MissingPct, 20.0, 1e-9) {
		t.Errorf("MissingPct: expected 20.0, got %g", s.MissingPct)
	}
}

func TestSummarizeStatistics(t *testing.T) {
	s := analyze.Summarize("x", makeDaily(1, 2, 3, 4, 5))

	expectNum(t, "Mean", s.Mean, 3)
	expectNum(t, "Std", s.Std, math.Sqrt(2.5))
	expectNum(t, "Min", s.Min, 1)
	expectNum(t, "Max", s.Max, 5)
	expectNum(t, "Median", s.Median, 3)
	expectNum(t, "P25", s.P25, 2)
	expectNum(t, "P75", s.P75, 4)
}

func TestSummarizeMedianEvenCount(t *testing.T) {
	s := analyze.Summarize("x", makeDaily(1, 2, 3, 4))
	expectNum(t, "Median", s.Median, 2.5)
}

func TestSummarizePeakAndEnds(t *testing.T) {
	s := analyze.Summarize("x", makeDaily(math.NaN(), 10, 40, 20, math.NaN()))

	expectNum(t, "First", s.First, 10)
	expectNum(t, "Last", s.Last, 20)
	expectNum(t, "Change", s.Change, 10)
	expectNum(t, "ChangePct", s.ChangePct, 100)
	if s.PeakDate != "2020-11-03" {
		t.Errorf("PeakDate: expected 2020-11-03, got %q", s.PeakDate)
	}
	if s.LastDate != "2020-11-04" {
		t.Errorf("LastDate: expected 2020-11-04, got %q", s.LastDate)
	}
}

func TestSummarizeZeroFirstHasNoChangePct(t *testing.T) {
	s := analyze.Summarize("x", makeDaily(0, 5))
	if s.ChangePct.Valid {
		t.Errorf("ChangePct: expected null when first is 0, got %g", s.ChangePct.Value)
	}
}

func TestSummarizeAllNull(t *testing.T) {
	s := analyze.Summarize("x", makeDaily(math.NaN(), math.NaN()))
	if s.Missing != 2 {
		t.Errorf("Missing: expected 2, got %d", s.Missing)
	}
	if s.Mean.Valid || s.Max.Valid || s.First.Valid {
		t.Errorf("expected null statistics, got %+v", s)
	}
	if s.PeakDate != "" {
		t.Errorf("PeakDate: expected empty, got %q", s.PeakDate)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := analyze.Summarize("x", nil)
	if s.Count != 0 || s.MissingPct != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

// ─── Trend ────────────────────────────────────────────────────────────────────

func TestTrendLinearUp(t *testing.T) {
	// 3 new cases per day.
	tr, err := analyze.Trend("x", makeDaily(10, 13, 16, 19, 22), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(tr.Slope, 3, 1e-9) {
		t.Errorf("Slope: expected 3, got %g", tr.Slope)
	}
	if !approxEqual(tr.SlopePerWeek, 21, 1e-9) {
		t.Errorf("SlopePerWeek: expected 21, got %g", tr.SlopePerWeek)
	}
	if !approxEqual(tr.Intercept, 10, 1e-9) {
		t.Errorf("Intercept: expected 10, got %g", tr.Intercept)
	}
	if !approxEqual(tr.R2, 1, 1e-9) {
		t.Errorf("R2: expected 1, got %g", tr.R2)
	}
	if tr.Direction != "up" {
		t.Errorf("Direction: expected up, got %q", tr.Direction)
	}
}

func TestTrendSkipsNulls(t *testing.T) {
	// Gaps keep their calendar spacing.
	tr, err := analyze.Trend("x", makeDaily(100, math.NaN(), 96, math.NaN(), 92), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Points != 3 {
		t.Errorf("Points: expected 3, got %d", tr.Points)
	}
	if !approxEqual(tr.Slope, -2, 1e-9) {
		t.Errorf("Slope: expected -2, got %g", tr.Slope)
	}
	if tr.Direction != "down" {
		t.Errorf("Direction: expected down, got %q", tr.Direction)
	}
}

func TestTrendFlat(t *testing.T) {
	tr, err := analyze.Trend("x", makeDaily(7, 7, 7, 7), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != "flat" {
		t.Errorf("Direction: expected flat, got %q", tr.Direction)
	}
}

func TestTrendTheilSenResistsOutlier(t *testing.T) {
	tr, err := analyze.Trend("x", makeDaily(1, 2, 3, 4, 500, 6, 7), analyze.TrendTheilSen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(tr.Slope, 1, 1e-9) {
		t.Errorf("Slope: expected 1, got %g", tr.Slope)
	}
	if tr.Method != analyze.TrendTheilSen {
		t.Errorf("Method: expected theil-sen, got %q", tr.Method)
	}
}

func TestTrendDefaultMethod(t *testing.T) {
	tr, err := analyze.Trend("x", makeDaily(1, 2), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Method != analyze.TrendLinear {
		t.Errorf("Method: expected linear, got %q", tr.Method)
	}
}

func TestTrendErrors(t *testing.T) {
	if _, err := analyze.Trend("x", makeDaily(1, math.NaN()), analyze.TrendLinear); err == nil {
		t.Error("expected error for fewer than 2 points")
	}
	if _, err := analyze.Trend("x", makeDaily(1, 2, 3), "loess"); err == nil {
		t.Error("expected error for unknown method")
	}
}
