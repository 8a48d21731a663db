package chart_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/bc19/internal/chart"
	"github.com/derickschaefer/bc19/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// daily builds consecutive daily points from 2020-12-01. NaN is null.
func daily(values ...float64) []model.Point {
	start := time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Point, len(values))
	for i, v := range values {
		out[i] = model.Point{Date: start.AddDate(0, 0, i), Value: model.Num(v)}
	}
	return out
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

func TestBarRendersOneLinePerDay(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "cases.newCases", daily(112, math.NaN(), 187), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := lines(buf.String())
	// header + 3 days + axis footer
	if len(out) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(out), buf.String())
	}
	if !strings.HasPrefix(out[0], "cases.newCases  2020-12-01 – 2020-12-03") {
		t.Errorf("unexpected header: %q", out[0])
	}
	if strings.Contains(out[2], "█") {
		t.Errorf("null day should have no bar: %q", out[2])
	}
	if !strings.Contains(out[2], ".") {
		t.Errorf("null day should print '.': %q", out[2])
	}
	if strings.Count(out[3], "█") <= strings.Count(out[1], "█") {
		t.Errorf("larger value should draw a longer bar:\n%s\n%s", out[1], out[3])
	}
}

func TestBarAxisFooterUsesNiceScale(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "x", daily(95, 40), chart.BarOptions{Width: 60, Ticks: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := lines(buf.String())
	footer := out[len(out)-1]
	if !strings.Contains(footer, "100 (step 20)") {
		t.Errorf("footer should show axis max 100 step 20, got %q", footer)
	}
}

func TestBarMaxBarsKeepsMostRecent(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "x", daily(1, 2, 3, 4, 5), chart.BarOptions{Width: 60, MaxBars: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "2020-12-03  ") {
		t.Errorf("expected only the last 2 days:\n%s", out)
	}
	if !strings.Contains(out, "2020-12-05") {
		t.Errorf("expected the last day:\n%s", out)
	}
}

func TestBarNegativeDrawsNothing(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "x", daily(-4, 10), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := lines(buf.String())
	if strings.Contains(out[1], "█") {
		t.Errorf("negative value should not draw a bar: %q", out[1])
	}
}

func TestBarAllNull(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "x", daily(math.NaN(), math.NaN()), chart.BarOptions{}); err == nil {
		t.Error("expected error for all-null series")
	}
}

// ─── Categories ───────────────────────────────────────────────────────────────

func TestCategoriesMarkers(t *testing.T) {
	var buf bytes.Buffer
	cats := []chart.Category{
		{Label: "0-4", Value: model.Num(152), RelValue: 3},
		{Label: "5-12", Value: model.Num(410), RelValue: 0},
		{Label: "13-17", Value: model.Num(98), RelValue: -2},
		{Label: "18-24", Value: model.Null},
	}
	if err := chart.Categories(&buf, "Cases by Age", cats, 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := lines(buf.String())
	if out[0] != "Cases by Age" {
		t.Errorf("unexpected title: %q", out[0])
	}
	if !strings.HasSuffix(out[1], "▲ 3") {
		t.Errorf("expected up marker: %q", out[1])
	}
	if !strings.HasSuffix(out[2], "─") {
		t.Errorf("expected flat marker: %q", out[2])
	}
	if !strings.HasSuffix(out[3], "▼ 2") {
		t.Errorf("expected down marker: %q", out[3])
	}
	if strings.Contains(out[4], "█") {
		t.Errorf("null bucket should have no bar: %q", out[4])
	}
}

func TestCategoriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Categories(&buf, "x", nil, 80); err == nil {
		t.Error("expected error for no categories")
	}
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

func TestPlotShape(t *testing.T) {
	var buf bytes.Buffer
	pts := daily(10, 20, 35, 50, math.NaN(), 40, 30, 45)
	if err := chart.Plot(&buf, "cases.newCases", pts, chart.PlotOptions{Width: 50, Height: 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := lines(buf.String())
	// title + 8 body rows + bottom axis + date labels
	if len(out) != 11 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(out), buf.String())
	}
	if !strings.Contains(out[0], "(2020-12-01 to 2020-12-08)") {
		t.Errorf("unexpected title: %q", out[0])
	}
	if !strings.Contains(buf.String(), "•") {
		t.Error("expected plotted points")
	}
	if !strings.HasPrefix(strings.TrimSpace(out[1]), "60┤") {
		t.Errorf("top row should carry the axis max label, got %q", out[1])
	}
	if !strings.Contains(out[10], "2020-12-01") || !strings.Contains(out[10], "2020-12-08") {
		t.Errorf("date axis missing endpoints: %q", out[10])
	}
}

func TestPlotTitleOverride(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Plot(&buf, "x", daily(1, 2, 3), chart.PlotOptions{Width: 40, Title: "New cases"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "New cases") {
		t.Errorf("expected title override, got %q", lines(buf.String())[0])
	}
}

func TestPlotNeedsTwoValues(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Plot(&buf, "x", daily(5, math.NaN()), chart.PlotOptions{}); err == nil {
		t.Error("expected error for fewer than 2 values")
	}
}
