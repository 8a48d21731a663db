// Package chart renders reduced series as terminal charts. Axes are scaled
// with the same step/axis-max rules the dashboard graphs use, so a terminal
// chart and the published chart agree on their gridlines.
//
//   - Bar: one horizontal bar per day, for short daily windows
//   - Plot: a line plot with a labeled Y axis, for long series
//   - Categories: one bar per bucket with its day-over-day change
//
// Null values are gaps, never zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/timeline"
)

const (
	dateLayout   = "2006-01-02"
	defaultTicks = 5
)

// ─── Bar ──────────────────────────────────────────────────────────────────────

// BarOptions controls daily bar chart rendering.
type BarOptions struct {
	// Width is the total character width. 0 reads $COLUMNS, falling back to 80.
	Width int
	// MaxBars keeps only the most recent N days. 0 keeps everything.
	MaxBars int
	// Ticks is the desired number of axis steps. 0 means 5.
	Ticks int
}

// Bar renders one bar per point to w. The scale runs from zero to the
// axis maximum for the largest value; negative values draw no bar.
//
//	cases.newCases  2020-12-01 – 2020-12-03
//	2020-12-01  112  ██████████████
//	2020-12-02    .
//	2020-12-03  187  ███████████████████████
//	            0 ─────────────────────── 200 (step 50)
func Bar(w io.Writer, title string, pts []model.Point, opts BarOptions) error {
	if opts.MaxBars > 0 && len(pts) > opts.MaxBars {
		pts = pts[len(pts)-opts.MaxBars:]
	}
	peak, ok := maxValid(pts)
	if !ok {
		return fmt.Errorf("chart bar: no non-null values to render")
	}
	ticks := opts.Ticks
	if ticks <= 0 {
		ticks = defaultTicks
	}
	axis := timeline.AxisMax(peak, ticks)
	step := timeline.StepSize(peak, ticks)

	valWidth := 1
	for _, p := range pts {
		if l := len(label(p.Value)); l > valWidth {
			valWidth = l
		}
	}
	area := width(opts.Width) - len(dateLayout) - valWidth - 4
	if area < 4 {
		area = 4
	}

	fmt.Fprintf(w, "%s  %s – %s\n", title,
		pts[0].Date.Format(dateLayout), pts[len(pts)-1].Date.Format(dateLayout))
	for _, p := range pts {
		fmt.Fprintf(w, "%s  %*s  %s\n",
			p.Date.Format(dateLayout), valWidth, label(p.Value), bar(p.Value, axis, area))
	}
	fmt.Fprintf(w, "%s  0 %s %s (step %s)\n",
		strings.Repeat(" ", len(dateLayout)+valWidth),
		strings.Repeat("─", max(1, area-len(formatFloat(axis))-2)),
		formatFloat(axis), formatFloat(step))
	return nil
}

// bar scales v against axis within area columns. Any positive value gets at
// least one block.
func bar(v model.Number, axis float64, area int) string {
	if !v.Valid || v.Value <= 0 || axis <= 0 {
		return ""
	}
	n := int(math.Round(v.Value / axis * float64(area)))
	return strings.Repeat("█", min(max(n, 1), area))
}

// ─── Categories ───────────────────────────────────────────────────────────────

// Category is one labeled bar with its change since the previous report.
type Category struct {
	Label    string
	Value    model.Number
	RelValue float64
}

// Categories renders one bar per bucket, scaled to the largest value, with
// an up/down marker from RelValue.
//
//	Cases by Age
//	0-4     152  ███              ▲ 3
//	5-12    410  ████████         ─
func Categories(w io.Writer, title string, cats []Category, totalWidth int) error {
	if len(cats) == 0 {
		return fmt.Errorf("chart: no categories to render")
	}
	pts := make([]model.Point, len(cats))
	labelWidth, valWidth := 1, 1
	for i, c := range cats {
		pts[i].Value = c.Value
		labelWidth = max(labelWidth, len(c.Label))
		valWidth = max(valWidth, len(label(c.Value)))
	}
	peak, _ := maxValid(pts)
	axis := timeline.AxisMax(peak, defaultTicks)

	area := width(totalWidth) - labelWidth - valWidth - 12
	if area < 4 {
		area = 4
	}

	fmt.Fprintln(w, title)
	for _, c := range cats {
		b := bar(c.Value, axis, area)
		pad := strings.Repeat(" ", area-utf8.RuneCountInString(b))
		fmt.Fprintf(w, "%-*s  %*s  %s%s  %s\n",
			labelWidth, c.Label, valWidth, label(c.Value), b, pad, trend(c.RelValue))
	}
	return nil
}

func trend(rel float64) string {
	switch {
	case rel > 0:
		return "▲ " + formatFloat(rel)
	case rel < 0:
		return "▼ " + formatFloat(-rel)
	default:
		return "─"
	}
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls line plot rendering.
type PlotOptions struct {
	// Width is the total character width. 0 reads $COLUMNS, falling back to 80.
	Width int
	// Height is the number of rows in the plot body. 0 means 12.
	Height int
	// Title overrides the series name.
	Title string
}

// Plot renders a line plot of pts. The Y axis starts at zero (or the
// minimum, if negative) and ends at the axis maximum, labeled every step.
func Plot(w io.Writer, name string, pts []model.Point, opts PlotOptions) error {
	height := opts.Height
	if height <= 0 {
		height = 12
	}
	title := opts.Title
	if title == "" {
		title = name
	}

	valid := 0
	lo := 0.0
	for _, p := range pts {
		if p.Value.Valid {
			valid++
			lo = math.Min(lo, p.Value.Value)
		}
	}
	if valid < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-null values (got %d)", valid)
	}
	peak, _ := maxValid(pts)
	hi := timeline.AxisMax(peak, defaultTicks)
	step := timeline.StepSize(peak, defaultTicks)
	if hi <= lo {
		hi = lo + step
	}

	labels := make(map[int]string)
	labelWidth := 1
	for v := 0.0; v <= hi; v += step {
		row := rowOf(v, lo, hi, height)
		labels[row] = formatFloat(v)
		labelWidth = max(labelWidth, len(labels[row]))
	}

	plotWidth := width(opts.Width) - labelWidth - 1
	if plotWidth < 10 {
		plotWidth = 10
	}
	cols := bucket(pts, plotWidth)
	grid := draw(cols, lo, hi, height)

	fmt.Fprintf(w, "%s  (%s to %s)\n", title,
		pts[0].Date.Format(dateLayout), pts[len(pts)-1].Date.Format(dateLayout))
	for row := 0; row < height; row++ {
		axisCh := " "
		if _, ok := labels[row]; ok {
			axisCh = "┤"
		}
		fmt.Fprintf(w, "%*s%s%s\n", labelWidth, labels[row], axisCh, string(grid[row]))
	}
	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", labelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", labelWidth), dateAxis(pts, plotWidth))
	return nil
}

// bucket averages pts into n columns. A column with only nulls is null.
func bucket(pts []model.Point, n int) []model.Number {
	cols := make([]model.Number, n)
	total := len(pts)
	for c := range cols {
		from := c * total / n
		to := max((c+1)*total/n, from+1)
		var sum float64
		count := 0
		for i := from; i < to && i < total; i++ {
			if pts[i].Value.Valid {
				sum += pts[i].Value.Value
				count++
			}
		}
		if count > 0 {
			cols[c] = model.Num(sum / float64(count))
		}
	}
	return cols
}

// rowOf maps a value to a grid row; row 0 is the top.
func rowOf(v, lo, hi float64, height int) int {
	r := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
	return min(max(r, 0), height-1)
}

// draw places a dot per column and joins consecutive dots vertically.
func draw(cols []model.Number, lo, hi float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}
	prev := -1
	for c, v := range cols {
		if !v.Valid {
			prev = -1
			continue
		}
		r := rowOf(v.Value, lo, hi, height)
		if prev >= 0 {
			for fill := min(prev, r) + 1; fill < max(prev, r); fill++ {
				grid[fill][c] = '│'
			}
		}
		grid[r][c] = '•'
		prev = r
	}
	return grid
}

// dateAxis labels the first, middle, and last dates under the plot.
func dateAxis(pts []model.Point, plotWidth int) string {
	buf := []rune(strings.Repeat(" ", plotWidth))
	put := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	first := pts[0].Date.Format(dateLayout)
	mid := pts[len(pts)/2].Date.Format(dateLayout)
	last := pts[len(pts)-1].Date.Format(dateLayout)
	put(0, first)
	if plotWidth >= 3*len(dateLayout)+2 {
		put(plotWidth/2-len(mid)/2, mid)
	}
	put(plotWidth-len(last), last)
	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func maxValid(pts []model.Point) (float64, bool) {
	s := timeline.Series{Values: make([]model.Number, len(pts))}
	for i, p := range pts {
		s.Values[i] = p.Value
	}
	return s.Max()
}

func label(v model.Number) string {
	if !v.Valid {
		return "."
	}
	return formatFloat(v.Value)
}

// formatFloat prints whole numbers without decimals, large numbers in
// K/M notation, and fractions with up to two decimals.
func formatFloat(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case v == math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 0, 64)
	default:
		s := strconv.FormatFloat(v, 'f', 2, 64)
		return strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
}

// width returns w, or the terminal width from $COLUMNS, defaulting to 80.
func width(w int) int {
	if w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
