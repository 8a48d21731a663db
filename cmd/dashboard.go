package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/chart"
	"github.com/derickschaefer/bc19/internal/dashboard"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/timeline"
)

// ─── counters ─────────────────────────────────────────────────────────────────

var countersInput inputFlags

var countersCmd = &cobra.Command{
	Use:   "counters [NAME...]",
	Short: "Headline counters with their look-back changes",
	Long: `Counters prints each headline number at its category's latest row,
followed by the change against 1, 7, 14 and 30 days earlier where the
counter tracks them. Counters of unreported categories are omitted.`,
	Example: `  bc19 counters
  bc19 counters totalCases totalDeaths
  bc19 counters --input timeline.json --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		db, l, err := loadDashboard(cmd.Context(), deps, &countersInput)
		if err != nil {
			return err
		}

		names := db.CounterNames()
		if len(args) > 0 {
			for _, n := range args {
				if _, ok := db.Counters[n]; !ok {
					return fmt.Errorf("unknown or unreported counter %q", n)
				}
			}
			names = args
		}

		t := model.Table{Headers: []string{"COUNTER", "VALUE", "CHANGE", "COMPARED TO"}}
		for _, n := range names {
			c := db.Counters[n]
			t.Rows = append(t.Rows, []string{n, counterValue(c.Value, c.IsPct), joinDeltas(c.Deltas), joinValues(c.RelativeValues, c.IsPct)})
		}

		result := newResult(model.KindCounters, cmd.CommandPath(), t, len(t.Rows), l.Source, start)
		result.Warnings = missingWarnings(db)
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

func counterValue(v model.Number, isPct bool) string {
	s := render.FormatValue(v)
	if isPct && v.Valid {
		s += "%"
	}
	return s
}

func joinDeltas(ds []float64) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = fmt.Sprintf("%+g", d)
	}
	return strings.Join(parts, " / ")
}

func joinValues(vs []model.Number, isPct bool) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = counterValue(v, isPct)
	}
	return strings.Join(parts, " / ")
}

// ─── bars ─────────────────────────────────────────────────────────────────────

var (
	barsInput inputFlags
	barsChart bool
	barsWidth int
)

var barsCmd = &cobra.Command{
	Use:   "bars <GRAPH>",
	Short: "One categorical bar graph: " + strings.Join(dashboard.BarGraphNames, ", "),
	Long: `Bars prints one bar graph at its category's latest row. CHANGE is the
difference from the previous row, clamped at zero below.

--chart draws the bars in the terminal instead of a table.`,
	Example: `  bc19 bars casesByAge
  bc19 bars byHospital --chart
  bc19 bars mortalityRate --format json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: dashboard.BarGraphNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		known := false
		for _, n := range dashboard.BarGraphNames {
			known = known || n == name
		}
		if !known {
			return fmt.Errorf("unknown bar graph %q (use %s)", name, strings.Join(dashboard.BarGraphNames, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		db, l, err := loadDashboard(cmd.Context(), deps, &barsInput)
		if err != nil {
			return err
		}
		entries, ok := db.BarGraphs[name]
		if !ok {
			return fmt.Errorf("bar graph %q not available: its category is not reported", name)
		}

		if barsChart {
			cats := make([]chart.Category, len(entries))
			for i, e := range entries {
				cats[i] = chart.Category{Label: e.Label, Value: e.Value, RelValue: e.RelValue}
			}
			w, closeFn, err := outputWriter(os.Stdout)
			if err != nil {
				return err
			}
			defer closeFn()
			return chart.Categories(w, name, cats, barsWidth)
		}

		t := model.Table{Headers: []string{"ID", "LABEL", "VALUE", "CHANGE"}}
		for _, e := range entries {
			t.Rows = append(t.Rows, []string{e.DataID, e.Label, render.FormatValue(e.Value), fmt.Sprintf("%+g", e.RelValue)})
		}
		result := newResult(model.KindBarGraph, cmd.CommandPath()+" "+name, t, len(t.Rows), l.Source, start)
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

// ─── latest ───────────────────────────────────────────────────────────────────

var latestInput inputFlags

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Latest reported row and date per category",
	Example: `  bc19 latest
  bc19 latest --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		tl, l, err := loadTimeline(cmd.Context(), deps, &latestInput)
		if err != nil {
			return err
		}

		t := model.Table{Headers: []string{"CATEGORY", "ROW", "DATE"}}
		var warnings []string
		for _, c := range timeline.Categories {
			i, ok := tl.LatestRow(c)
			if !ok {
				t.Rows = append(t.Rows, []string{string(c), ".", "."})
				warnings = append(warnings, fmt.Sprintf("%s never reported", c))
				continue
			}
			t.Rows = append(t.Rows, []string{string(c), fmt.Sprint(i), tl.Dates[i]})
		}

		result := newResult(model.KindLatest, cmd.CommandPath(), t, len(t.Rows), l.Source, start)
		result.Warnings = warnings
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

func init() {
	rootCmd.AddCommand(countersCmd)
	rootCmd.AddCommand(barsCmd)
	rootCmd.AddCommand(latestCmd)

	countersInput.register(countersCmd)
	barsInput.register(barsCmd)
	latestInput.register(latestCmd)

	barsCmd.Flags().BoolVar(&barsChart, "chart", false, "draw the bars instead of printing a table")
	barsCmd.Flags().IntVar(&barsWidth, "width", 0, "chart width in characters (default: $COLUMNS or 80)")
}
