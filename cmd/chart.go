package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/chart"
	"github.com/derickschaefer/bc19/internal/pipeline"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a series as a terminal chart (reads JSONL from stdin)",
	Long: `Chart commands read JSONL points from stdin and render to the terminal.
The value axis is scaled the way the dashboard scales its charts: the
largest value is rounded up to a whole number of readable steps.

Pipeline examples:
  bc19 series get cases.newCases --after 2021-02-01 | bc19 chart bar
  bc19 series get hospitalizations.total | bc19 chart plot
  bc19 series get cases.newCases | bc19 transform roll --window 7 | bc19 chart plot --title "New cases, 7-day mean"`,
}

// ─── chart bar ───────────────────────────────────────────────────────────────

var (
	chartBarWidth   int
	chartBarMaxBars int
	chartBarTicks   int
)

var chartBarCmd = &cobra.Command{
	Use:   "bar",
	Short: "Horizontal bar chart, one bar per day",
	Long: `Renders one labeled bar per point. Null days print "." with no bar and
negative values draw nothing. Use --max-bars to keep only the most
recent days of a long series.`,
	Example: `  bc19 series get cases.newCases | bc19 chart bar --max-bars 30
  bc19 series get vaccines.administered --drop-missing | bc19 chart bar --ticks 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		name := sp.Name
		if name == "" {
			name = "series"
		}
		w, closeFn, err := outputWriter(os.Stdout)
		if err != nil {
			return err
		}
		defer closeFn()
		return chart.Bar(w, name, sp.Points, chart.BarOptions{
			Width:   chartBarWidth,
			MaxBars: chartBarMaxBars,
			Ticks:   chartBarTicks,
		})
	},
}

// ─── chart plot ──────────────────────────────────────────────────────────────

var (
	chartPlotWidth  int
	chartPlotHeight int
	chartPlotTitle  string
)

var chartPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Line plot with labeled axes",
	Long: `Renders a plot with value labels on the left and dates along the
bottom. Null values appear as gaps, not zeros. Width auto-detects from
$COLUMNS (falls back to 80).`,
	Example: `  bc19 series get cases.oneWeekNewCaseRate | bc19 chart plot
  bc19 series get viralTests.testPositivityRate | bc19 chart plot --height 8 --title "Positivity %"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		name := sp.Name
		if name == "" {
			name = "series"
		}
		w, closeFn, err := outputWriter(os.Stdout)
		if err != nil {
			return err
		}
		defer closeFn()
		return chart.Plot(w, name, sp.Points, chart.PlotOptions{
			Width:  chartPlotWidth,
			Height: chartPlotHeight,
			Title:  chartPlotTitle,
		})
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartBarCmd)
	chartCmd.AddCommand(chartPlotCmd)

	// bar flags
	chartBarCmd.Flags().IntVar(&chartBarWidth, "width", 0,
		"total chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartBarCmd.Flags().IntVar(&chartBarMaxBars, "max-bars", 0,
		"keep only the last N days (0 = no limit)")
	chartBarCmd.Flags().IntVar(&chartBarTicks, "ticks", 5,
		"number of axis steps")

	// plot flags
	chartPlotCmd.Flags().IntVar(&chartPlotWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartPlotCmd.Flags().IntVar(&chartPlotHeight, "height", 12,
		"chart height in rows")
	chartPlotCmd.Flags().StringVar(&chartPlotTitle, "title", "",
		"chart title (default: series name and date range)")
}
