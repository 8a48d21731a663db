package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/pipeline"
	"github.com/derickschaefer/bc19/internal/transform"
	"github.com/derickschaefer/bc19/internal/util"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform a series (reads JSONL from stdin)",
	Long: `Transform operators read JSONL points from stdin and write to stdout.
Every operator except filter keeps one output point per input point, so
null gaps stay where they were.

Pipeline example:
  bc19 series get cases.totalCases | bc19 transform diff
  bc19 series get cases.newCases | bc19 transform roll --window 7 | bc19 chart plot`,
}

// ─── diff ─────────────────────────────────────────────────────────────────────

var transformDiffLag int

var transformDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Difference from N days earlier: v[t] - v[t-N]",
	Example: `  bc19 series get cases.totalCases | bc19 transform diff
  bc19 series get isolation.current | bc19 transform diff --lag 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		out, err := transform.Diff(sp.Points, transformDiffLag)
		if err != nil {
			return err
		}
		return writeTransformOutput(sp.Name, out)
	},
}

// ─── pct-change ───────────────────────────────────────────────────────────────

var transformPctPeriod int

var transformPctCmd = &cobra.Command{
	Use:   "pct-change",
	Short: "Percent change from N days earlier: (v[t]-v[t-N])/|v[t-N]| * 100",
	Example: `  bc19 series get hospitalizations.total | bc19 transform pct-change
  bc19 series get cases.newCases | bc19 transform pct-change --period 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		out, err := transform.PctChange(sp.Points, transformPctPeriod)
		if err != nil {
			return err
		}
		return writeTransformOutput(sp.Name, out)
	},
}

// ─── clamp ────────────────────────────────────────────────────────────────────

var transformClampMin float64

var transformClampCmd = &cobra.Command{
	Use:   "clamp",
	Short: "Raise values below --min to --min (nulls stay null)",
	Example: `  bc19 series get cases.totalCases | bc19 transform diff | bc19 transform clamp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		return writeTransformOutput(sp.Name, transform.Clamp(sp.Points, transformClampMin))
	},
}

// ─── roll ─────────────────────────────────────────────────────────────────────

var (
	transformRollWindow     int
	transformRollMinPeriods int
	transformRollStat       string
)

var transformRollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Rolling window statistic: mean, std, min, max, or sum",
	Example: `  bc19 series get cases.newCases | bc19 transform roll --window 7
  bc19 series get viralTests.newTests | bc19 transform roll --stat sum --window 7 --min-periods 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		out, err := transform.Roll(sp.Points, transformRollWindow, transformRollMinPeriods, transform.RollStat(transformRollStat))
		if err != nil {
			return err
		}
		return writeTransformOutput(sp.Name, out)
	},
}

// ─── filter ───────────────────────────────────────────────────────────────────

var (
	transformFilterAfter  string
	transformFilterBefore string
	transformFilterDrop   bool
)

var transformFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep points inside a date range, optionally dropping nulls",
	Example: `  bc19 series get cases.newCases | bc19 transform filter --after 2021-01-01
  bc19 series get vaccines.administered | bc19 transform filter --drop-missing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := filterOptions(transformFilterAfter, transformFilterBefore, transformFilterDrop)
		if err != nil {
			return err
		}
		sp, err := pipeline.ReadPoints(os.Stdin)
		if err != nil {
			return err
		}
		return writeTransformOutput(sp.Name, transform.Filter(sp.Points, opts))
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.AddCommand(transformDiffCmd)
	transformCmd.AddCommand(transformPctCmd)
	transformCmd.AddCommand(transformClampCmd)
	transformCmd.AddCommand(transformRollCmd)
	transformCmd.AddCommand(transformFilterCmd)

	transformDiffCmd.Flags().IntVar(&transformDiffLag, "lag", 1, "days between compared points")

	transformPctCmd.Flags().IntVar(&transformPctPeriod, "period", 1, "lag period in days (7 = week over week)")

	transformClampCmd.Flags().Float64Var(&transformClampMin, "min", 0, "lower bound")

	transformRollCmd.Flags().IntVar(&transformRollWindow, "window", 7, "window size in days")
	transformRollCmd.Flags().IntVar(&transformRollMinPeriods, "min-periods", 1, "minimum non-null values required in window")
	transformRollCmd.Flags().StringVar(&transformRollStat, "stat", string(transform.RollMean), "statistic: mean|std|min|max|sum")

	transformFilterCmd.Flags().StringVar(&transformFilterAfter, "after", "", "drop points before YYYY-MM-DD")
	transformFilterCmd.Flags().StringVar(&transformFilterBefore, "before", "", "drop points after YYYY-MM-DD")
	transformFilterCmd.Flags().BoolVar(&transformFilterDrop, "drop-missing", false, "drop null points")
}

// ─── Output helper ────────────────────────────────────────────────────────────

// writeTransformOutput writes points to --out or stdout: JSONL when piped,
// a table on a terminal, or whatever --format asks for.
func writeTransformOutput(name string, pts []model.Point) error {
	sp := model.SeriesPoints{Name: name, Points: pts}
	result := newResult(model.KindSeries, "transform", sp, len(pts), "", util.Now())
	return emit(result, pipeFormat())
}
