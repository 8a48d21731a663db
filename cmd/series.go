package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/analyze"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/pipeline"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/transform"
	"github.com/derickschaefer/bc19/internal/util"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List, export and analyze reduced timeline series",
	Long: `Commands for the row-aligned series the reducer produces.

Series are named by dotted path, for example:
  cases.newCases                  new cases per day
  cases.oneWeekNewCaseRate        7-day cases per 100k residents
  viralTests.testPositivityRate   7-day test positivity (%)
  hospitalizations.byHospital.*   per-facility patients

summary and trend take a series name, or read the JSONL pipe format
from stdin when no name is given.`,
}

// ─── series list ──────────────────────────────────────────────────────────────

var (
	seriesListInput  inputFlags
	seriesListPrefix string
)

var seriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every reduced series with its length and maximum",
	Example: `  bc19 series list
  bc19 series list --prefix vaccines.
  bc19 series list --input timeline.json --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		tl, l, err := loadTimeline(cmd.Context(), deps, &seriesListInput)
		if err != nil {
			return err
		}

		var infos []model.SeriesInfo
		for _, name := range tl.SeriesNames() {
			if !strings.HasPrefix(name, seriesListPrefix) {
				continue
			}
			s, _ := tl.Series(name)
			info := model.SeriesInfo{Name: name, Length: s.Len(), NonNull: s.NonNull()}
			if peak, ok := s.Max(); ok {
				info.Max = &peak
			}
			infos = append(infos, info)
		}

		result := newResult(model.KindSeriesList, cmd.CommandPath(), infos, len(infos), l.Source, start)
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

// ─── series get ───────────────────────────────────────────────────────────────

var (
	seriesGetInput  inputFlags
	seriesGetAfter  string
	seriesGetBefore string
	seriesGetDrop   bool
)

var seriesGetCmd = &cobra.Command{
	Use:   "get <SERIES>",
	Short: "Export one series as dated points (JSONL when piped)",
	Example: `  bc19 series get cases.newCases
  bc19 series get cases.newCases --after 2021-01-01 | bc19 chart bar
  bc19 series get viralTests.testPositivityRate --format csv --out pos.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := filterOptions(seriesGetAfter, seriesGetBefore, seriesGetDrop)
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		tl, l, err := loadTimeline(cmd.Context(), deps, &seriesGetInput)
		if err != nil {
			return err
		}
		sp, ok := tl.Points(args[0])
		if !ok {
			return fmt.Errorf("unknown series %q (see `bc19 series list`)", args[0])
		}
		sp.Points = transform.Filter(sp.Points, opts)

		result := newResult(model.KindSeries, cmd.CommandPath()+" "+args[0], sp, len(sp.Points), l.Source, start)
		return emit(result, pipeFormat())
	},
}

func filterOptions(after, before string, drop bool) (transform.FilterOptions, error) {
	opts := transform.FilterOptions{DropMissing: drop}
	var err error
	if after != "" {
		if opts.After, err = util.ParseDate(after); err != nil {
			return opts, fmt.Errorf("--after: %w", err)
		}
	}
	if before != "" {
		if opts.Before, err = util.ParseDate(before); err != nil {
			return opts, fmt.Errorf("--before: %w", err)
		}
	}
	return opts, nil
}

// ─── series summary ───────────────────────────────────────────────────────────

var seriesSummaryInput inputFlags

var seriesSummaryCmd = &cobra.Command{
	Use:   "summary [SERIES]",
	Short: "Descriptive statistics: mean, spread, quartiles, peak, change",
	Example: `  bc19 series summary cases.newCases
  bc19 series get cases.newCases | bc19 transform roll --window 7 | bc19 series summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := seriesPoints(cmd, args, &seriesSummaryInput)
		if err != nil {
			return err
		}
		s := analyze.Summarize(sp.Name, sp.Points)

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if resolveFormat("") == render.FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}

		rows := [][]string{
			{"series", s.Series},
			{"count", fmt.Sprintf("%d", s.Count)},
			{"missing", fmt.Sprintf("%d (%.1f%%)", s.Missing, s.MissingPct)},
			{"mean", render.FormatValue(s.Mean)},
			{"std", render.FormatValue(s.Std)},
			{"min", render.FormatValue(s.Min)},
			{"p25", render.FormatValue(s.P25)},
			{"median", render.FormatValue(s.Median)},
			{"p75", render.FormatValue(s.P75)},
			{"max", render.FormatValue(s.Max)},
			{"peak_date", s.PeakDate},
			{"first", render.FormatValue(s.First)},
			{"last", render.FormatValue(s.Last)},
			{"last_date", s.LastDate},
			{"change", render.FormatValue(s.Change)},
			{"change_pct", fmtPct(s.ChangePct)},
		}
		printKVTableTo(w, rows)
		return nil
	},
}

func fmtPct(v model.Number) string {
	if !v.Valid {
		return "."
	}
	return fmt.Sprintf("%+.2f%%", v.Value)
}

// ─── series trend ─────────────────────────────────────────────────────────────

var (
	seriesTrendInput  inputFlags
	seriesTrendMethod string
)

var seriesTrendCmd = &cobra.Command{
	Use:   "trend [SERIES]",
	Short: "Fit a trend line: slope per day and week, R², direction",
	Example: `  bc19 series trend cases.newCases
  bc19 series get hospitalizations.total --after 2021-01-01 | bc19 series trend --method theil-sen`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := seriesPoints(cmd, args, &seriesTrendInput)
		if err != nil {
			return err
		}
		tr, err := analyze.Trend(sp.Name, sp.Points, analyze.TrendMethod(seriesTrendMethod))
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if resolveFormat("") == render.FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(tr)
		}

		rows := [][]string{
			{"series", tr.Series},
			{"method", string(tr.Method)},
			{"points", fmt.Sprintf("%d", tr.Points)},
			{"direction", tr.Direction},
			{"slope_per_day", fmt.Sprintf("%.6f", tr.Slope)},
			{"slope_per_week", fmt.Sprintf("%.4f", tr.SlopePerWeek)},
			{"intercept", fmt.Sprintf("%.4f", tr.Intercept)},
			{"r2", fmt.Sprintf("%.4f", tr.R2)},
		}
		printKVTableTo(w, rows)
		return nil
	},
}

// seriesPoints reduces the timeline and returns the named series, or reads
// points from stdin when no name is given.
func seriesPoints(cmd *cobra.Command, args []string, in *inputFlags) (model.SeriesPoints, error) {
	if len(args) == 0 {
		return pipeline.ReadPoints(os.Stdin)
	}
	deps, err := buildDeps()
	if err != nil {
		return model.SeriesPoints{}, err
	}
	defer deps.Close()

	tl, _, err := loadTimeline(cmd.Context(), deps, in)
	if err != nil {
		return model.SeriesPoints{}, err
	}
	sp, ok := tl.Points(args[0])
	if !ok {
		return model.SeriesPoints{}, fmt.Errorf("unknown series %q (see `bc19 series list`)", args[0])
	}
	return sp, nil
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesCmd.AddCommand(seriesListCmd)
	seriesCmd.AddCommand(seriesGetCmd)
	seriesCmd.AddCommand(seriesSummaryCmd)
	seriesCmd.AddCommand(seriesTrendCmd)

	seriesListInput.register(seriesListCmd)
	seriesListCmd.Flags().StringVar(&seriesListPrefix, "prefix", "", "only list series whose name starts with this")

	seriesGetInput.register(seriesGetCmd)
	seriesGetCmd.Flags().StringVar(&seriesGetAfter, "after", "", "drop points before YYYY-MM-DD")
	seriesGetCmd.Flags().StringVar(&seriesGetBefore, "before", "", "drop points after YYYY-MM-DD")
	seriesGetCmd.Flags().BoolVar(&seriesGetDrop, "drop-missing", false, "drop null points")

	seriesSummaryInput.register(seriesSummaryCmd)

	seriesTrendInput.register(seriesTrendCmd)
	seriesTrendCmd.Flags().StringVar(&seriesTrendMethod, "method", string(analyze.TrendLinear), "fit method: linear|theil-sen")
}
