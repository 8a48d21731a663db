package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/app"
	"github.com/derickschaefer/bc19/internal/dashboard"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/pipeline"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/util"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// pipeFormat is resolveFormat for point streams: with no explicit --format,
// a terminal gets a table and a pipe gets JSONL.
func pipeFormat() string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if pipeline.IsTTY() {
		return render.FormatTable
	}
	return render.FormatJSONL
}

// outputWriter returns def, or the --out file when one is set. The returned
// close func must be called once output is complete.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTableTo renders key/value rows without a header.
func printKVTableTo(w io.Writer, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetColumnSeparator("│")
	tw.AppendBulk(rows)
	tw.Render()
}

// newResult wraps data in a Result envelope stamped with the current time.
func newResult(kind, command string, data interface{}, items int, source string, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: util.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			Source:     source,
			DurationMs: util.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

// emit renders result to --out (or stdout) and writes the footer to stderr.
func emit(result *model.Result, format string) error {
	if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
		return err
	}
	if !globalFlags.Quiet {
		render.PrintFooter(os.Stderr, result, globalFlags.Verbose)
	}
	return nil
}

// ─── Feed Input ───────────────────────────────────────────────────────────────

// inputFlags selects local feed files instead of the store or a live fetch.
type inputFlags struct {
	timeline string
	schools  string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.timeline, "input", "", "read the timeline from a file (- for stdin)")
	cmd.Flags().StringVar(&f.schools, "schools", "", "read the schools feed from a file")
}

func (f *inputFlags) input() app.Input {
	return app.Input{
		TimelineFile: f.timeline,
		SchoolsFile:  f.schools,
		Refresh:      globalFlags.Refresh,
	}
}

// loadTimeline resolves the feeds and reduces them.
func loadTimeline(ctx context.Context, deps *app.Deps, in *inputFlags) (*timeline.Timeline, *app.Loaded, error) {
	l, err := deps.Load(ctx, in.input())
	if err != nil {
		return nil, nil, err
	}
	tl, err := deps.Reduce(l)
	if err != nil {
		return nil, nil, err
	}
	return tl, l, nil
}

// loadDashboard resolves the feeds and builds the dashboard dataset.
func loadDashboard(ctx context.Context, deps *app.Deps, in *inputFlags) (*dashboard.Dashboard, *app.Loaded, error) {
	l, err := deps.Load(ctx, in.input())
	if err != nil {
		return nil, nil, err
	}
	db, _, err := deps.Dashboard(l)
	if err != nil {
		return nil, nil, err
	}
	return db, l, nil
}

// missingWarnings turns the categories a dashboard left out into footer
// warnings.
func missingWarnings(db *dashboard.Dashboard) []string {
	var out []string
	for _, c := range db.Missing {
		out = append(out, fmt.Sprintf("%s not reported; its counters and bar graphs are omitted", c))
	}
	return out
}
