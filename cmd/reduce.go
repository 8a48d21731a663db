package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/app"
)

var (
	reduceInput       inputFlags
	reduceStore       bool
	reduceMetricsFile string
	reduceCompact     bool
)

var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Reduce the timeline into the dashboard dataset (JSON)",
	Long: `Reduce runs the timeline reducer and writes the dashboard dataset:
bar graphs, counters, latest rows, group maxima, the monitoring tier,
and every timeline graph in columnar form.

Feeds come from --input/--schools when given, otherwise from the newest
stored feeds, otherwise from a live fetch (--refresh forces live).

--store keeps the dataset (and any freshly fetched feeds) in the local
store. --metrics-file writes run metrics in Prometheus text format, also
when the reduction fails.`,
	Example: `  bc19 reduce --out dashboard.json
  bc19 reduce --input timeline.json --schools schools.json --compact
  bc19 reduce --refresh --store --metrics-file /var/lib/node_exporter/bc19.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if reduceMetricsFile != "" {
			defer func() {
				if werr := deps.Metrics.WriteTextfile(reduceMetricsFile); werr != nil {
					slog.Warn("writing metrics", "path", reduceMetricsFile, "err", werr)
				}
			}()
		}

		l, err := deps.Load(cmd.Context(), reduceInput.input())
		if err != nil {
			return err
		}
		db, _, err := deps.Dashboard(l)
		if err != nil {
			return err
		}

		var data []byte
		if reduceCompact {
			data, err = json.Marshal(db)
		} else {
			data, err = json.MarshalIndent(db, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("encoding dashboard: %w", err)
		}

		if reduceStore {
			if l.Source == app.SourceLive {
				if err := deps.Save(l); err != nil {
					return err
				}
			}
			if err := deps.RequireStore(); err != nil {
				return err
			}
			key := db.ReportTimestamp
			if key == "" {
				key = l.Feed.LastDate()
			}
			if err := deps.Store.PutDashboard(key, data); err != nil {
				return err
			}
			slog.Info("stored dashboard", "key", key, "bytes", len(data))
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}

		if !globalFlags.Quiet {
			for _, warn := range missingWarnings(db) {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", warn)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reduceCmd)
	reduceInput.register(reduceCmd)
	reduceCmd.Flags().BoolVar(&reduceStore, "store", false, "keep the dataset in the local store")
	reduceCmd.Flags().StringVar(&reduceMetricsFile, "metrics-file", "", "write run metrics to this file (Prometheus text format)")
	reduceCmd.Flags().BoolVar(&reduceCompact, "compact", false, "write compact JSON")
}
