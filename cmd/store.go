package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/store"
	"github.com/derickschaefer/bc19/internal/util"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local feed and dashboard store",
	Long: `Commands for the local bbolt database.

Feeds are kept with 'bc19 fetch --store' or 'bc19 reduce --store'.
Reduced dashboards are kept with 'bc19 reduce --store'. Data persists
until you explicitly clear it.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored feeds, newest first, and stored dashboards",
	Example: `  bc19 store list
  bc19 store list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		feeds, err := deps.Store.ListFeeds()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		dashboards, err := deps.Store.ListDashboards()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		if len(feeds) == 0 && len(dashboards) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: bc19 fetch --store")
			return nil
		}

		t := model.Table{Headers: []string{"KEY", "KIND", "FETCHED", "SIZE", "URL"}}
		for _, f := range feeds {
			t.Rows = append(t.Rows, []string{f.Key, f.Kind, util.DayText(f.FetchedAt), humanBytes(int64(f.Bytes)), f.URL})
		}
		for i := len(dashboards) - 1; i >= 0; i-- {
			t.Rows = append(t.Rows, []string{dashboards[i], "dashboard", "", "", ""})
		}
		result := newResult(model.KindTable, cmd.CommandPath(), t, len(t.Rows), "store", start)
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

// ─── store dashboard ──────────────────────────────────────────────────────────

var storeDashboardCmd = &cobra.Command{
	Use:   "dashboard [REPORT_TIMESTAMP]",
	Short: "Print a stored dashboard dataset (latest by default)",
	Example: `  bc19 store dashboard
  bc19 store dashboard "Mar 1, 2021 12:00 PM" --out dash.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		data, ok, err := deps.Store.GetDashboard(key)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			if key == "" {
				return fmt.Errorf("no stored dashboards\n\n  Use: bc19 reduce --store")
			}
			return fmt.Errorf("no stored dashboard for %q (see `bc19 store list`)", key)
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		_, err = w.Write(append(data, '\n'))
		return err
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  bc19 store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", deps.Store.Path())
		fmt.Fprintf(cmd.OutOrStdout(), "Schema:   v%s (created %s)\n\n",
			deps.Store.Meta("schema_version"), deps.Store.Meta("created_at"))
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var (
	storeClearAll    bool
	storeClearBucket string
)

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local store",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the database file after clearing; free pages are
reused on the next write.`,
	Example: `  bc19 store clear --all
  bc19 store clear --bucket dashboards`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll && storeClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <name>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if storeClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			return nil
		}

		if err := deps.Store.ClearBucket(storeClearBucket); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", storeClearBucket)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDashboardCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear all buckets")
	storeClearCmd.Flags().StringVar(&storeClearBucket, "bucket", "",
		"clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
