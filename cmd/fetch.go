package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/app"
	"github.com/derickschaefer/bc19/internal/model"
)

var fetchStore bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the timeline and schools feeds",
	Long: `Fetch downloads the published timeline and schools feeds and reports
what they contain. The store is never read; use --store to keep the
payloads for offline reduction.`,
	Example: `  bc19 fetch
  bc19 fetch --store
  bc19 fetch --feed-url https://example.org/timeline.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		l, err := deps.Load(cmd.Context(), app.Input{Refresh: true})
		if err != nil {
			return err
		}
		if fetchStore {
			if err := deps.Save(l); err != nil {
				return err
			}
		}

		t := model.Table{Headers: []string{"FEED", "URL", "ENTRIES", "FIRST", "LAST", "BYTES"}}
		t.Rows = append(t.Rows, []string{
			"timeline", deps.Client.TimelineURL(), fmt.Sprint(len(l.Feed.Dates)),
			l.Feed.FirstDate(), l.Feed.LastDate(), fmt.Sprint(len(l.TimelineRaw)),
		})
		first, last := schoolRange(l.Schools)
		t.Rows = append(t.Rows, []string{
			"schools", deps.Client.SchoolsURL(), fmt.Sprint(len(l.Schools)),
			first, last, fmt.Sprint(len(l.SchoolsRaw)),
		})

		result := newResult(model.KindTable, "fetch", t, len(t.Rows), l.Source, start)
		return emit(result, resolveFormat(deps.Config.Format))
	},
}

func schoolRange(days []model.SchoolDay) (string, string) {
	if len(days) == 0 {
		return "", ""
	}
	return days[0].Date, days[len(days)-1].Date
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchStore, "store", false, "persist the fetched payloads to the local store")
}
