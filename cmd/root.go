// Package cmd implements the bc19 CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/app"
	"github.com/derickschaefer/bc19/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format     string
	Out        string
	Refresh    bool
	Timeout    string
	Rate       float64
	Quiet      bool
	Verbose    bool
	Debug      bool
	FeedURL    string
	SchoolsURL string
	DBPath     string
	LogLevel   string
	Population float64
}

// rootCmd is the base command. Running `bc19` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "bc19",
	Short: "bc19 — county COVID-19 dashboard data CLI",
	Long: `bc19 reduces the published county COVID-19 daily timeline into the
dashboard dataset: row-aligned timeline series, headline counters with
look-back comparisons, categorical bar graphs, and axis maxima.

Quick start:
  bc19 fetch --store             # download and keep today's feeds
  bc19 reduce --out dash.json    # build the dashboard dataset
  bc19 counters                  # headline numbers
  bc19 series get cases.newCases | bc19 chart bar`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// userMessager is implemented by errors that carry a plain-language message.
type userMessager interface {
	UserMessage() string
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var um userMessager
		if errors.As(err, &um) {
			fmt.Fprintln(os.Stderr, "Error:", um.UserMessage())
			if globalFlags.Debug {
				fmt.Fprintln(os.Stderr, "  detail:", err)
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(config.Overrides{
		FeedURL:    globalFlags.FeedURL,
		SchoolsURL: globalFlags.SchoolsURL,
		DBPath:     globalFlags.DBPath,
		LogLevel:   globalFlags.LogLevel,
		Population: globalFlags.Population,
	})
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Refresh = globalFlags.Refresh
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: invalid duration %q", globalFlags.Timeout)
		}
		cfg.Timeout = d
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps, err := app.New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(deps.Logger)
	return deps, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.BoolVar(&globalFlags.Refresh, "refresh", false,
		"ignore stored feeds and fetch live")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max feed requests per second (default: 2.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show source/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"debug logging, including HTTP requests")
	pf.StringVar(&globalFlags.FeedURL, "feed-url", "",
		"timeline feed URL (overrides env BC19_FEED_URL and config.json)")
	pf.StringVar(&globalFlags.SchoolsURL, "schools-url", "",
		"schools feed URL (overrides env BC19_SCHOOLS_URL and config.json)")
	pf.StringVar(&globalFlags.DBPath, "db", "",
		"local store path (default: ~/.bc19/bc19.db)")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "",
		"log level: debug|info|warn|error (default: warn)")
	pf.Float64Var(&globalFlags.Population, "population", 0,
		"county population used for per-100k rates")
}
