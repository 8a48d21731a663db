// Package app wires together configuration, the feed client, the snapshot
// store, logging and metrics into a single Deps struct that commands
// receive at runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/derickschaefer/bc19/internal/config"
	"github.com/derickschaefer/bc19/internal/dashboard"
	"github.com/derickschaefer/bc19/internal/feed"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/observability"
	"github.com/derickschaefer/bc19/internal/store"
	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/util"
)

// Sources reported in ResultStats.Source.
const (
	SourceFile  = "file"
	SourceStore = "store"
	SourceLive  = "live"
)

// ErrNoStore is returned by RequireStore when the database cannot be opened.
var ErrNoStore = errors.New("local store unavailable")

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until a command opens it, or when no database exists yet.
type Deps struct {
	Config  *config.Config
	Client  *feed.Client
	Store   *store.Store
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// New builds a Deps from resolved config. Log output goes to w.
// An existing database is opened; a missing one is left for RequireStore.
func New(cfg *config.Config, w io.Writer) (*Deps, error) {
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger, err := observability.NewLogger(w, level)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	client := feed.NewClient(cfg.FeedURL, cfg.SchoolsURL, cfg.Timeout, cfg.Rate, cfg.Debug)
	client.OnResult = metrics.ObserveFetch

	d := &Deps{
		Config:  cfg,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
	}
	if cfg.DBPath != "" {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			s, err := store.Open(cfg.DBPath)
			if err != nil {
				logger.Warn("store not opened", "path", cfg.DBPath, "err", err)
			} else {
				d.Store = s
			}
		}
	}
	return d, nil
}

// RequireStore opens the database, creating it if needed.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("%w: no db_path configured", ErrNoStore)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoStore, err)
	}
	d.Store = s
	return nil
}

// Close releases the store, if open.
func (d *Deps) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.Warn("closing store", "err", err)
		}
		d.Store = nil
	}
}

// ─── Input Resolution ─────────────────────────────────────────────────────────

// Input selects where the feeds come from.
type Input struct {
	TimelineFile string
	SchoolsFile  string
	// Refresh skips the store and fetches live.
	Refresh bool
}

// Loaded is a decoded feed pair and where it came from.
type Loaded struct {
	Feed        *model.Feed
	Schools     []model.SchoolDay
	Source      string
	TimelineRaw []byte
	SchoolsRaw  []byte
}

// Load resolves feeds in order: the --input file, the latest stored feed
// (unless Refresh), then a live fetch. A file timeline with no schools
// file reduces without school data.
func (d *Deps) Load(ctx context.Context, in Input) (*Loaded, error) {
	l := &Loaded{}
	var err error

	switch {
	case in.TimelineFile != "":
		l.Source = SourceFile
		if l.Feed, l.TimelineRaw, err = feed.ReadTimelineFile(in.TimelineFile); err != nil {
			return nil, err
		}
	case !in.Refresh && d.Store != nil:
		ok, err := d.loadStored(l)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		fallthrough
	default:
		l.Source = SourceLive
		d.Logger.Info("fetching timeline", "url", d.Client.TimelineURL())
		if l.Feed, l.TimelineRaw, err = d.Client.FetchTimeline(ctx); err != nil {
			return nil, err
		}
		if in.SchoolsFile == "" {
			d.Logger.Info("fetching schools", "url", d.Client.SchoolsURL())
			if l.Schools, l.SchoolsRaw, err = d.Client.FetchSchools(ctx); err != nil {
				return nil, err
			}
		}
	}

	if in.SchoolsFile != "" {
		if l.Schools, l.SchoolsRaw, err = feed.ReadSchoolsFile(in.SchoolsFile); err != nil {
			return nil, err
		}
	}
	d.Logger.Debug("feeds loaded", "source", l.Source, "rows", len(l.Feed.Dates), "school_days", len(l.Schools))
	return l, nil
}

// loadStored fills l from the newest stored feeds. ok is false when the
// store holds no timeline.
func (d *Deps) loadStored(l *Loaded) (bool, error) {
	e, ok, err := d.Store.LatestFeed(store.KindTimeline)
	if err != nil || !ok {
		return false, err
	}
	if l.Feed, err = feed.DecodeTimeline(e.Data); err != nil {
		return false, fmt.Errorf("stored %s: %w", e.Key, err)
	}
	l.TimelineRaw = e.Data
	l.Source = SourceStore
	d.Logger.Info("using stored timeline", "key", e.Key, "fetched", util.DayText(e.FetchedAt))

	s, ok, err := d.Store.LatestFeed(store.KindSchools)
	if err != nil {
		return false, err
	}
	if ok {
		if l.Schools, err = feed.DecodeSchools(s.Data); err != nil {
			return false, fmt.Errorf("stored %s: %w", s.Key, err)
		}
		l.SchoolsRaw = s.Data
	}
	return true, nil
}

// Save persists the raw payloads of l to the store.
func (d *Deps) Save(l *Loaded) error {
	if err := d.RequireStore(); err != nil {
		return err
	}
	e, err := d.Store.PutFeed(store.KindTimeline, d.Client.TimelineURL(), l.TimelineRaw)
	if err != nil {
		return fmt.Errorf("storing timeline: %w", err)
	}
	d.Logger.Info("stored timeline", "key", e.Key, "bytes", e.Size())
	if len(l.SchoolsRaw) > 0 {
		e, err := d.Store.PutFeed(store.KindSchools, d.Client.SchoolsURL(), l.SchoolsRaw)
		if err != nil {
			return fmt.Errorf("storing schools: %w", err)
		}
		d.Logger.Info("stored schools", "key", e.Key, "bytes", e.Size())
	}
	return nil
}

// ─── Reduction ────────────────────────────────────────────────────────────────

// Reduce runs the reducer over l with the configured options and records
// run metrics.
func (d *Deps) Reduce(l *Loaded) (*timeline.Timeline, error) {
	opts, err := d.Config.TimelineOptions()
	if err != nil {
		return nil, err
	}
	opts.Schools = l.Schools

	start := time.Now()
	tl, err := timeline.Process(l.Feed.Dates, opts)
	if err != nil {
		d.Metrics.ObserveError(err)
		return nil, fmt.Errorf("reducing timeline: %w", err)
	}
	elapsed := time.Since(start)
	d.Metrics.ObserveReduction(tl, elapsed)
	d.Logger.Info("timeline reduced", "rows", tl.Rows(), "series", len(tl.SeriesNames()), "duration", elapsed)
	return tl, nil
}

// Dashboard reduces l and assembles the dashboard dataset.
func (d *Deps) Dashboard(l *Loaded) (*dashboard.Dashboard, *timeline.Timeline, error) {
	tl, err := d.Reduce(l)
	if err != nil {
		return nil, nil, err
	}
	db, err := dashboard.Build(tl, dashboard.Meta{ReportTimestamp: l.Feed.Timestamp})
	if err != nil {
		d.Metrics.ObserveError(err)
		return nil, nil, fmt.Errorf("building dashboard: %w", err)
	}
	for _, c := range db.Missing {
		d.Logger.Warn("category not reported", "category", c)
	}
	return db, tl, nil
}
