// Package config handles loading and resolving bc19 configuration.
// Resolution order (later layers win):
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. .env in the current working directory (never overrides real env)
//  4. BC19_* environment variables
//  5. CLI flags
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/derickschaefer/bc19/internal/feed"
	"github.com/derickschaefer/bc19/internal/observability"
	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/util"
)

const (
	DefaultConfigFile      = "config.json"
	DefaultEnvFile         = ".env"
	DefaultFormat          = "table"
	DefaultTimeout         = 30 * time.Second
	DefaultRate            = 2.0
	DefaultLogLevel        = "warn"
	DefaultPositivityStart = "2020-04-10"

	EnvFeedURL    = "BC19_FEED_URL"
	EnvSchoolsURL = "BC19_SCHOOLS_URL"
	EnvDBPath     = "BC19_DB_PATH"
	EnvLogLevel   = "BC19_LOG_LEVEL"
	EnvPopulation = "BC19_POPULATION"
)

// File is the on-disk representation of config.json.
type File struct {
	FeedURL         string  `json:"feed_url"`
	SchoolsURL      string  `json:"schools_url"`
	DBPath          string  `json:"db_path"`
	DefaultFormat   string  `json:"default_format"`
	Timeout         string  `json:"timeout"`
	Rate            float64 `json:"rate"`
	Population      float64 `json:"population"`
	PositivityStart string  `json:"positivity_start"`
	LogLevel        string  `json:"log_level"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	FeedURL         string
	SchoolsURL      string
	DBPath          string
	Format          string
	Timeout         time.Duration
	Rate            float64
	Population      float64
	PositivityStart string
	LogLevel        string
	ConfigPath      string // path of the config.json that was loaded (empty if none found)
	EnvPath         string // path of the .env that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Refresh bool
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Overrides carries persistent CLI flag values. Zero values are unset.
type Overrides struct {
	FeedURL    string
	SchoolsURL string
	DBPath     string
	LogLevel   string
	Population float64
}

// Load resolves configuration from all sources. A missing config.json or
// .env is fine; a malformed one is an error.
func Load(flags Overrides) (*Config, error) {
	cfg := &Config{
		FeedURL:         feed.DefaultTimelineURL,
		SchoolsURL:      feed.DefaultSchoolsURL,
		Format:          DefaultFormat,
		Timeout:         DefaultTimeout,
		Rate:            DefaultRate,
		Population:      timeline.DefaultPopulation,
		PositivityStart: DefaultPositivityStart,
		LogLevel:        DefaultLogLevel,
	}

	// Layer 1: config.json
	f, path, err := loadFile()
	if err != nil {
		return nil, err
	}
	if f != nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: .env, exported only where the real environment is silent
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
		}
		cfg.EnvPath, _ = filepath.Abs(DefaultEnvFile)
	}

	// Layer 3: environment variables
	if v := os.Getenv(EnvFeedURL); v != "" {
		cfg.FeedURL = v
	}
	if v := os.Getenv(EnvSchoolsURL); v != "" {
		cfg.SchoolsURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPopulation); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", EnvPopulation, v)
		}
		cfg.Population = n
	}

	// Layer 4: CLI flags
	if flags.FeedURL != "" {
		cfg.FeedURL = flags.FeedURL
	}
	if flags.SchoolsURL != "" {
		cfg.SchoolsURL = flags.SchoolsURL
	}
	if flags.DBPath != "" {
		cfg.DBPath = flags.DBPath
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.Population > 0 {
		cfg.Population = flags.Population
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".bc19", "bc19.db")
		}
	}

	return cfg, nil
}

// Validate returns an error for values the reducer or logger cannot use.
func (c *Config) Validate() error {
	var errs util.MultiError
	if c.Population <= 0 {
		errs.Add(fmt.Errorf("population must be positive (got %g)", c.Population))
	}
	if _, err := util.ParseDate(c.PositivityStart); err != nil {
		errs.Add(fmt.Errorf("positivity_start: %w", err))
	}
	if _, err := observability.ParseLevel(c.LogLevel); err != nil {
		errs.Add(err)
	}
	if c.Rate <= 0 {
		errs.Add(fmt.Errorf("rate must be positive (got %g)", c.Rate))
	}
	return errs.Err()
}

// TimelineOptions returns reducer options with this config's population
// and positivity gate applied over the defaults.
func (c *Config) TimelineOptions() (timeline.Options, error) {
	opts := timeline.DefaultOptions()
	if c.Population > 0 {
		opts.Population = c.Population
	}
	if c.PositivityStart != "" {
		d, err := util.ParseDate(c.PositivityStart)
		if err != nil {
			return opts, fmt.Errorf("positivity_start: %w", err)
		}
		opts.PositivityStart = d
	}
	return opts, nil
}

// loadFile reads config.json from the current working directory.
// Returns (nil, "", nil) when there is no file.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.FeedURL != "" {
		cfg.FeedURL = f.FeedURL
	}
	if f.SchoolsURL != "" {
		cfg.SchoolsURL = f.SchoolsURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.Population > 0 {
		cfg.Population = f.Population
	}
	if f.PositivityStart != "" {
		cfg.PositivityStart = f.PositivityStart
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
}

// Template returns a File populated with the defaults, suitable for
// writing an initial config.json via `bc19 config init`.
func Template() File {
	return File{
		FeedURL:         feed.DefaultTimelineURL,
		SchoolsURL:      feed.DefaultSchoolsURL,
		DefaultFormat:   DefaultFormat,
		Timeout:         DefaultTimeout.String(),
		Rate:            DefaultRate,
		Population:      timeline.DefaultPopulation,
		PositivityStart: DefaultPositivityStart,
		LogLevel:        DefaultLogLevel,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
