package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/config"
	"github.com/derickschaefer/bc19/internal/observability"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bc19 configuration",
	Long: `Read and write bc19 configuration stored in config.json.

Values resolve in this order, later layers winning: built-in defaults,
config.json, .env, BC19_* environment variables, command-line flags.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  The defaults point at the published bc19.live feeds.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Overrides{
			FeedURL:    globalFlags.FeedURL,
			SchoolsURL: globalFlags.SchoolsURL,
			DBPath:     globalFlags.DBPath,
			LogLevel:   globalFlags.LogLevel,
			Population: globalFlags.Population,
		})
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		env := "(not found)"
		if cfg.EnvPath != "" {
			env = cfg.EnvPath
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		if resolveFormat("") == render.FormatJSON {
			type configOut struct {
				config.File
				ConfigFile string `json:"config_file"`
				EnvFile    string `json:"env_file"`
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				File: config.File{
					FeedURL:         cfg.FeedURL,
					SchoolsURL:      cfg.SchoolsURL,
					DBPath:          cfg.DBPath,
					DefaultFormat:   cfg.Format,
					Timeout:         cfg.Timeout.String(),
					Rate:            cfg.Rate,
					Population:      cfg.Population,
					PositivityStart: cfg.PositivityStart,
					LogLevel:        cfg.LogLevel,
				},
				ConfigFile: src,
				EnvFile:    env,
			})
		}

		rows := [][]string{
			{"feed_url", cfg.FeedURL},
			{"schools_url", cfg.SchoolsURL},
			{"db_path", cfg.DBPath},
			{"default_format", cfg.Format},
			{"timeout", cfg.Timeout.String()},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"population", strconv.FormatFloat(cfg.Population, 'f', -1, 64)},
			{"positivity_start", cfg.PositivityStart},
			{"log_level", cfg.LogLevel},
			{"config_file", src},
			{"env_file", env},
		}
		printKVTableTo(w, rows)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %v\n", err)
		}
		return nil
	},
}

// configKeys lists the keys `config set` accepts, in config.json order.
var configKeys = []string{
	"feed_url", "schools_url", "db_path", "default_format", "timeout",
	"rate", "population", "positivity_start", "log_level",
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value in config.json",
	Args:      cobra.ExactArgs(2),
	ValidArgs: configKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		f := config.Template()
		path := config.DefaultConfigFile
		if existing, err := loadConfigFile(path); err == nil {
			f = *existing
		} else if !os.IsNotExist(err) {
			return err
		}

		if err := setConfigKey(&f, key, val); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// setConfigKey validates val and stores it under key.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "feed_url":
		f.FeedURL = val
	case "schools_url":
		f.SchoolsURL = val
	case "db_path":
		f.DBPath = val
	case "default_format", "format":
		known := false
		for _, format := range render.Formats {
			known = known || format == val
		}
		if !known {
			return fmt.Errorf("default_format must be one of %s", strings.Join(render.Formats, ", "))
		}
		f.DefaultFormat = val
	case "timeout":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("timeout must be a duration such as 30s")
		}
		f.Timeout = val
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "population":
		p, err := strconv.ParseFloat(val, 64)
		if err != nil || p <= 0 {
			return fmt.Errorf("population must be a positive number")
		}
		f.Population = p
	case "positivity_start":
		if _, err := util.ParseDate(val); err != nil {
			return fmt.Errorf("positivity_start: %w", err)
		}
		f.PositivityStart = val
	case "log_level":
		if _, err := observability.ParseLevel(val); err != nil {
			return err
		}
		f.LogLevel = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(configKeys, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// loadConfigFile reads config.json at path; used by configSetCmd.
func loadConfigFile(path string) (*config.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}
