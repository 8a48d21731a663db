package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is overwritten at release time:
//
//	go build -ldflags "-X github.com/derickschaefer/bc19/cmd.Version=v0.4.0"
var Version = "v0.3.0"

// BuildTime is optionally injected alongside Version.
var BuildTime = ""

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	Revision  string `json:"revision,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bc19 version and build information",
	Long: `Print the bc19 version string and build metadata.

Default output is plain text. Use --format json for structured output,
or --format jsonl for a single line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			Revision:  vcsRevision(),
			BuildTime: BuildTime,
		}

		out := cmd.OutOrStdout()
		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case "jsonl":
			return json.NewEncoder(out).Encode(info)

		default:
			fmt.Fprintf(out, "bc19 %s\n", info.Version)
			fmt.Fprintf(out, "go   %s\n", info.GoVersion)
			fmt.Fprintf(out, "os   %s/%s\n", info.GOOS, info.GOARCH)
			if info.Revision != "" {
				fmt.Fprintf(out, "rev  %s\n", info.Revision)
			}
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built %s\n", info.BuildTime)
			}
			return nil
		}
	},
}

// vcsRevision reads the commit hash the go tool stamps into the binary.
func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return s.Value[:12]
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
