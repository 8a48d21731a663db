package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/derickschaefer/bc19/internal/config"
	"github.com/derickschaefer/bc19/internal/dashboard"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/timeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// resetFlags puts every flag in the tree back to its default so that runs
// do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the command tree against a database in dir and returns what
// was written to --out.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	out := filepath.Join(dir, "out.txt")
	_ = os.Remove(out)
	args = append(args, "--quiet", "--db", filepath.Join(dir, "bc19.db"), "--out", out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { resetFlags(rootCmd) })

	err := rootCmd.Execute()
	resetFlags(rootCmd)
	data, _ := os.ReadFile(out)
	return string(data), err
}

var fixture = filepath.Join("testdata", "timeline.json")

// ─── outputWriter ─────────────────────────────────────────────────────────────

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestResolveFormat(t *testing.T) {
	t.Cleanup(func() { globalFlags.Format = "" })

	globalFlags.Format = ""
	if got := resolveFormat(""); got != render.FormatTable {
		t.Errorf("expected table fallback, got %q", got)
	}
	if got := resolveFormat(render.FormatCSV); got != render.FormatCSV {
		t.Errorf("expected config format, got %q", got)
	}
	globalFlags.Format = render.FormatJSON
	if got := resolveFormat(render.FormatCSV); got != render.FormatJSON {
		t.Errorf("flag should win over config, got %q", got)
	}
}

// ─── Formatting ───────────────────────────────────────────────────────────────

func TestCounterFormatting(t *testing.T) {
	if got := counterValue(model.Num(62.5), true); got != "62.5%" {
		t.Errorf("pct counter: got %q", got)
	}
	if got := counterValue(model.Null, true); got != "." {
		t.Errorf("null pct counter: got %q", got)
	}
	if got := joinDeltas([]float64{6, 0, -2}); got != "+6 / +0 / -2" {
		t.Errorf("deltas: got %q", got)
	}
	if got := joinValues([]model.Number{model.Num(104), model.Null}, false); got != "104 / ." {
		t.Errorf("values: got %q", got)
	}
}

func TestMissingWarnings(t *testing.T) {
	db := &dashboard.Dashboard{Missing: []timeline.Category{timeline.CategoryVaccines}}
	warns := missingWarnings(db)
	if len(warns) != 1 || !strings.HasPrefix(warns[0], "vaccines not reported") {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if missingWarnings(&dashboard.Dashboard{}) != nil {
		t.Error("expected no warnings for a complete dashboard")
	}
}

func TestFilterOptions(t *testing.T) {
	opts, err := filterOptions("2021-02-28", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.After.IsZero() || !opts.Before.IsZero() || !opts.DropMissing {
		t.Errorf("unexpected options: %+v", opts)
	}
	if _, err := filterOptions("", "28/02/2021", false); err == nil {
		t.Error("expected error for bad --before date")
	}
}

func TestSetConfigKey(t *testing.T) {
	f := config.Template()
	if err := setConfigKey(&f, "population", "250000"); err != nil {
		t.Fatalf("population: %v", err)
	}
	if f.Population != 250000 {
		t.Errorf("population not applied: %v", f.Population)
	}
	if err := setConfigKey(&f, "format", "csv"); err != nil || f.DefaultFormat != "csv" {
		t.Errorf("format alias: err=%v format=%q", err, f.DefaultFormat)
	}

	bad := map[string]string{
		"rate":             "-1",
		"timeout":          "soon",
		"log_level":        "loud",
		"positivity_start": "April 10",
		"default_format":   "xml",
		"api_key":          "x",
	}
	for key, val := range bad {
		if err := setConfigKey(&f, key, val); err == nil {
			t.Errorf("%s=%s: expected error", key, val)
		}
	}
}

// ─── Command Tree ─────────────────────────────────────────────────────────────

func TestSubcommandRouting(t *testing.T) {
	paths := [][]string{
		{"fetch"},
		{"reduce"},
		{"counters"},
		{"bars"},
		{"latest"},
		{"axis"},
		{"series", "list"},
		{"series", "get"},
		{"series", "summary"},
		{"series", "trend"},
		{"transform", "diff"},
		{"transform", "pct-change"},
		{"transform", "clamp"},
		{"transform", "roll"},
		{"transform", "filter"},
		{"chart", "bar"},
		{"chart", "plot"},
		{"store", "list"},
		{"store", "dashboard"},
		{"store", "stats"},
		{"store", "clear"},
		{"config", "init"},
		{"config", "get"},
		{"config", "set"},
		{"version"},
		{"completion"},
	}
	for _, p := range paths {
		c, _, err := rootCmd.Find(p)
		if err != nil {
			t.Errorf("%v: %v", p, err)
			continue
		}
		if c.Name() != p[len(p)-1] {
			t.Errorf("%v: resolved to %q", p, c.Name())
		}
	}
}

func TestCountersFromFile(t *testing.T) {
	out, err := run(t, t.TempDir(), "counters", "totalCases", "--input", fixture, "--format", "csv")
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	want := "counter,value,change,compared to\ntotalCases,110,+6 / +10 / +10 / +10,104 / 100 / 100 / 100\n"
	if out != want {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCountersUnknownName(t *testing.T) {
	if _, err := run(t, t.TempDir(), "counters", "nope", "--input", fixture); err == nil {
		t.Error("expected error for unknown counter")
	}
}

func TestSeriesGetJSONL(t *testing.T) {
	out, err := run(t, t.TempDir(), "series", "get", timeline.SeriesTotalCases, "--input", fixture, "--after", "2021-02-28", "--format", "jsonl")
	if err != nil {
		t.Fatalf("series get: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after filter, got %d:\n%s", len(lines), out)
	}
	if lines[1] != `{"series":"cases.totalCases","date":"2021-03-01","value":110}` {
		t.Errorf("unexpected line: %s", lines[1])
	}
}

func TestSeriesGetUnknown(t *testing.T) {
	_, err := run(t, t.TempDir(), "series", "get", "cases.nope", "--input", fixture)
	if err == nil || !strings.Contains(err.Error(), "unknown series") {
		t.Errorf("expected unknown series error, got %v", err)
	}
}

func TestSeriesListPrefix(t *testing.T) {
	out, err := run(t, t.TempDir(), "series", "list", "--prefix", "cases.total", "--input", fixture, "--format", "csv")
	if err != nil {
		t.Fatalf("series list: %v", err)
	}
	want := "series,length,non-null,max\ncases.totalCases,4,3,110\n"
	if out != want {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestBarsUnreportedCategory(t *testing.T) {
	_, err := run(t, t.TempDir(), "bars", dashboard.BarsCasesByAge, "--input", fixture)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("expected unavailable bar graph error, got %v", err)
	}
}

func TestBarsUnknownGraph(t *testing.T) {
	if _, err := run(t, t.TempDir(), "bars", "byPlanet", "--input", fixture); err == nil {
		t.Error("expected error for unknown bar graph")
	}
}

func TestLatestFromFile(t *testing.T) {
	out, err := run(t, t.TempDir(), "latest", "--input", fixture, "--format", "csv")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !strings.Contains(out, "cases,2,2021-03-01\n") {
		t.Errorf("expected cases at row 2:\n%s", out)
	}
	if !strings.Contains(out, "vaccines,.,.\n") {
		t.Errorf("expected unreported vaccines:\n%s", out)
	}
}

func TestAxisValues(t *testing.T) {
	out, err := run(t, t.TempDir(), "axis", "187", "--format", "csv")
	if err != nil {
		t.Fatalf("axis: %v", err)
	}
	if !strings.Contains(out, "187,187,25,50,200\n") {
		t.Errorf("unexpected axis output:\n%s", out)
	}
	if _, err := run(t, t.TempDir(), "axis"); err == nil {
		t.Error("expected error with no values")
	}
}

func TestReduceStoreAndReadBack(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "reduce", "--input", fixture, "--schools", filepath.Join("testdata", "schools.json"), "--store")
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	var db struct {
		MonitoringTier  string                    `json:"monitoringTier"`
		ReportTimestamp string                    `json:"reportTimestamp"`
		Counters        map[string]map[string]any `json:"counters"`
	}
	if err := json.Unmarshal([]byte(out), &db); err != nil {
		t.Fatalf("reduce output is not JSON: %v", err)
	}
	if db.MonitoringTier != "Purple" || db.ReportTimestamp != "2021-03-01T12:00:00-08:00" {
		t.Errorf("unexpected dashboard header: %+v", db)
	}
	if _, ok := db.Counters["schoolYearNewStudentCasesTotal"]; !ok {
		t.Error("expected school counters from --schools")
	}

	stored, err := run(t, dir, "store", "dashboard")
	if err != nil {
		t.Fatalf("store dashboard: %v", err)
	}
	if strings.TrimSpace(stored) != strings.TrimSpace(out) {
		t.Error("stored dashboard differs from reduce output")
	}

	list, err := run(t, dir, "store", "list", "--format", "csv")
	if err != nil {
		t.Fatalf("store list: %v", err)
	}
	if !strings.Contains(list, "2021-03-01T12:00:00-08:00,dashboard") {
		t.Errorf("dashboard missing from listing:\n%s", list)
	}
}
