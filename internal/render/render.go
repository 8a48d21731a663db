// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; Render dispatches on the format
// string and, within a format, on Result.Kind.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/pipeline"
	"github.com/olekukonko/tablewriter"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every supported format.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// Render writes result to w in the given format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	case FormatTable, "":
		return renderTable(w, result)
	default:
		return fmt.Errorf("unknown format %q (use %s)", format, strings.Join(Formats, ", "))
	}
}

// RenderTo writes to stdout, or to path when it is non-empty.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── Tabular View ─────────────────────────────────────────────────────────────

// tabular flattens the payloads that have a natural row form. ok is false
// for payloads that only make sense as JSON.
func tabular(result *model.Result) (model.Table, bool) {
	switch d := result.Data.(type) {
	case model.Table:
		return d, true
	case *model.Table:
		return *d, true
	case model.SeriesPoints:
		return pointsTable(d), true
	case *model.SeriesPoints:
		return pointsTable(*d), true
	case []model.SeriesInfo:
		t := model.Table{Headers: []string{"SERIES", "LENGTH", "NON-NULL", "MAX"}}
		for _, s := range d {
			peak := "."
			if s.Max != nil {
				peak = formatValue(model.Num(*s.Max))
			}
			t.Rows = append(t.Rows, []string{s.Name, fmt.Sprint(s.Length), fmt.Sprint(s.NonNull), peak})
		}
		return t, true
	}
	return model.Table{}, false
}

func pointsTable(sp model.SeriesPoints) model.Table {
	t := model.Table{Headers: []string{"SERIES", "DATE", "VALUE"}}
	for _, p := range sp.Points {
		t.Rows = append(t.Rows, []string{sp.Name, p.Date.Format("2006-01-02"), formatValue(p.Value)})
	}
	return t
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes points in the pipe format and table rows as one
// header-keyed object per line. Anything else is one compact line.
func renderJSONL(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case model.SeriesPoints:
		return pipeline.WritePoints(w, d)
	case *model.SeriesPoints:
		return pipeline.WritePoints(w, *d)
	}
	enc := json.NewEncoder(w)
	t, ok := tabular(result)
	if !ok {
		return enc.Encode(result.Data)
	}
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[strings.ToLower(h)] = row[i]
			}
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	t, ok := tabular(result)
	if !ok {
		return renderJSON(w, result)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.AppendBulk(t.Rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	if t, ok := tabular(result); ok {
		headers := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			headers[i] = strings.ToLower(h)
		}
		_ = cw.Write(headers)
		_ = cw.WriteAll(t.Rows)
	} else {
		b, err := json.Marshal(result.Data)
		if err != nil {
			return err
		}
		_ = cw.Write([]string{string(b)})
	}
	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	t, ok := tabular(result)
	if !ok {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(t.Headers, " | "))
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings, and the stats line when verbose is set.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := result.Stats.Source
		if src == "" {
			src = "live"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// FormatValue formats a value for display: up to four decimals with
// trailing zeros trimmed. Null renders as ".".
func FormatValue(v model.Number) string {
	return formatValue(v)
}

func formatValue(v model.Number) string {
	if !v.Valid {
		return "."
	}
	s := fmt.Sprintf("%.4f", v.Value)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
