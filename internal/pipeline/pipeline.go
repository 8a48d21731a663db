// Package pipeline reads and writes point streams on stdin/stdout in JSONL,
// the pipe format shared by `series get`, `transform` and `chart`.
//
// One line per point:
//
//	{"series":"cases.newCases","date":"2020-12-01","value":112}
//	{"series":"cases.newCases","date":"2020-12-02","value":null}
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/util"
)

// maxLine bounds a single JSONL record.
const maxLine = 1024 * 1024

type record struct {
	Series string       `json:"series"`
	Date   string       `json:"date"`
	Value  model.Number `json:"value"`
}

// ReadPoints reads JSONL points from r. The series name is taken from the
// first record that carries one. Blank lines and // comments are skipped.
func ReadPoints(r io.Reader) (model.SeriesPoints, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var out model.SeriesPoints
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return out, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if out.Name == "" {
			out.Name = rec.Series
		}
		date, err := util.ParseDate(rec.Date)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out.Points = append(out.Points, model.Point{Date: date, Value: rec.Value})
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("reading input: %w", err)
	}
	if len(out.Points) == 0 {
		return out, fmt.Errorf("no points read from input (is stdin empty?)")
	}
	return out, nil
}

// WritePoints writes sp as JSONL to w.
func WritePoints(w io.Writer, sp model.SeriesPoints) error {
	enc := json.NewEncoder(w)
	for _, p := range sp.Points {
		rec := record{Series: sp.Name, Date: util.FormatDate(p.Date), Value: p.Value}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY reports whether stdout is a terminal rather than a pipe.
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
