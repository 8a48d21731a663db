package pipeline_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/pipeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// jsonl joins lines with newlines and appends a trailing newline.
func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func pt(day int, v model.Number) model.Point {
	return model.Point{Date: time.Date(2020, time.December, day, 0, 0, 0, 0, time.UTC), Value: v}
}

// ─── ReadPoints ───────────────────────────────────────────────────────────────

func TestReadBasic(t *testing.T) {
	input := jsonl(
		`{"series":"cases.newCases","date":"2020-12-01","value":112}`,
		`{"series":"cases.newCases","date":"2020-12-02","value":87.5}`,
	)
	sp, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Name != "cases.newCases" {
		t.Errorf("Name: expected cases.newCases, got %q", sp.Name)
	}
	if len(sp.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(sp.Points))
	}
	if sp.Points[0].Value != model.Num(112) {
		t.Errorf("points[0]: expected 112, got %s", sp.Points[0].Value)
	}
	if sp.Points[1].Value != model.Num(87.5) {
		t.Errorf("points[1]: expected 87.5, got %s", sp.Points[1].Value)
	}
	want := time.Date(2020, time.December, 2, 0, 0, 0, 0, time.UTC)
	if !sp.Points[1].Date.Equal(want) {
		t.Errorf("points[1].Date: expected %v, got %v", want, sp.Points[1].Date)
	}
}

func TestReadMissingValues(t *testing.T) {
	input := jsonl(
		`{"date":"2020-12-01","value":null}`,
		`{"date":"2020-12-02","value":"."}`,
		`{"date":"2020-12-03","value":""}`,
		`{"date":"2020-12-04"}`,
		`{"date":"2020-12-05","value":"14"}`,
	)
	sp, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 4; i++ {
		if sp.Points[i].Value.Valid {
			t.Errorf("points[%d]: expected null, got %s", i, sp.Points[i].Value)
		}
	}
	if sp.Points[4].Value != model.Num(14) {
		t.Errorf("numeric string: expected 14, got %s", sp.Points[4].Value)
	}
}

func TestReadNameFromFirstRecordCarryingOne(t *testing.T) {
	input := jsonl(
		`{"date":"2020-12-01","value":1}`,
		`{"series":"deaths.newDeaths","date":"2020-12-02","value":2}`,
		`{"series":"other","date":"2020-12-03","value":3}`,
	)
	sp, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Name != "deaths.newDeaths" {
		t.Errorf("Name: expected deaths.newDeaths, got %q", sp.Name)
	}
}

func TestReadSkipsBlankAndCommentLines(t *testing.T) {
	input := jsonl(
		`// exported from bc19`,
		``,
		`{"date":"2020-12-01","value":1}`,
		`   `,
		`{"date":"2020-12-02","value":2}`,
	)
	sp, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sp.Points) != 2 {
		t.Errorf("expected 2 points, got %d", len(sp.Points))
	}
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"blank only":   "\n  \n",
		"invalid json": jsonl(`{"date":"2020-12-01","value":1}`, `{not json}`),
		"bad date":     jsonl(`{"date":"12/01/2020","value":1}`),
		"bad string":   jsonl(`{"date":"2020-12-01","value":"n/a"}`),
	}
	for name, input := range cases {
		if _, err := pipeline.ReadPoints(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestReadErrorNamesLine(t *testing.T) {
	input := jsonl(`{"date":"2020-12-01","value":1}`, `{"date":"bad","value":2}`)
	_, err := pipeline.ReadPoints(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error naming line 2, got %v", err)
	}
}

func TestReadLargeInput(t *testing.T) {
	var sb strings.Builder
	start := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, `{"series":"x","date":"%s","value":%d}`+"\n", start.AddDate(0, 0, i).Format("2006-01-02"), i)
	}
	sp, err := pipeline.ReadPoints(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sp.Points) != 1000 {
		t.Errorf("expected 1000 points, got %d", len(sp.Points))
	}
}

// ─── WritePoints ──────────────────────────────────────────────────────────────

func TestWriteOneLinePerPoint(t *testing.T) {
	var buf bytes.Buffer
	sp := model.SeriesPoints{Name: "cases.newCases", Points: []model.Point{
		pt(1, model.Num(112)),
		pt(2, model.Null),
		pt(3, model.Num(0.25)),
	}}
	if err := pipeline.WritePoints(&buf, sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != `{"series":"cases.newCases","date":"2020-12-01","value":112}` {
		t.Errorf("unexpected line 0: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"value":null`) {
		t.Errorf("null should encode as JSON null: %s", lines[1])
	}
	if !strings.Contains(lines[2], `"value":0.25`) {
		t.Errorf("unexpected line 2: %s", lines[2])
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := pipeline.WritePoints(&buf, model.SeriesPoints{Name: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWriteThenReadKeepsNullsAndName(t *testing.T) {
	in := model.SeriesPoints{Name: "viralTests.testPositivityRate", Points: []model.Point{
		pt(1, model.Num(4.2)),
		pt(2, model.Null),
		pt(3, model.Num(5)),
	}}
	var buf bytes.Buffer
	if err := pipeline.WritePoints(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := pipeline.ReadPoints(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Name != in.Name {
		t.Errorf("Name: expected %q, got %q", in.Name, out.Name)
	}
	for i := range in.Points {
		if out.Points[i].Value != in.Points[i].Value {
			t.Errorf("points[%d]: expected %s, got %s", i, in.Points[i].Value, out.Points[i].Value)
		}
		if !out.Points[i].Date.Equal(in.Points[i].Date) {
			t.Errorf("points[%d].Date: expected %v, got %v", i, in.Points[i].Date, out.Points[i].Date)
		}
	}
}
