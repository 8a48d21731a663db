package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/derickschaefer/bc19/internal/model"
)

// LabelOffset is the number of leading slots in a columnar series that hold
// the series identifier rather than data. Column LabelOffset+i holds row i.
const LabelOffset = 1

// Series is a named, row-aligned column of nullable values.
// Values[i] belongs to RowIndex i; the label slot is implicit.
type Series struct {
	Name   string
	Values []model.Number
}

// Len returns the columnar length, label slot included.
func (s *Series) Len() int {
	return len(s.Values) + LabelOffset
}

// Row returns the value for RowIndex i, or Null when i is out of range.
func (s *Series) Row(i int) model.Number {
	if i < 0 || i >= len(s.Values) {
		return model.Null
	}
	return s.Values[i]
}

// Column returns the value at columnar index col. The label slot and
// out-of-range columns return Null.
func (s *Series) Column(col int) model.Number {
	return s.Row(col - LabelOffset)
}

// Max returns the largest valid value. ok is false when every value is null.
func (s *Series) Max() (max float64, ok bool) {
	for _, v := range s.Values {
		if !v.Valid {
			continue
		}
		if !ok || v.Value > max {
			max, ok = v.Value, true
		}
	}
	return max, ok
}

// NonNull counts the valid values.
func (s *Series) NonNull() int {
	n := 0
	for _, v := range s.Values {
		if v.Valid {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the columnar form: [name, v0, v1, ...].
func (s *Series) MarshalJSON() ([]byte, error) {
	col := make([]interface{}, 0, s.Len())
	col = append(col, s.Name)
	for _, v := range s.Values {
		col = append(col, v)
	}
	return json.Marshal(col)
}

// UnmarshalJSON decodes the columnar form produced by MarshalJSON.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < LabelOffset {
		return fmt.Errorf("series: missing label slot")
	}
	if err := json.Unmarshal(raw[0], &s.Name); err != nil {
		return fmt.Errorf("series: label: %w", err)
	}
	s.Values = make([]model.Number, len(raw)-LabelOffset)
	for i, r := range raw[LabelOffset:] {
		if err := json.Unmarshal(r, &s.Values[i]); err != nil {
			return fmt.Errorf("series %s: column %d: %w", s.Name, i+LabelOffset, err)
		}
	}
	return nil
}

// ─── Row Accumulator ──────────────────────────────────────────────────────────

// accumulator owns every output series during a scan. Values are staged per
// row and pushed on commit, so each series gets exactly one value per row;
// a series not staged in a row receives Null.
type accumulator struct {
	series map[string]*Series
	order  []string
	staged map[string]model.Number
	rows   int
}

func newAccumulator(capacity int) *accumulator {
	return &accumulator{
		series: make(map[string]*Series),
		staged: make(map[string]model.Number),
		rows:   capacity,
	}
}

// define registers a series. Defining the same name twice is a no-op.
func (a *accumulator) define(names ...string) {
	for _, name := range names {
		if _, ok := a.series[name]; ok {
			continue
		}
		a.series[name] = &Series{Name: name, Values: make([]model.Number, 0, a.rows)}
		a.order = append(a.order, name)
	}
}

// set stages the current row's value for name.
func (a *accumulator) set(name string, v model.Number) {
	if _, ok := a.series[name]; !ok {
		panic("timeline: set on undefined series " + name)
	}
	a.staged[name] = v
}

// commit pushes one value into every series and clears the stage.
func (a *accumulator) commit() {
	for _, name := range a.order {
		a.series[name].Values = append(a.series[name].Values, a.staged[name])
	}
	clear(a.staged)
}
