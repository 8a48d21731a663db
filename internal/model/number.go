package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a nullable numeric leaf. A zero Number is null ("not yet
// reported"), which is distinct from a valid 0 ("reported as zero").
type Number struct {
	Value float64
	Valid bool
}

// Null is the missing value.
var Null = Number{}

// Num returns a valid Number. NaN and ±Inf collapse to Null so that no
// arithmetic artifact ever reaches a series.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return Number{Value: v, Valid: true}
}

// FromPtr converts a *float64 (nil = missing) into a Number.
func FromPtr(p *float64) Number {
	if p == nil {
		return Null
	}
	return Num(*p)
}

// Ptr returns nil for Null, or a pointer to a copy of the value.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Or returns the value, or def when n is Null.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// String formats the value for display, showing "." for Null.
func (n Number) String() string {
	if !n.Valid {
		return "."
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// MarshalJSON encodes Null as JSON null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts null, a JSON number, or a numeric string.
// Empty strings and "." decode to Null.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Null
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		if !n.Valid && strings.TrimSpace(s) != "" && strings.TrimSpace(s) != "." {
			return fmt.Errorf("invalid numeric string %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = Num(v)
	return nil
}

// ParseNumber parses s, returning Null for "", "." or anything unparsable.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return Null
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null
	}
	return Num(v)
}
