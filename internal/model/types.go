// Package model defines the canonical data types used throughout bc19.
// These types are the single source of truth for the published timeline
// feed, the school outbreak log, and the result envelope that every command
// returns.
package model

import (
	"time"
)

// ─── Feed Types ───────────────────────────────────────────────────────────────

// Feed is the decoded timeline.json document.
// Only Dates is required by the reducer; the rest is transport metadata.
type Feed struct {
	Timestamp string        `json:"timestamp"`
	Dates     []DailyRecord `json:"dates"`
}

// FirstDate returns the date of the first record, or "" for an empty feed.
func (f *Feed) FirstDate() string {
	if len(f.Dates) == 0 {
		return ""
	}
	return f.Dates[0].Date
}

// LastDate returns the date of the last record, or "" for an empty feed.
func (f *Feed) LastDate() string {
	if len(f.Dates) == 0 {
		return ""
	}
	return f.Dates[len(f.Dates)-1].Date
}

// SchoolDay is one entry of schools.json: new cases reported per district.
type SchoolDay struct {
	Date      string                    `json:"date"`
	Districts map[string]SchoolDistrict `json:"districts"`
}

// SchoolDistrict holds the district-wide numbers for one school day.
type SchoolDistrict struct {
	DistrictWide struct {
		NewCases SchoolCases `json:"new_cases"`
	} `json:"district_wide"`
}

// SchoolCases splits new cases by population and attendance mode.
type SchoolCases struct {
	StudentsInPerson Number `json:"students_in_person"`
	StudentsRemote   Number `json:"students_remote"`
	StaffInPerson    Number `json:"staff_in_person"`
	StaffRemote      Number `json:"staff_remote"`
}

// ─── Point Types ──────────────────────────────────────────────────────────────

// Point is a single dated value of a reduced series.
// It is the unit that flows through the JSONL pipe between commands.
type Point struct {
	Date  time.Time `json:"date"`
	Value Number    `json:"value"`
}

// SeriesPoints bundles the points of one named series.
type SeriesPoints struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Values returns the bare values of the series.
func (s SeriesPoints) Values() []Number {
	out := make([]Number, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and source metadata for a command result.
type ResultStats struct {
	Source     string `json:"source"` // live|store|file
	DurationMs int64  `json:"duration_ms"`
	Items      int    `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeries     = "series"
	KindSeriesList = "series_list"
	KindCounters   = "counters"
	KindBarGraph   = "bar_graph"
	KindLatest     = "latest"
	KindDashboard  = "dashboard"
	KindTable      = "table"
)

// SeriesInfo describes one reduced series for listings.
type SeriesInfo struct {
	Name    string   `json:"name"`
	Length  int      `json:"length"`
	NonNull int      `json:"non_null"`
	Max     *float64 `json:"max"`
}

// Table is a generic header + rows payload for KindTable results.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
