// Package timeline reduces the published daily record log into row-aligned
// columnar series, per-category latest-row pointers, and axis maxima.
//
// Process is pure: it reads the rows, builds a fresh Timeline, and returns
// it. Nothing is shared between calls.
package timeline

import (
	"sort"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/util"
)

// Category is a logical data domain with its own reporting cadence and its
// own latest-row pointer.
type Category string

const (
	CategoryCases           Category = "cases"
	CategoryDeaths          Category = "deaths"
	CategoryTests           Category = "tests"
	CategoryTestPosRate     Category = "testPosRate"
	CategoryIsolation       Category = "isolation"
	CategoryCountyHospitals Category = "countyHospitals"
	CategoryStateHospitals  Category = "stateHospitals"
	CategoryPerHospital     Category = "perHospital"
	CategoryAges            Category = "ages"
	CategoryDeathsByAge     Category = "deathsByAge"
	CategoryRegions         Category = "regions"
	CategoryJail            Category = "jail"
	CategoryVaccines        Category = "vaccines"
	CategoryVaccineCoverage Category = "vaccineCoverage"
)

// Categories lists every category in output order.
var Categories = []Category{
	CategoryAges,
	CategoryCases,
	CategoryCountyHospitals,
	CategoryDeaths,
	CategoryDeathsByAge,
	CategoryIsolation,
	CategoryJail,
	CategoryPerHospital,
	CategoryRegions,
	CategoryStateHospitals,
	CategoryTestPosRate,
	CategoryTests,
	CategoryVaccineCoverage,
	CategoryVaccines,
}

// Note is a dated annotation for timeline charts.
type Note struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// SchoolTotal is the running semester total for one school report day.
type SchoolTotal struct {
	Date     string  `json:"date"`
	Students float64 `json:"students"`
	Staff    float64 `json:"staff"`
}

// Timeline is the result of one reduction pass. It is not modified after
// Process returns.
type Timeline struct {
	Dates          []string
	Notes          []Note
	MonitoringTier string
	SchoolTotals   []SchoolTotal

	series map[string]*Series
	order  []string
	latest map[Category]int
	groups map[string]float64
}

// Rows returns the number of input rows.
func (t *Timeline) Rows() int {
	return len(t.Dates)
}

// Series looks up a series by name.
func (t *Timeline) Series(name string) (*Series, bool) {
	s, ok := t.series[name]
	return s, ok
}

// SeriesNames returns every series name in definition order.
func (t *Timeline) SeriesNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// LatestRow returns the last RowIndex with data for cat.
func (t *Timeline) LatestRow(cat Category) (int, bool) {
	i, ok := t.latest[cat]
	return i, ok
}

// LatestRows returns a copy of every set pointer.
func (t *Timeline) LatestRows() map[Category]int {
	out := make(map[Category]int, len(t.latest))
	for k, v := range t.latest {
		out[k] = v
	}
	return out
}

// MaxValue returns the largest non-null value of a series.
func (t *Timeline) MaxValue(name string) (float64, bool) {
	s, ok := t.series[name]
	if !ok {
		return 0, false
	}
	return s.Max()
}

// MaxValues maps every series with at least one value to its maximum.
func (t *Timeline) MaxValues() map[string]float64 {
	out := make(map[string]float64, len(t.series))
	for name, s := range t.series {
		if m, ok := s.Max(); ok {
			out[name] = m
		}
	}
	return out
}

// GroupMax returns a combined-group maximum. Unknown groups are 0.
func (t *Timeline) GroupMax(name string) float64 {
	return t.groups[name]
}

// GroupMaxima returns a copy of every combined-group maximum.
func (t *Timeline) GroupMaxima() map[string]float64 {
	out := make(map[string]float64, len(t.groups))
	for k, v := range t.groups {
		out[k] = v
	}
	return out
}

// GroupNames returns the combined-group names, sorted.
func (t *Timeline) GroupNames() []string {
	names := make([]string, 0, len(t.groups))
	for k := range t.groups {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AgeRanges returns every age bucket, legacy included.
func (t *Timeline) AgeRanges() Registry {
	return AgeRanges
}

// VisibleAgeRanges returns the age buckets used for present-day views.
func (t *Timeline) VisibleAgeRanges() Registry {
	return AgeRanges.Current()
}

// Require fails with a DataAvailabilityError for each category whose
// pointer was never set. Several failures come back as a util.MultiError.
func (t *Timeline) Require(cats ...Category) error {
	var errs util.MultiError
	for _, c := range cats {
		if _, ok := t.latest[c]; !ok {
			errs.Add(&DataAvailabilityError{Category: c})
		}
	}
	if len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	return errs.Err()
}

// Points returns a series as dated points for the pipe format.
func (t *Timeline) Points(name string) (model.SeriesPoints, bool) {
	s, ok := t.series[name]
	if !ok {
		return model.SeriesPoints{}, false
	}
	out := model.SeriesPoints{Name: name, Points: make([]model.Point, len(s.Values))}
	for i, v := range s.Values {
		d, _ := util.ParseDate(t.Dates[i])
		out.Points[i] = model.Point{Date: d, Value: v}
	}
	return out, true
}
