// Package dashboard assembles the published dashboard dataset from a reduced
// Timeline: bar graphs and counters read at each category's latest row,
// group maxima, and the timeline graphs in columnar form.
package dashboard

import (
	"sort"
	"strings"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/transform"
)

// DefaultRequired are the categories a dashboard cannot be built without.
var DefaultRequired = []timeline.Category{
	timeline.CategoryCases,
	timeline.CategoryDeaths,
	timeline.CategoryStateHospitals,
	timeline.CategoryJail,
}

// Meta carries the inputs Build does not derive from the Timeline.
type Meta struct {
	ReportTimestamp string
	// Required overrides DefaultRequired when non-nil.
	Required []timeline.Category
}

// Counter is one headline number with its look-back comparisons.
type Counter struct {
	Value          model.Number   `json:"value"`
	RelativeValues []model.Number `json:"relativeValues"`
	Deltas         []float64      `json:"deltas"`
	IsPct          bool           `json:"isPct,omitempty"`
}

// BarEntry is one bar of a bar graph.
type BarEntry struct {
	DataID   string       `json:"data_id"`
	Label    string       `json:"label"`
	Value    model.Number `json:"value"`
	RelValue float64      `json:"relValue"`
}

// Dates lists the first and last row dates and the date of each
// category's latest row.
type Dates struct {
	First string                       `json:"first"`
	Last  string                       `json:"last"`
	Rows  map[timeline.Category]string `json:"rows"`
}

// Dashboard is the published dataset.
type Dashboard struct {
	BarGraphs       map[string][]BarEntry     `json:"barGraphs"`
	Counters        map[string]Counter        `json:"counters"`
	Dates           Dates                     `json:"dates"`
	LatestRows      map[timeline.Category]int `json:"latestRows"`
	MaxValues       map[string]float64        `json:"maxValues"`
	MonitoringTier  string                    `json:"monitoringTier"`
	ReportTimestamp string                    `json:"reportTimestamp"`
	TimelineGraphs  map[string]interface{}    `json:"timelineGraphs"`

	// Missing lists optional categories that had no data. Their counters
	// and bar graphs are left out.
	Missing []timeline.Category `json:"-"`
}

// Bar graph names.
const (
	BarsByHospital    = "byHospital"
	BarsCasesByAge    = "casesByAge"
	BarsDeathsByAge   = "deathsByAge"
	BarsMortalityRate = "mortalityRate"
	BarsCasesByRegion = "casesByRegion"
)

// BarGraphNames lists the bar graphs in display order.
var BarGraphNames = []string{
	BarsByHospital, BarsCasesByAge, BarsDeathsByAge, BarsMortalityRate, BarsCasesByRegion,
}

var (
	lookbackLong  = []int{1, 7, 14, 30}
	lookbackShort = []int{1, 7, 14}
	lookbackDay   = []int{1}
)

// Build assembles the dashboard. It fails with a DataAvailabilityError (or
// a util.MultiError of them) when a required category has no data.
func Build(tl *timeline.Timeline, meta Meta) (*Dashboard, error) {
	required := meta.Required
	if required == nil {
		required = DefaultRequired
	}
	if err := tl.Require(required...); err != nil {
		return nil, err
	}

	b := &builder{tl: tl}
	d := &Dashboard{
		BarGraphs:       b.barGraphs(),
		Counters:        b.counters(),
		Dates:           b.dates(),
		LatestRows:      tl.LatestRows(),
		MaxValues:       tl.GroupMaxima(),
		MonitoringTier:  tl.MonitoringTier,
		ReportTimestamp: meta.ReportTimestamp,
		TimelineGraphs:  TimelineGraphs(tl),
	}
	d.Missing = b.missingList()
	return d, nil
}

// CounterNames returns the counter names, sorted.
func (d *Dashboard) CounterNames() []string {
	names := make([]string, 0, len(d.Counters))
	for k := range d.Counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ─── Builder ──────────────────────────────────────────────────────────────────

type builder struct {
	tl      *timeline.Timeline
	missing map[timeline.Category]bool
}

func (b *builder) latest(cat timeline.Category) (int, bool) {
	i, ok := b.tl.LatestRow(cat)
	if !ok {
		if b.missing == nil {
			b.missing = make(map[timeline.Category]bool)
		}
		b.missing[cat] = true
	}
	return i, ok
}

func (b *builder) missingList() []timeline.Category {
	out := make([]timeline.Category, 0, len(b.missing))
	for _, c := range timeline.Categories {
		if b.missing[c] {
			out = append(out, c)
		}
	}
	return out
}

// column reads a series at a RowIndex through the label offset.
func (b *builder) column(name string, row int) model.Number {
	s, ok := b.tl.Series(name)
	if !ok {
		return model.Null
	}
	return s.Column(row + timeline.LabelOffset)
}

// ─── Counters ─────────────────────────────────────────────────────────────────

type counterDef struct {
	name         string
	series       string
	cat          timeline.Category
	lookbacks    []int
	hideNegative bool
	isPct        bool
}

var counterDefs = []counterDef{
	{"totalCases", timeline.SeriesTotalCases, timeline.CategoryCases, lookbackLong, true, false},
	{"totalDeaths", timeline.SeriesTotalDeaths, timeline.CategoryCases, lookbackLong, true, false},
	{"inIsolation", timeline.SeriesIsolationCurrent, timeline.CategoryIsolation, lookbackLong, false, false},
	{"hospitalizedResidents", timeline.SeriesResidentsInHosp, timeline.CategoryCountyHospitals, lookbackDay, false, false},
	{"allHospitalized", timeline.SeriesHospitalized, timeline.CategoryStateHospitals, lookbackDay, false, false},
	{"inICU", timeline.SeriesICU, timeline.CategoryStateHospitals, lookbackDay, false, false},
	{"vaccines1DosePct", timeline.SeriesVaccineFirstDosesPct, timeline.CategoryVaccineCoverage, lookbackShort, false, true},
	{"vaccinesFullDosesPct", timeline.SeriesVaccineFullDosesPct, timeline.CategoryVaccineCoverage, lookbackShort, false, true},
	{"vaccinesAllocated", timeline.SeriesVaccineAllocated, timeline.CategoryVaccines, lookbackShort, false, false},
	{"vaccinesAdministered", timeline.SeriesVaccineAdministered, timeline.CategoryVaccines, lookbackShort, false, false},
	{"vaccinesOrdered1", timeline.SeriesVaccineOrdered1, timeline.CategoryVaccines, lookbackShort, false, false},
	{"vaccinesOrdered2", timeline.SeriesVaccineOrdered2, timeline.CategoryVaccines, lookbackShort, false, false},
	{"vaccinesReceived", timeline.SeriesVaccineReceived, timeline.CategoryVaccines, lookbackShort, false, false},
	{"totalTests", timeline.SeriesTotalTests, timeline.CategoryTests, lookbackDay, true, false},
	{"positiveTestResults", timeline.SeriesTotalCases, timeline.CategoryCases, lookbackDay, true, false},
	{"jailInmatePop", timeline.SeriesJailInmatePopulation, timeline.CategoryJail, lookbackDay, false, false},
	{"jailInmateTotalTests", timeline.SeriesJailInmateTests, timeline.CategoryJail, lookbackDay, true, false},
	{"jailInmateCurCases", timeline.SeriesJailInmateCurCases, timeline.CategoryJail, lookbackDay, false, false},
	{"jailStaffTotalTests", timeline.SeriesJailStaffTests, timeline.CategoryJail, lookbackDay, true, false},
	{"jailStaffTotalCases", timeline.SeriesJailStaffTotalCases, timeline.CategoryJail, lookbackDay, true, false},
}

func (b *builder) counters() map[string]Counter {
	out := make(map[string]Counter, len(counterDefs)+4)
	for _, def := range counterDefs {
		latest, ok := b.latest(def.cat)
		if !ok {
			continue
		}
		out[def.name] = b.counter(def, latest)
	}

	if latest, ok := b.latest(timeline.CategoryTestPosRate); ok {
		out["positiveTestRate"] = pair(
			b.column(timeline.SeriesPositivityRate, latest),
			b.column(timeline.SeriesPositivityRate, latest-1),
			true)
	}
	if latest, ok := b.latest(timeline.CategoryJail); ok {
		rate := func(row int) model.Number {
			return ratio(b.column(timeline.SeriesJailInmateCurCases, row),
				b.column(timeline.SeriesJailInmatePopulation, row))
		}
		out["jailInmatePosRate"] = pair(rate(latest), rate(latest-1), true)
	}

	if totals := b.tl.SchoolTotals; len(totals) > 0 {
		last := totals[len(totals)-1]
		prev := totals[max(0, len(totals)-2)]
		out["schoolYearNewStudentCasesTotal"] = pair(model.Num(last.Students), model.Num(prev.Students), false)
		out["schoolYearNewStaffCasesTotal"] = pair(model.Num(last.Staff), model.Num(prev.Staff), false)
	}
	return out
}

func (b *builder) counter(def counterDef, latest int) Counter {
	value := b.column(def.series, latest)
	c := Counter{
		Value:          value,
		RelativeValues: make([]model.Number, len(def.lookbacks)),
		Deltas:         make([]float64, len(def.lookbacks)),
		IsPct:          def.isPct,
	}
	for i, days := range def.lookbacks {
		rel := b.column(def.series, max(0, latest-days))
		c.RelativeValues[i] = rel
		c.Deltas[i] = timeline.NormalizeRelativeValue(value, rel, def.hideNegative)
	}
	return c
}

// pair builds a counter compared against a single previous value.
func pair(value, prev model.Number, isPct bool) Counter {
	return Counter{
		Value:          value,
		RelativeValues: []model.Number{prev},
		Deltas:         []float64{timeline.NormalizeRelativeValue(value, prev, false)},
		IsPct:          isPct,
	}
}

func ratio(num, den model.Number) model.Number {
	return transform.Ratio(num, den, 100)
}

// ─── Bar Graphs ───────────────────────────────────────────────────────────────

func (b *builder) barGraphs() map[string][]BarEntry {
	out := make(map[string][]BarEntry, len(BarGraphNames))

	if latest, ok := b.latest(timeline.CategoryPerHospital); ok {
		out[BarsByHospital] = b.bars(timeline.Hospitals, latest, func(key string, row int) model.Number {
			return b.column(timeline.HospitalSeries(key), row)
		})
	}

	if latest, ok := b.latest(timeline.CategoryDeathsByAge); ok {
		ages := b.tl.VisibleAgeRanges()
		cases := func(key string, row int) model.Number {
			return b.column(timeline.AgeRangeSeries(key), row)
		}
		deaths := func(key string, row int) model.Number {
			return b.column(timeline.DeathsByAgeSeries(key), row)
		}
		out[BarsCasesByAge] = b.bars(ages, latest, cases)
		out[BarsDeathsByAge] = b.bars(ages, latest, deaths)
		out[BarsMortalityRate] = b.bars(ages, latest, func(key string, row int) model.Number {
			return ratio(model.Num(deaths(key, row).Or(0)), model.Num(cases(key, row).Or(0)))
		})
	}

	if latest, ok := b.latest(timeline.CategoryRegions); ok {
		out[BarsCasesByRegion] = b.bars(timeline.Regions.Current(), latest, func(key string, row int) model.Number {
			return b.column(timeline.RegionSeries(key), row)
		})
	}
	return out
}

func (b *builder) bars(reg timeline.Registry, latest int, get func(key string, row int) model.Number) []BarEntry {
	out := make([]BarEntry, 0, len(reg))
	for _, bucket := range reg {
		value := get(bucket.Key, latest)
		prev := model.Null
		if latest > 0 {
			prev = get(bucket.Key, latest-1)
		}
		out = append(out, BarEntry{
			DataID:   bucket.Key,
			Label:    bucket.Label,
			Value:    value,
			RelValue: timeline.NormalizeRelativeValue(value, prev, false),
		})
	}
	return out
}

// ─── Dates and Graphs ─────────────────────────────────────────────────────────

func (b *builder) dates() Dates {
	d := Dates{Rows: make(map[timeline.Category]string)}
	if n := len(b.tl.Dates); n > 0 {
		d.First, d.Last = b.tl.Dates[0], b.tl.Dates[n-1]
	}
	for cat, i := range b.tl.LatestRows() {
		d.Rows[cat] = b.tl.Dates[i]
	}
	return d
}

// TimelineGraphs nests every series by its dotted name, so
// "cases.totalCases" lands at graphs["cases"]["totalCases"]. The columnar
// "dates" series and the chart notes sit at the top level.
func TimelineGraphs(tl *timeline.Timeline) map[string]interface{} {
	graphs := make(map[string]interface{})

	dates := make([]interface{}, 0, len(tl.Dates)+timeline.LabelOffset)
	dates = append(dates, "date")
	for _, d := range tl.Dates {
		dates = append(dates, d)
	}
	graphs["dates"] = dates

	notes := tl.Notes
	if notes == nil {
		notes = []timeline.Note{}
	}
	graphs["notes"] = notes

	for _, name := range tl.SeriesNames() {
		s, _ := tl.Series(name)
		parts := strings.Split(name, ".")
		node := graphs
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = s
	}
	return graphs
}
