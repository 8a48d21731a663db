package dashboard_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/bc19/internal/dashboard"
	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/util"
)

var base = time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)

func feedRows(n int) []model.DailyRecord {
	out := make([]model.DailyRecord, n)
	for i := range out {
		r := model.DailyRecord{Date: util.FormatDate(base.AddDate(0, 0, i))}
		r.ConfirmedCases.Total = model.Num(float64(1000 + 10*i))
		r.Deaths.Total = model.Num(float64(50 + i/5))
		r.ViralTests.Total = model.Num(float64(20000 + 200*i))
		r.ViralTests.Results = model.Num(200)
		r.InIsolation.Current = model.Num(float64(300 - i))
		r.Hospitalizations.StateData.Positive = model.Num(float64(20 + i))
		r.Hospitalizations.StateData.ICUPositive = model.Num(4)
		r.Hospitalizations.CountyData.Hospitalized = model.Num(15)
		r.CountyJail.Inmates.Population = model.Num(400)
		r.CountyJail.Inmates.CurrentCases = model.Num(8)
		out[i] = r
	}
	return out
}

func reduce(t *testing.T, rows []model.DailyRecord) *timeline.Timeline {
	t.Helper()
	opts := timeline.DefaultOptions()
	opts.PositivityStart = time.Time{}
	tl, err := timeline.Process(rows, opts)
	require.NoError(t, err)
	return tl
}

func build(t *testing.T, tl *timeline.Timeline) *dashboard.Dashboard {
	t.Helper()
	d, err := dashboard.Build(tl, dashboard.Meta{ReportTimestamp: "2021-03-20T09:00:00Z"})
	require.NoError(t, err)
	return d
}

func TestBuild_CounterLookbacks(t *testing.T) {
	d := build(t, reduce(t, feedRows(20)))

	c, ok := d.Counters["totalCases"]
	require.True(t, ok)
	assert.Equal(t, model.Num(1190), c.Value)
	require.Len(t, c.RelativeValues, 4)
	assert.Equal(t, model.Num(1180), c.RelativeValues[0])
	assert.Equal(t, model.Num(1120), c.RelativeValues[1])
	assert.Equal(t, model.Num(1050), c.RelativeValues[2])
	// 30 rows back clamps to the first row.
	assert.Equal(t, model.Num(1000), c.RelativeValues[3])
	assert.Equal(t, []float64{10, 70, 140, 190}, c.Deltas)
	assert.False(t, c.IsPct)
}

func TestBuild_HideNegativeDeltas(t *testing.T) {
	rows := feedRows(3)
	rows[2].ConfirmedCases.Total = model.Num(900)
	d := build(t, reduce(t, rows))

	assert.Equal(t, 0.0, d.Counters["totalCases"].Deltas[0])
	// Isolation is allowed to go down.
	assert.Equal(t, -1.0, d.Counters["inIsolation"].Deltas[0])
}

func TestBuild_RateCounters(t *testing.T) {
	d := build(t, reduce(t, feedRows(10)))

	pos, ok := d.Counters["positiveTestRate"]
	require.True(t, ok)
	assert.True(t, pos.IsPct)
	assert.InDelta(t, 5.0, pos.Value.Value, 1e-9)
	assert.Equal(t, 0.0, pos.Deltas[0])

	jail := d.Counters["jailInmatePosRate"]
	assert.InDelta(t, 2.0, jail.Value.Value, 1e-9)
	assert.True(t, jail.IsPct)
}

func TestBuild_BarGraphs(t *testing.T) {
	rows := feedRows(3)
	for i := range rows {
		rows[i].AgeRanges = map[string]model.Number{
			"0-4":  model.Num(float64(10 + i)),
			"5-12": model.Num(0),
			"0-17": model.Num(99),
		}
		rows[i].Deaths.AgeRanges = map[string]model.Number{"0-4": model.Num(1)}
		rows[i].Regions = map[string]model.RegionCases{"chico": {Cases: model.Num(float64(500 + 5*i))}}
	}
	d := build(t, reduce(t, rows))

	byAge := d.BarGraphs[dashboard.BarsCasesByAge]
	require.Len(t, byAge, len(timeline.AgeRanges.Current()))
	for _, e := range byAge {
		assert.NotEqual(t, "0_17", e.DataID)
	}
	assert.Equal(t, "0_4", byAge[0].DataID)
	assert.Equal(t, "0-4", byAge[0].Label)
	assert.Equal(t, model.Num(12), byAge[0].Value)
	assert.Equal(t, 1.0, byAge[0].RelValue)

	mortality := d.BarGraphs[dashboard.BarsMortalityRate]
	assert.InDelta(t, 100.0/12, mortality[0].Value.Value, 1e-9)
	assert.False(t, mortality[1].Value.Valid, "zero cases has no rate")

	regions := d.BarGraphs[dashboard.BarsCasesByRegion]
	require.Len(t, regions, len(timeline.Regions.Current()))
	for _, e := range regions {
		if e.DataID == "chico" {
			assert.Equal(t, model.Num(510), e.Value)
			assert.Equal(t, 5.0, e.RelValue)
		}
		assert.NotEqual(t, "gridley", e.DataID)
	}
}

func TestBuild_OptionalCategoriesAreReported(t *testing.T) {
	d := build(t, reduce(t, feedRows(5)))

	assert.Contains(t, d.Missing, timeline.CategoryVaccines)
	assert.Contains(t, d.Missing, timeline.CategoryPerHospital)
	assert.NotContains(t, d.Counters, "vaccinesAllocated")
	assert.NotContains(t, d.BarGraphs, dashboard.BarsByHospital)
	assert.NotContains(t, d.Counters, "schoolYearNewStudentCasesTotal")
}

func TestBuild_RequiredCategoryMissing(t *testing.T) {
	rows := feedRows(5)
	for i := range rows {
		rows[i].Deaths.Total = model.Null
	}
	_, err := dashboard.Build(reduce(t, rows), dashboard.Meta{})
	var dae *timeline.DataAvailabilityError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, timeline.CategoryDeaths, dae.Category)
}

func TestBuild_SchoolCounters(t *testing.T) {
	rows := feedRows(3)
	district := func(students float64) map[string]model.SchoolDistrict {
		var d model.SchoolDistrict
		d.DistrictWide.NewCases.StudentsInPerson = model.Num(students)
		return map[string]model.SchoolDistrict{"paradise": d}
	}
	opts := timeline.DefaultOptions()
	opts.Schools = []model.SchoolDay{
		{Date: rows[0].Date, Districts: district(4)},
		{Date: rows[2].Date, Districts: district(3)},
	}
	tl, err := timeline.Process(rows, opts)
	require.NoError(t, err)

	d := build(t, tl)
	c := d.Counters["schoolYearNewStudentCasesTotal"]
	assert.Equal(t, model.Num(7), c.Value)
	assert.Equal(t, []model.Number{model.Num(4)}, c.RelativeValues)
}

func TestBuild_DatesAndMeta(t *testing.T) {
	rows := feedRows(4)
	rows[3].InIsolation.Current = model.Null
	rows[1].Monitoring.Tier = "Widespread"
	d := build(t, reduce(t, rows))

	assert.Equal(t, "2021-03-01", d.Dates.First)
	assert.Equal(t, "2021-03-04", d.Dates.Last)
	assert.Equal(t, "2021-03-03", d.Dates.Rows[timeline.CategoryIsolation])
	assert.Equal(t, 2, d.LatestRows[timeline.CategoryIsolation])
	assert.Equal(t, "Widespread", d.MonitoringTier)
	assert.Equal(t, "2021-03-20T09:00:00Z", d.ReportTimestamp)
	assert.Equal(t, 23.0, d.MaxValues[timeline.GroupHospitalizations])
}

func TestTimelineGraphs_Nesting(t *testing.T) {
	tl := reduce(t, feedRows(2))
	graphs := dashboard.TimelineGraphs(tl)

	dates, ok := graphs["dates"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"date", "2021-03-01", "2021-03-02"}, dates)

	cases, ok := graphs["cases"].(map[string]interface{})
	require.True(t, ok)
	s, ok := cases["totalCases"].(*timeline.Series)
	require.True(t, ok)
	assert.Equal(t, timeline.SeriesTotalCases, s.Name)

	deaths := graphs["deaths"].(map[string]interface{})
	byAge, ok := deaths["byAge"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, byAge, "0_17")
}

func TestDashboard_JSONShape(t *testing.T) {
	d := build(t, reduce(t, feedRows(3)))
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	for _, key := range []string{"barGraphs", "counters", "dates", "latestRows", "maxValues", "monitoringTier", "reportTimestamp", "timelineGraphs"} {
		assert.Contains(t, top, key)
	}
	assert.NotContains(t, top, "Missing")
}
