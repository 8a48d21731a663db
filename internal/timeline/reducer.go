package timeline

import (
	"sort"
	"time"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/transform"
	"github.com/derickschaefer/bc19/internal/util"
)

// DefaultPopulation is the county population used for per-100k rates.
const DefaultPopulation = 217769

// caseRateWindow is the look-back, in rows, of every one-week series.
const caseRateWindow = 7

// Options tunes one reduction.
type Options struct {
	Population      float64
	PositivityStart time.Time
	Required        []Category
	CheckContiguity bool
	Schools         []model.SchoolDay
}

// DefaultOptions returns the options the published dashboard is built with.
func DefaultOptions() Options {
	return Options{
		Population:      DefaultPopulation,
		PositivityStart: time.Date(2020, time.April, 10, 0, 0, 0, 0, time.UTC),
		Required:        []Category{CategoryCases, CategoryStateHospitals, CategoryJail},
		CheckContiguity: true,
	}
}

// ─── Series Names ─────────────────────────────────────────────────────────────

const (
	SeriesTotalCases       = "cases.totalCases"
	SeriesNewCases         = "cases.newCases"
	SeriesOneWeekCaseRate  = "cases.oneWeekNewCaseRate"
	SeriesTotalDeaths      = "deaths.totalDeaths"
	SeriesNewDeaths        = "deaths.newDeaths"
	SeriesTotalTests       = "viralTests.total"
	SeriesNewTests         = "viralTests.newTests"
	SeriesTestResults      = "viralTests.results"
	SeriesNegativeResults  = "viralTests.negativeResults"
	SeriesPositiveResults  = "viralTests.positiveResults"
	SeriesPositivityRate   = "viralTests.testPositivityRate"
	SeriesIsolationCurrent = "isolation.current"
	SeriesIsolationRelease = "isolation.released"
	SeriesHospitalized     = "hospitalizations.total"
	SeriesICU              = "hospitalizations.icu"
	SeriesResidentsInHosp  = "hospitalizations.residents"

	SeriesJailInmatePopulation = "jail.inmatePopulation"
	SeriesJailInmateTests      = "jail.inmateTests"
	SeriesJailInmatePosResults = "jail.inmatePosResults"
	SeriesJailInmateCurCases   = "jail.inmateCurCases"
	SeriesJailStaffTests       = "jail.staffTests"
	SeriesJailStaffTotalCases  = "jail.staffTotalCases"

	SeriesVaccineFirstDoses    = "vaccines.firstDoses"
	SeriesVaccineFullDoses     = "vaccines.fullDoses"
	SeriesVaccineFirstDosesPct = "vaccines.firstDosesPct"
	SeriesVaccineFullDosesPct  = "vaccines.fullDosesPct"
	SeriesVaccineTotal         = "vaccines.administeredTotal"
	SeriesVaccinePfizer        = "vaccines.administeredPfizer"
	SeriesVaccineModerna       = "vaccines.administeredModerna"
	SeriesVaccineJJ            = "vaccines.administeredJJ"
	SeriesVaccineOneWeek1Dose  = "vaccines.oneWeek1DoseRate"
	SeriesVaccineOneWeekFull   = "vaccines.oneWeekFullDosesRate"
	SeriesVaccineAllocated     = "vaccines.allocated"
	SeriesVaccineAdministered  = "vaccines.administered"
	SeriesVaccineReceived      = "vaccines.received"
	SeriesVaccineOrdered1      = "vaccines.firstDosesOrdered"
	SeriesVaccineOrdered2      = "vaccines.secondDosesOrdered"

	SeriesSchoolNewStudentsLocal       = "schools.newStudentCasesLocal"
	SeriesSchoolNewStudentsRemote      = "schools.newStudentCasesRemote"
	SeriesSchoolNewStaffLocal          = "schools.newStaffCasesLocal"
	SeriesSchoolNewStaffRemote         = "schools.newStaffCasesRemote"
	SeriesSchoolSemesterStudentsLocal  = "schools.semesterStudentCasesLocal"
	SeriesSchoolSemesterStudentsRemote = "schools.semesterStudentCasesRemote"
	SeriesSchoolSemesterStaffLocal     = "schools.semesterStaffCasesLocal"
	SeriesSchoolSemesterStaffRemote    = "schools.semesterStaffCasesRemote"
)

// Care facility prefixes.
const (
	FacilitySNF             = "snf"
	FacilityAdultSeniorCare = "adultSeniorCare"
)

// Care facility series suffixes.
const (
	CurPatientCases  = "curPatientCases"
	CurStaffCases    = "curStaffCases"
	NewPatientDeaths = "newPatientDeaths"
	NewStaffDeaths   = "newStaffDeaths"
)

func AgeRangeSeries(key string) string      { return "ageRanges." + key }
func DeathsByAgeSeries(key string) string   { return "deaths.byAge." + key }
func RegionSeries(key string) string        { return "regions." + key }
func HospitalSeries(key string) string      { return "hospitalizations.byHospital." + key }
func VaccineGenderSeries(key string) string { return "vaccines.gender." + key }
func VaccineAgeSeries(key string) string    { return "vaccines.age." + key }
func VaccineEthnicitySeries(key string) string {
	return "vaccines.ethnicity." + key
}

// FacilitySeries names one care facility series, e.g. snf.curPatientCases.
func FacilitySeries(prefix, suffix string) string { return prefix + "." + suffix }

// ─── Group Names ──────────────────────────────────────────────────────────────

const (
	GroupNewCases             = "newCases"
	GroupNewDeaths            = "newDeaths"
	GroupTotalCases           = "totalCases"
	GroupTotalDeaths          = "totalDeaths"
	GroupOneWeekCaseRate      = "oneWeekCaseRate"
	GroupViralTests           = "viralTests"
	GroupHospitalizations     = "hospitalizations"
	GroupSNFCases             = "snf"
	GroupNewSNFDeaths         = "newSNFDeaths"
	GroupASCCases             = "adultSeniorCareCases"
	GroupNewASCDeaths         = "newAdultSeniorCareDeaths"
	GroupSevenDayPosRate      = "sevenDayPosRate"
	GroupJailInmateCurCases   = "jailInmateCurCases"
	GroupJailInmatePopulation = "jailInmatePopulation"
	GroupJailStaffTotalCases  = "jailStaffTotalCases"
	GroupVaccinesAdministered = "vaccinesAdministered"
	GroupVaccinesByType       = "vaccinesAdministeredByType"
	GroupOneWeekVaccinesRate  = "oneWeekVaccinesRate"
	GroupNewSchoolCases       = "newSchoolCases"
	GroupSemesterSchoolCases  = "semesterSchoolCases"
)

var groupNames = []string{
	GroupNewCases, GroupNewDeaths, GroupTotalCases, GroupTotalDeaths,
	GroupOneWeekCaseRate, GroupViralTests, GroupHospitalizations,
	GroupSNFCases, GroupNewSNFDeaths, GroupASCCases, GroupNewASCDeaths,
	GroupSevenDayPosRate, GroupJailInmateCurCases, GroupJailInmatePopulation,
	GroupJailStaffTotalCases, GroupVaccinesAdministered, GroupVaccinesByType,
	GroupOneWeekVaccinesRate, GroupNewSchoolCases, GroupSemesterSchoolCases,
}

// ─── Process ──────────────────────────────────────────────────────────────────

// Process reduces rows, oldest first, into a Timeline in a single pass.
// Look-back windows count rows, not days.
func Process(rows []model.DailyRecord, opts Options) (*Timeline, error) {
	dates, err := parseDates(rows, opts.CheckContiguity)
	if err != nil {
		return nil, err
	}

	r := &reducer{
		rows:   rows,
		dates:  dates,
		opts:   opts,
		acc:    newAccumulator(len(rows)),
		latest: make(map[Category]int),
		groups: make(map[string]float64, len(groupNames)),
	}
	for _, g := range groupNames {
		r.groups[g] = 0
	}
	r.defineSeries()

	var totals []SchoolTotal
	r.schools, totals = r.reduceSchools(opts.Schools)

	for i := range rows {
		r.row(i)
		r.acc.commit()
	}

	tl := &Timeline{
		Dates:          make([]string, len(rows)),
		Notes:          r.notes,
		MonitoringTier: r.tier,
		SchoolTotals:   totals,
		series:         r.acc.series,
		order:          r.acc.order,
		latest:         r.latest,
		groups:         r.groups,
	}
	for i := range rows {
		tl.Dates[i] = rows[i].Date
	}
	if err := tl.Require(opts.Required...); err != nil {
		return nil, err
	}
	return tl, nil
}

func parseDates(rows []model.DailyRecord, contiguous bool) ([]time.Time, error) {
	dates := make([]time.Time, len(rows))
	for i, rec := range rows {
		d, err := util.ParseDate(rec.Date)
		if err != nil {
			return nil, &DateError{Index: i, Value: rec.Date}
		}
		dates[i] = d
		if contiguous && i > 0 && util.DaysBetween(dates[i-1], d) != 1 {
			return nil, &ContiguityError{Index: i, Previous: rows[i-1].Date, Date: rec.Date}
		}
	}
	return dates, nil
}

// reducer carries the per-pass state of Process.
type reducer struct {
	rows    []model.DailyRecord
	dates   []time.Time
	opts    Options
	acc     *accumulator
	latest  map[Category]int
	groups  map[string]float64
	notes   []Note
	tier    string
	schools map[string]schoolRow
}

func (r *reducer) defineSeries() {
	a := r.acc
	a.define(
		SeriesTotalCases, SeriesNewCases, SeriesOneWeekCaseRate,
		SeriesTotalDeaths, SeriesNewDeaths,
		SeriesTotalTests, SeriesNewTests, SeriesTestResults,
		SeriesNegativeResults, SeriesPositiveResults, SeriesPositivityRate,
		SeriesIsolationCurrent, SeriesIsolationRelease,
		SeriesHospitalized, SeriesICU, SeriesResidentsInHosp,
	)
	for _, b := range AgeRanges {
		a.define(AgeRangeSeries(b.Key))
	}
	for _, b := range AgeRanges {
		a.define(DeathsByAgeSeries(b.Key))
	}
	for _, b := range Regions {
		a.define(RegionSeries(b.Key))
	}
	for _, b := range Hospitals {
		a.define(HospitalSeries(b.Key))
	}
	for _, prefix := range []string{FacilitySNF, FacilityAdultSeniorCare} {
		for _, suffix := range []string{CurPatientCases, CurStaffCases, NewPatientDeaths, NewStaffDeaths} {
			a.define(FacilitySeries(prefix, suffix))
		}
	}
	a.define(
		SeriesJailInmatePopulation, SeriesJailInmateTests, SeriesJailInmatePosResults,
		SeriesJailInmateCurCases, SeriesJailStaffTests, SeriesJailStaffTotalCases,
		SeriesVaccineFirstDoses, SeriesVaccineFullDoses,
		SeriesVaccineFirstDosesPct, SeriesVaccineFullDosesPct,
		SeriesVaccineTotal, SeriesVaccinePfizer, SeriesVaccineModerna, SeriesVaccineJJ,
		SeriesVaccineOneWeek1Dose, SeriesVaccineOneWeekFull,
		SeriesVaccineAllocated, SeriesVaccineAdministered, SeriesVaccineReceived,
		SeriesVaccineOrdered1, SeriesVaccineOrdered2,
	)
	for _, b := range VaccineGenders {
		a.define(VaccineGenderSeries(b.Key))
	}
	for _, b := range VaccineAges {
		a.define(VaccineAgeSeries(b.Key))
	}
	for _, b := range VaccineEthnicities {
		a.define(VaccineEthnicitySeries(b.Key))
	}
	a.define(
		SeriesSchoolNewStudentsLocal, SeriesSchoolNewStudentsRemote,
		SeriesSchoolNewStaffLocal, SeriesSchoolNewStaffRemote,
		SeriesSchoolSemesterStudentsLocal, SeriesSchoolSemesterStudentsRemote,
		SeriesSchoolSemesterStaffLocal, SeriesSchoolSemesterStaffRemote,
	)
}

func (r *reducer) mark(cat Category, i int) {
	r.latest[cat] = i
}

func (r *reducer) group(name string, v float64) {
	if v > r.groups[name] {
		r.groups[name] = v
	}
}

func (r *reducer) groupN(name string, v model.Number) {
	if v.Valid {
		r.group(name, v.Value)
	}
}

// prev returns row i-1, or nil for the first row.
func (r *reducer) prev(i int) *model.DailyRecord {
	if i == 0 {
		return nil
	}
	return &r.rows[i-1]
}

// back returns row i-k, or nil when the window reaches before the first row.
func (r *reducer) back(i, k int) *model.DailyRecord {
	if i-k < 0 {
		return nil
	}
	return &r.rows[i-k]
}

// derivedDelta prefers the published delta and falls back to the difference
// of consecutive totals.
func derivedDelta(cur model.Totals, prev *model.Totals) model.Number {
	if cur.DeltaTotal.Valid {
		return cur.DeltaTotal
	}
	if prev == nil {
		return model.Null
	}
	return transform.Delta(cur.Total, prev.Total)
}

func (r *reducer) row(i int) {
	rec := &r.rows[i]
	r.cases(i, rec)
	r.deaths(i, rec)
	r.tests(i, rec)
	r.breakdowns(i, rec)
	r.isolation(i, rec)
	r.hospitals(i, rec)
	r.facility(i, FacilitySNF, GroupSNFCases, GroupNewSNFDeaths,
		func(d *model.DailyRecord) *model.CareFacility { return &d.SkilledNursing })
	r.facility(i, FacilityAdultSeniorCare, GroupASCCases, GroupNewASCDeaths,
		func(d *model.DailyRecord) *model.CareFacility { return &d.AdultSeniorCare })
	r.jail(i, rec)
	r.vaccines(i, rec)
	r.schoolRow(rec)

	if rec.Note != "" {
		r.notes = append(r.notes, Note{Value: rec.Date, Text: rec.Note})
	}
	if rec.Monitoring.Tier != "" {
		r.tier = rec.Monitoring.Tier
	}
}

func (r *reducer) cases(i int, rec *model.DailyRecord) {
	total := rec.ConfirmedCases.Total
	var prev *model.Totals
	if p := r.prev(i); p != nil {
		prev = &p.ConfirmedCases
	}
	newCases := transform.ClampMin(derivedDelta(rec.ConfirmedCases, prev), 0)
	if !newCases.Valid {
		newCases = model.Num(0)
	}
	r.acc.set(SeriesTotalCases, total)
	r.acc.set(SeriesNewCases, newCases)
	r.group(GroupNewCases, newCases.Value)
	r.groupN(GroupTotalCases, total)
	if total.Valid {
		r.mark(CategoryCases, i)
	}

	rate := model.Null
	if b := r.back(i, caseRateWindow); b != nil && r.opts.Population > 0 {
		perWeek := model.Num(caseRateWindow * r.opts.Population / 100000)
		rate = transform.Ratio(transform.Delta(total, b.ConfirmedCases.Total), perWeek, 1)
	}
	r.acc.set(SeriesOneWeekCaseRate, rate)
	r.groupN(GroupOneWeekCaseRate, rate)
}

func (r *reducer) deaths(i int, rec *model.DailyRecord) {
	total := rec.Deaths.Total
	var prev *model.Totals
	if p := r.prev(i); p != nil {
		prev = &p.Deaths.Totals
	}
	newDeaths := transform.ClampMin(derivedDelta(rec.Deaths.Totals, prev), 0)
	r.acc.set(SeriesTotalDeaths, total)
	r.acc.set(SeriesNewDeaths, newDeaths)
	r.groupN(GroupNewDeaths, newDeaths)
	r.groupN(GroupTotalDeaths, total)
	if total.Valid {
		r.mark(CategoryDeaths, i)
	}
}

func (r *reducer) tests(i int, rec *model.DailyRecord) {
	vt := rec.ViralTests
	var prev *model.Totals
	if p := r.prev(i); p != nil {
		prev = &p.ViralTests.Totals
	}
	newTests := transform.ClampMin(derivedDelta(vt.Totals, prev), 0)
	results := model.Num(vt.Results.Or(0))

	neg, pos := model.Num(0), model.Num(0)
	if results.Value > 0 && vt.PositiveResults.Valid && vt.DeltaPositiveResults.Valid {
		pos = vt.DeltaPositiveResults
		neg = transform.Delta(results, pos)
	}

	r.acc.set(SeriesTotalTests, vt.Total)
	r.acc.set(SeriesNewTests, newTests)
	r.acc.set(SeriesTestResults, results)
	r.acc.set(SeriesNegativeResults, neg)
	r.acc.set(SeriesPositiveResults, pos)
	if vt.Total.Valid {
		r.groupN(GroupViralTests, newTests)
	}
	if vt.Results.Valid && vt.Total.Valid {
		r.mark(CategoryTests, i)
	}

	rate := r.positivity(i, rec)
	r.acc.set(SeriesPositivityRate, rate)
	r.groupN(GroupSevenDayPosRate, rate)
	if rate.Valid {
		r.mark(CategoryTestPosRate, i)
	}
}

// positivity is new cases over new tests across the trailing window, as a
// percentage. Rows before PositivityStart are held at null.
func (r *reducer) positivity(i int, rec *model.DailyRecord) model.Number {
	b := r.back(i, caseRateWindow)
	if b == nil {
		return model.Null
	}
	if start := r.opts.PositivityStart; !start.IsZero() && r.dates[i].Before(start) {
		return model.Null
	}
	cases := transform.Delta(rec.ConfirmedCases.Total, b.ConfirmedCases.Total)
	tests := transform.Delta(rec.ViralTests.Total, b.ViralTests.Total)
	return transform.Ratio(cases, tests, 100)
}

// breakdowns fans the registry-driven sub-objects out into one series each.
func (r *reducer) breakdowns(i int, rec *model.DailyRecord) {
	if r.fanOut(AgeRanges, rec.AgeRanges, AgeRangeSeries) {
		r.mark(CategoryAges, i)
	}
	if r.fanOut(AgeRanges, rec.Deaths.AgeRanges, DeathsByAgeSeries) {
		r.mark(CategoryDeathsByAge, i)
	}

	regions := make(map[string]model.Number, len(rec.Regions))
	for k, v := range rec.Regions {
		regions[k] = v.Cases
	}
	if r.fanOut(Regions, regions, RegionSeries) {
		r.mark(CategoryRegions, i)
	}
}

// fanOut stages one series per bucket and reports whether any was non-null.
func (r *reducer) fanOut(reg Registry, src map[string]model.Number, name func(string) string) bool {
	found := false
	for _, b := range reg {
		v := src[b.SourceKey]
		r.acc.set(name(b.Key), v)
		found = found || v.Valid
	}
	return found
}

func (r *reducer) isolation(i int, rec *model.DailyRecord) {
	r.acc.set(SeriesIsolationCurrent, rec.InIsolation.Current)
	r.acc.set(SeriesIsolationRelease, rec.InIsolation.TotalReleased)
	if rec.InIsolation.Current.Valid {
		r.mark(CategoryIsolation, i)
	}
}

func (r *reducer) hospitals(i int, rec *model.DailyRecord) {
	state := rec.Hospitalizations.StateData
	county := rec.Hospitalizations.CountyData.Hospitalized

	r.acc.set(SeriesHospitalized, state.Positive)
	r.acc.set(SeriesICU, state.ICUPositive)
	r.acc.set(SeriesResidentsInHosp, county)
	r.groupN(GroupHospitalizations, state.Positive)
	r.groupN(GroupHospitalizations, county)
	if county.Valid {
		r.mark(CategoryCountyHospitals, i)
	}
	if state.Positive.Valid {
		r.mark(CategoryStateHospitals, i)
	}
	if r.fanOut(Hospitals, state.Facilities, HospitalSeries) {
		r.mark(CategoryPerHospital, i)
	}
}

func (r *reducer) facility(i int, prefix, casesGroup, deathsGroup string, pick func(*model.DailyRecord) *model.CareFacility) {
	cur := pick(&r.rows[i])

	newPatient, newStaff := cur.TotalPatientDeaths, cur.TotalStaffDeaths
	if p := r.prev(i); p != nil && cur.TotalPatientDeaths.Valid && cur.TotalStaffDeaths.Valid {
		prev := pick(p)
		newPatient = model.Num(cur.TotalPatientDeaths.Value - prev.TotalPatientDeaths.Or(0))
		newStaff = model.Num(cur.TotalStaffDeaths.Value - prev.TotalStaffDeaths.Or(0))
	}
	newPatient = transform.ClampMin(newPatient, 0)
	newStaff = transform.ClampMin(newStaff, 0)

	r.acc.set(FacilitySeries(prefix, CurPatientCases), cur.CurrentPatientCases)
	r.acc.set(FacilitySeries(prefix, CurStaffCases), cur.CurrentStaffCases)
	r.acc.set(FacilitySeries(prefix, NewPatientDeaths), newPatient)
	r.acc.set(FacilitySeries(prefix, NewStaffDeaths), newStaff)

	if sum, ok := transform.SumAll(cur.CurrentPatientCases, cur.CurrentStaffCases); ok {
		r.group(casesGroup, sum)
	}
	if sum, ok := transform.SumValid(newPatient, newStaff); ok {
		r.group(deathsGroup, sum)
	}
}

func (r *reducer) jail(i int, rec *model.DailyRecord) {
	j := rec.CountyJail
	r.acc.set(SeriesJailInmatePopulation, j.Inmates.Population)
	r.acc.set(SeriesJailInmateTests, j.Inmates.TotalTests)
	r.acc.set(SeriesJailInmatePosResults, j.Inmates.TotalPositive)
	r.acc.set(SeriesJailInmateCurCases, j.Inmates.CurrentCases)
	r.acc.set(SeriesJailStaffTests, j.Staff.TotalTests)
	r.acc.set(SeriesJailStaffTotalCases, j.Staff.TotalPositive)

	r.groupN(GroupJailInmateCurCases, j.Inmates.CurrentCases)
	r.groupN(GroupJailInmatePopulation, j.Inmates.Population)
	r.groupN(GroupJailStaffTotalCases, j.Staff.TotalPositive)
	if j.Inmates.Population.Valid {
		r.mark(CategoryJail, i)
	}
}

func (r *reducer) vaccines(i int, rec *model.DailyRecord) {
	v := rec.Vaccines
	d := v.CHHS.Administered
	firstPct := transform.Round(d.OneOrMoreDosesPct, 2)
	fullPct := transform.Round(d.FullyPct, 2)

	r.acc.set(SeriesVaccineFirstDoses, d.OneOrMoreDoses)
	r.acc.set(SeriesVaccineFullDoses, d.Fully)
	r.acc.set(SeriesVaccineFirstDosesPct, firstPct)
	r.acc.set(SeriesVaccineFullDosesPct, fullPct)
	r.acc.set(SeriesVaccineTotal, d.Total)
	r.acc.set(SeriesVaccinePfizer, d.Pfizer)
	r.acc.set(SeriesVaccineModerna, d.Moderna)
	r.acc.set(SeriesVaccineJJ, d.JAndJ)
	r.acc.set(SeriesVaccineAllocated, v.Allocated)
	r.acc.set(SeriesVaccineAdministered, v.Administered)
	r.acc.set(SeriesVaccineReceived, v.Received)
	r.acc.set(SeriesVaccineOrdered1, v.FirstDosesOrdered)
	r.acc.set(SeriesVaccineOrdered2, v.SecondDosesOrdered)

	r.groupN(GroupVaccinesAdministered, d.OneOrMoreDoses)
	r.groupN(GroupVaccinesAdministered, d.Fully)
	r.groupN(GroupVaccinesByType, d.Pfizer)
	r.groupN(GroupVaccinesByType, d.Moderna)
	r.groupN(GroupVaccinesByType, d.JAndJ)

	oneDose, full := model.Null, model.Null
	if b := r.back(i, caseRateWindow); b != nil {
		prev := b.Vaccines.CHHS.Administered
		oneDose = transform.Delta(d.OneOrMoreDoses, prev.OneOrMoreDoses)
		full = transform.Delta(d.Fully, prev.Fully)
	}
	r.acc.set(SeriesVaccineOneWeek1Dose, oneDose)
	r.acc.set(SeriesVaccineOneWeekFull, full)
	r.groupN(GroupOneWeekVaccinesRate, oneDose)
	r.groupN(GroupOneWeekVaccinesRate, full)

	r.fanOut(VaccineGenders, v.Demographics.Gender, VaccineGenderSeries)
	r.fanOut(VaccineAges, v.Demographics.Age, VaccineAgeSeries)
	r.fanOut(VaccineEthnicities, v.Demographics.Ethnicity, VaccineEthnicitySeries)

	if v.Allocated.Valid {
		r.mark(CategoryVaccines, i)
	}
	if firstPct.Valid && fullPct.Valid {
		r.mark(CategoryVaccineCoverage, i)
	}
}

// ─── Schools ──────────────────────────────────────────────────────────────────

// schoolRow holds county-wide school case counts for one report day.
type schoolRow struct {
	newStudentsLocal, newStudentsRemote float64
	newStaffLocal, newStaffRemote       float64
	semStudentsLocal, semStudentsRemote float64
	semStaffLocal, semStaffRemote       float64
}

// reduceSchools sums every district per day and keeps running semester
// totals that reset on August 1. Group maxima cover every school day, not
// only days present in the timeline.
func (r *reducer) reduceSchools(days []model.SchoolDay) (map[string]schoolRow, []SchoolTotal) {
	if len(days) == 0 {
		return nil, nil
	}
	sorted := make([]model.SchoolDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	out := make(map[string]schoolRow, len(sorted))
	totals := make([]SchoolTotal, 0, len(sorted))
	var sem schoolRow
	for _, day := range sorted {
		if d, err := util.ParseDate(day.Date); err == nil && d.Month() == time.August && d.Day() == 1 {
			sem = schoolRow{}
		}
		var row schoolRow
		for _, district := range day.Districts {
			c := district.DistrictWide.NewCases
			row.newStudentsLocal += c.StudentsInPerson.Or(0)
			row.newStudentsRemote += c.StudentsRemote.Or(0)
			row.newStaffLocal += c.StaffInPerson.Or(0)
			row.newStaffRemote += c.StaffRemote.Or(0)
		}
		sem.semStudentsLocal += row.newStudentsLocal
		sem.semStudentsRemote += row.newStudentsRemote
		sem.semStaffLocal += row.newStaffLocal
		sem.semStaffRemote += row.newStaffRemote
		row.semStudentsLocal, row.semStudentsRemote = sem.semStudentsLocal, sem.semStudentsRemote
		row.semStaffLocal, row.semStaffRemote = sem.semStaffLocal, sem.semStaffRemote

		out[day.Date] = row
		totals = append(totals, SchoolTotal{
			Date:     day.Date,
			Students: row.semStudentsLocal + row.semStudentsRemote,
			Staff:    row.semStaffLocal + row.semStaffRemote,
		})
		r.group(GroupNewSchoolCases, row.newStudentsLocal+row.newStudentsRemote+row.newStaffLocal+row.newStaffRemote)
		r.group(GroupSemesterSchoolCases, row.semStudentsLocal+row.semStudentsRemote+row.semStaffLocal+row.semStaffRemote)
	}
	return out, totals
}

func (r *reducer) schoolRow(rec *model.DailyRecord) {
	s, ok := r.schools[rec.Date]
	if !ok {
		return
	}
	r.acc.set(SeriesSchoolNewStudentsLocal, model.Num(s.newStudentsLocal))
	r.acc.set(SeriesSchoolNewStudentsRemote, model.Num(s.newStudentsRemote))
	r.acc.set(SeriesSchoolNewStaffLocal, model.Num(s.newStaffLocal))
	r.acc.set(SeriesSchoolNewStaffRemote, model.Num(s.newStaffRemote))
	r.acc.set(SeriesSchoolSemesterStudentsLocal, model.Num(s.semStudentsLocal))
	r.acc.set(SeriesSchoolSemesterStudentsRemote, model.Num(s.semStudentsRemote))
	r.acc.set(SeriesSchoolSemesterStaffLocal, model.Num(s.semStaffLocal))
	r.acc.set(SeriesSchoolSemesterStaffRemote, model.Num(s.semStaffRemote))
}
