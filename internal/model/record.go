package model

import (
	"encoding/json"
)

// ─── Daily Record ─────────────────────────────────────────────────────────────

// DailyRecord is one calendar day of the published timeline. Every leaf may
// be null. A whole category object may also be absent on older rows; it then
// decodes to its zero value, which is all-null.
type DailyRecord struct {
	Date             string                 `json:"date"`
	ConfirmedCases   Totals                 `json:"confirmed_cases"`
	Deaths           Deaths                 `json:"deaths"`
	ViralTests       ViralTests             `json:"viral_tests"`
	Regions          map[string]RegionCases `json:"regions,omitempty"`
	AgeRanges        map[string]Number      `json:"age_ranges_in_years,omitempty"`
	Hospitalizations Hospitalizations       `json:"hospitalizations"`
	SkilledNursing   CareFacility           `json:"skilled_nursing_facilities"`
	AdultSeniorCare  CareFacility           `json:"adult_senior_care"`
	CountyJail       CountyJail             `json:"county_jail"`
	InIsolation      Isolation              `json:"in_isolation"`
	Monitoring       Monitoring             `json:"monitoring"`
	Vaccines         Vaccines               `json:"vaccines"`
	Note             string                 `json:"note,omitempty"`
}

// Totals is a cumulative count and its day-over-day change.
type Totals struct {
	Total      Number `json:"total"`
	DeltaTotal Number `json:"delta_total"`
}

// Deaths adds the per-age breakdown to the cumulative totals.
type Deaths struct {
	Totals
	AgeRanges map[string]Number `json:"age_ranges_in_years,omitempty"`
}

// ViralTests covers test volume and results.
type ViralTests struct {
	Totals
	Results              Number `json:"results"`
	PositiveResults      Number `json:"positive_results"`
	DeltaPositiveResults Number `json:"delta_positive_results"`
	PosRate              Number `json:"pos_rate"`
}

// RegionCases is the cumulative case count for one region.
type RegionCases struct {
	Cases Number `json:"cases"`
}

// Hospitalizations holds county- and state-reported hospital data.
type Hospitalizations struct {
	CountyData struct {
		Hospitalized Number `json:"hospitalized"`
	} `json:"county_data"`
	StateData StateHospitals `json:"state_data"`
}

// StateHospitals holds the state-reported totals plus one entry per
// facility. Facilities are flat keys next to the totals in the wire format.
type StateHospitals struct {
	Positive    Number
	ICUPositive Number
	Facilities  map[string]Number
}

// UnmarshalJSON splits the flat wire object into totals and facilities.
func (h *StateHospitals) UnmarshalJSON(data []byte) error {
	var raw map[string]Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = StateHospitals{}
	for k, v := range raw {
		switch k {
		case "positive":
			h.Positive = v
		case "icu_positive":
			h.ICUPositive = v
		default:
			if h.Facilities == nil {
				h.Facilities = make(map[string]Number)
			}
			h.Facilities[k] = v
		}
	}
	return nil
}

// MarshalJSON flattens back into the wire format.
func (h StateHospitals) MarshalJSON() ([]byte, error) {
	raw := make(map[string]Number, len(h.Facilities)+2)
	for k, v := range h.Facilities {
		raw[k] = v
	}
	raw["positive"] = h.Positive
	raw["icu_positive"] = h.ICUPositive
	return json.Marshal(raw)
}

// CareFacility is the shape shared by skilled nursing and adult/senior care.
type CareFacility struct {
	CurrentPatientCases Number `json:"current_patient_cases"`
	CurrentStaffCases   Number `json:"current_staff_cases"`
	TotalPatientDeaths  Number `json:"total_patient_deaths"`
	TotalStaffDeaths    Number `json:"total_staff_deaths"`
}

// CountyJail covers inmates and staff.
type CountyJail struct {
	Inmates struct {
		Population    Number `json:"population"`
		TotalTests    Number `json:"total_tests"`
		TotalPositive Number `json:"total_positive"`
		CurrentCases  Number `json:"current_cases"`
	} `json:"inmates"`
	Staff struct {
		TotalTests    Number `json:"total_tests"`
		TotalPositive Number `json:"total_positive"`
	} `json:"staff"`
}

// Isolation is the count of people currently isolated and released.
type Isolation struct {
	Current       Number `json:"current"`
	TotalReleased Number `json:"total_released"`
}

// Monitoring carries the state monitoring tier label.
type Monitoring struct {
	Tier string `json:"tier"`
}

// Vaccines combines county distribution counts with state (CHHS) coverage.
type Vaccines struct {
	Allocated          Number `json:"allocated"`
	Administered       Number `json:"administered"`
	FirstDosesOrdered  Number `json:"first_doses_ordered"`
	SecondDosesOrdered Number `json:"second_doses_ordered"`
	Received           Number `json:"received"`
	CHHS               struct {
		Administered VaccineDoses `json:"administered"`
	} `json:"chhs"`
	Demographics struct {
		Gender    map[string]Number `json:"gender,omitempty"`
		Age       map[string]Number `json:"age,omitempty"`
		Ethnicity map[string]Number `json:"ethnicity,omitempty"`
	} `json:"demographics"`
}

// VaccineDoses is the CHHS administered breakdown.
type VaccineDoses struct {
	OneOrMoreDoses    Number `json:"1_or_more_doses"`
	OneOrMoreDosesPct Number `json:"1_or_more_doses_pct"`
	Fully             Number `json:"fully"`
	FullyPct          Number `json:"fully_pct"`
	Total             Number `json:"total"`
	Pfizer            Number `json:"pfizer"`
	Moderna           Number `json:"moderna"`
	JAndJ             Number `json:"j_and_j"`
}
