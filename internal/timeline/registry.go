package timeline

import (
	"sort"
	"strconv"
	"strings"
)

// Bucket is one entry of a static category registry. Key is the stable
// output key, SourceKey the field name in the feed. Legacy buckets belong to
// a retired upstream scheme: they keep their historical series but are left
// out of present-day views.
type Bucket struct {
	Key       string
	SourceKey string
	Label     string
	Legacy    bool
}

// Registry is an ordered list of buckets.
type Registry []Bucket

// Current returns the non-legacy buckets in registry order.
func (r Registry) Current() Registry {
	out := make(Registry, 0, len(r))
	for _, b := range r {
		if !b.Legacy {
			out = append(out, b)
		}
	}
	return out
}

// Keys returns the bucket keys in registry order.
func (r Registry) Keys() []string {
	keys := make([]string, len(r))
	for i, b := range r {
		keys[i] = b.Key
	}
	return keys
}

// Lookup finds a bucket by key.
func (r Registry) Lookup(key string) (Bucket, bool) {
	for _, b := range r {
		if b.Key == key {
			return b, true
		}
	}
	return Bucket{}, false
}

// ageBucket builds an age range whose source key is the output key with
// dashes, and whose label is the same unless overridden.
func ageBucket(key string, legacy bool) Bucket {
	src := strings.ReplaceAll(key, "_", "-")
	label := src
	if strings.HasSuffix(key, "_plus") {
		src = key
		label = strings.TrimSuffix(key, "_plus") + "+"
	}
	return Bucket{Key: key, SourceKey: src, Label: label, Legacy: legacy}
}

// sortAgeRanges orders by (legacy, lower bound).
func sortAgeRanges(r Registry) Registry {
	lower := func(b Bucket) int {
		n, _ := strconv.Atoi(strings.SplitN(b.Key, "_", 2)[0])
		return n
	}
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Legacy != r[j].Legacy {
			return !r[i].Legacy
		}
		return lower(r[i]) < lower(r[j])
	})
	return r
}

// AgeRanges lists every age bucket the feed has ever published. The 0_17
// bucket was retired in December 2020; 18_49, 50_64 and 65_plus in July 2020.
var AgeRanges = sortAgeRanges(Registry{
	ageBucket("0_4", false),
	ageBucket("5_12", false),
	ageBucket("13_17", false),
	ageBucket("18_24", false),
	ageBucket("25_34", false),
	ageBucket("35_44", false),
	ageBucket("45_54", false),
	ageBucket("55_64", false),
	ageBucket("65_74", false),
	ageBucket("75_plus", false),
	ageBucket("0_17", true),
	ageBucket("18_49", true),
	ageBucket("50_64", true),
	ageBucket("65_plus", true),
})

// Regions are the county case regions. Gridley was later merged into
// biggs_gridley and is kept for history only.
var Regions = Registry{
	{Key: "biggs_gridley", SourceKey: "biggs_gridley", Label: "Biggs, Gridley"},
	{Key: "chico", SourceKey: "chico", Label: "Chico"},
	{Key: "durham", SourceKey: "durham", Label: "Durham"},
	{Key: "gridley", SourceKey: "gridley", Label: "Gridley", Legacy: true},
	{Key: "oroville", SourceKey: "oroville", Label: "Oroville"},
	{Key: "ridge", SourceKey: "ridge", Label: "Paradise, Magalia..."},
	{Key: "other", SourceKey: "other", Label: "Other"},
}

// Hospitals are the facilities reported individually in state data.
var Hospitals = Registry{
	{Key: "enloe_hospital", SourceKey: "enloe_hospital", Label: "Enloe Hospital"},
	{Key: "oroville_hospital", SourceKey: "oroville_hospital", Label: "Oroville Hospital"},
	{Key: "orchard_hospital", SourceKey: "orchard_hospital", Label: "Orchard Hospital"},
}

// VaccineGenders, VaccineAges and VaccineEthnicities are the CHHS vaccine
// demographic breakdowns.
var (
	VaccineGenders = Registry{
		{Key: "male", SourceKey: "male", Label: "Male"},
		{Key: "female", SourceKey: "female", Label: "Female"},
		{Key: "unknown", SourceKey: "unknown", Label: "Unknown"},
	}
	VaccineAges = Registry{
		{Key: "0_11", SourceKey: "0_11", Label: "0-11"},
		{Key: "12_17", SourceKey: "12_17", Label: "12-17"},
		{Key: "18_49", SourceKey: "18_49", Label: "18-49"},
		{Key: "50_64", SourceKey: "50_64", Label: "50-64"},
		{Key: "65_plus", SourceKey: "65_plus", Label: "65+"},
		{Key: "unknown", SourceKey: "unknown", Label: "Unknown"},
	}
	VaccineEthnicities = Registry{
		{Key: "aian", SourceKey: "ai_an", Label: "American Indian or Alaska Native"},
		{Key: "asianAmerican", SourceKey: "asian_american", Label: "Asian American"},
		{Key: "black", SourceKey: "black", Label: "Black"},
		{Key: "latino", SourceKey: "latino", Label: "Latino"},
		{Key: "white", SourceKey: "white", Label: "White"},
		{Key: "nhpi", SourceKey: "nhpi", Label: "Native Hawaiian and other Pacific Islander"},
		{Key: "multirace", SourceKey: "multi_race", Label: "Multi-Race"},
		{Key: "other", SourceKey: "other", Label: "Other"},
		{Key: "unknown", SourceKey: "unknown", Label: "Unknown"},
	}
)
