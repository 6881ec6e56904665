package segment

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

// Specification is the wire shape of a segment filter. Each group is a loose
// key/value bag because the dashboard sends two equivalent formats for the
// same attribute: a component range pair ("ageRange": [50, 70]) and a preset
// object ("age_range": {"min_median_age": 50, "max_median_age": 70}). Both are
// accepted; when both appear they are ANDed. Unknown keys and unparseable
// values are skipped, never fatal.
type Specification struct {
	Demographics map[string]json.RawMessage `json:"demographics"`
	Political    map[string]json.RawMessage `json:"political"`
	Targeting    map[string]json.RawMessage `json:"targeting"`
	Engagement   map[string]json.RawMessage `json:"engagement"`
}

// numField identifies a numeric precinct attribute a range filter can target.
type numField int

const (
	fieldMedianAge numField = iota
	fieldMedianHHI
	fieldCollegePct
	fieldHomeownerPct
	fieldDiversityIndex
	fieldPopulationDensity
	fieldDemAffiliation
	fieldRepAffiliation
	fieldIndependentPct
	fieldPartisanLean
	fieldSwingPotential
	fieldAvgTurnout
	fieldTurnoutDropoff
	fieldGOTVPriority
	fieldPersuasion
	fieldCombinedScore
)

// fieldSpan is the typical value span per field, used to normalize how tight a
// requested range is when scoring (see engine.go).
var fieldSpan = map[numField]float64{
	fieldMedianAge:         60,
	fieldMedianHHI:         150000,
	fieldCollegePct:        100,
	fieldHomeownerPct:      100,
	fieldDiversityIndex:    1,
	fieldPopulationDensity: 10000,
	fieldDemAffiliation:    100,
	fieldRepAffiliation:    100,
	fieldIndependentPct:    100,
	fieldPartisanLean:      100,
	fieldSwingPotential:    100,
	fieldAvgTurnout:        100,
	fieldTurnoutDropoff:    100,
	fieldGOTVPriority:      100,
	fieldPersuasion:        100,
	fieldCombinedScore:     100,
}

func fieldValue(f numField, rec precinct.Record) (float64, bool) {
	switch f {
	case fieldMedianAge:
		return precinct.Num(rec.Demographics.MedianAge)
	case fieldMedianHHI:
		return precinct.Num(rec.Demographics.MedianHHI)
	case fieldCollegePct:
		return precinct.Num(rec.Demographics.CollegePct)
	case fieldHomeownerPct:
		return precinct.Num(rec.Demographics.HomeownerPct)
	case fieldDiversityIndex:
		return precinct.Num(rec.Demographics.DiversityIndex)
	case fieldPopulationDensity:
		return precinct.Num(rec.Demographics.PopulationDensity)
	case fieldDemAffiliation:
		return precinct.Num(rec.Political.DemAffiliationPct)
	case fieldRepAffiliation:
		return precinct.Num(rec.Political.RepAffiliationPct)
	case fieldIndependentPct:
		return precinct.Num(rec.Political.IndependentPct)
	case fieldPartisanLean:
		return precinct.Num(rec.Electoral.PartisanLean)
	case fieldSwingPotential:
		return precinct.Num(rec.Electoral.SwingPotential)
	case fieldAvgTurnout:
		return precinct.Num(rec.Electoral.AvgTurnout)
	case fieldTurnoutDropoff:
		return precinct.Num(rec.Electoral.TurnoutDropoff)
	case fieldGOTVPriority:
		return precinct.Num(rec.Targeting.GOTVPriority)
	case fieldPersuasion:
		return precinct.Num(rec.Targeting.PersuasionOpportunity)
	case fieldCombinedScore:
		return precinct.Num(rec.Targeting.CombinedScore)
	}
	return 0, false
}

// catKind identifies a derived categorical attribute.
type catKind int

const (
	catAgeCohort catKind = iota
	catIncomeLevel
	catDensity
	catPartyLean
	catOutlook
	catHousing
	catCompetitiveness
	catStrategy
)

func categoryOf(k catKind, t classify.Thresholds, rec precinct.Record) (string, bool) {
	switch k {
	case catAgeCohort:
		return classify.AgeCohort(t, rec)
	case catIncomeLevel:
		return classify.IncomeLevel(t, rec)
	case catDensity:
		return classify.DensityBand(t, rec)
	case catPartyLean:
		return classify.PartyLeanBand(t, rec)
	case catOutlook:
		return classify.PoliticalOutlook(t, rec)
	case catHousing:
		return classify.HousingType(t, rec)
	case catCompetitiveness:
		if rec.Electoral.Competitiveness == "" {
			return "", false
		}
		return rec.Electoral.Competitiveness, true
	case catStrategy:
		if rec.Targeting.Strategy == "" {
			return "", false
		}
		return rec.Targeting.Strategy, true
	}
	return "", false
}

type flagKind int

const (
	flagHighDonor flagKind = iota
	flagHighMedia
	flagHighSocial
)

type rangeFilter struct {
	field    numField
	min, max float64
	// bounded marks whether both ends were supplied; one-sided ranges score
	// as if they spanned the whole field.
	bounded bool
}

type categoryFilter struct {
	kind    catKind
	allowed map[string]struct{}
}

type flagFilter struct {
	kind flagKind
	want bool
}

// normalized is the canonical internal filter form both evaluation and
// scoring run against. Group boundaries are flattened away; targetingUsed
// records whether any targeting filter was in play so scoring can weigh the
// precinct's own targeting scores.
type normalized struct {
	ranges        []rangeFilter
	cats          []categoryFilter
	flags         []flagFilter
	targetingUsed bool
}

// rangeKeys maps the accepted JSON keys per group onto numeric fields. Both
// the camelCase component key and the snake_case preset key appear; the value
// decoder handles either shape for either key.
var demographicRangeKeys = map[string]numField{
	"ageRange":        fieldMedianAge,
	"age_range":       fieldMedianAge,
	"incomeRange":     fieldMedianHHI,
	"income_range":    fieldMedianHHI,
	"collegeRange":    fieldCollegePct,
	"college_range":   fieldCollegePct,
	"homeownerRange":  fieldHomeownerPct,
	"homeowner_range": fieldHomeownerPct,
	"diversityRange":  fieldDiversityIndex,
	"diversity_range": fieldDiversityIndex,
	"densityRange":    fieldPopulationDensity,
	"density_range":   fieldPopulationDensity,
}

var demographicCatKeys = map[string]catKind{
	"ageCohort":    catAgeCohort,
	"age_cohort":   catAgeCohort,
	"incomeLevel":  catIncomeLevel,
	"income_level": catIncomeLevel,
	"density":      catDensity,
	"housingType":  catHousing,
	"housing_type": catHousing,
}

var politicalRangeKeys = map[string]numField{
	"demRange":          fieldDemAffiliation,
	"dem_range":         fieldDemAffiliation,
	"repRange":          fieldRepAffiliation,
	"rep_range":         fieldRepAffiliation,
	"independentRange":  fieldIndependentPct,
	"independent_range": fieldIndependentPct,
	"leanRange":         fieldPartisanLean,
	"partisan_lean":     fieldPartisanLean,
}

var politicalCatKeys = map[string]catKind{
	"partyLean":         catPartyLean,
	"party_lean":        catPartyLean,
	"politicalOutlook":  catOutlook,
	"political_outlook": catOutlook,
	"competitiveness":   catCompetitiveness,
}

var targetingRangeKeys = map[string]numField{
	"gotvRange":              fieldGOTVPriority,
	"gotv_priority":          fieldGOTVPriority,
	"persuasionRange":        fieldPersuasion,
	"persuasion_opportunity": fieldPersuasion,
	"combinedRange":          fieldCombinedScore,
	"combined_score":         fieldCombinedScore,
	"swingRange":             fieldSwingPotential,
	"swing_potential":        fieldSwingPotential,
	"turnoutRange":           fieldAvgTurnout,
	"avg_turnout":            fieldAvgTurnout,
	"dropoffRange":           fieldTurnoutDropoff,
	"turnout_dropoff":        fieldTurnoutDropoff,
}

var targetingCatKeys = map[string]catKind{
	"strategy": catStrategy,
}

var engagementFlagKeys = map[string]flagKind{
	"highDonorConcentration": flagHighDonor,
	"highMediaEngagement":    flagHighMedia,
	"highSocialEngagement":   flagHighSocial,
}

func normalize(spec Specification) normalized {
	var n normalized

	collectGroup(&n, spec.Demographics, demographicRangeKeys, demographicCatKeys, false)
	collectGroup(&n, spec.Political, politicalRangeKeys, politicalCatKeys, false)
	collectGroup(&n, spec.Targeting, targetingRangeKeys, targetingCatKeys, true)

	for key, raw := range spec.Engagement {
		kind, ok := engagementFlagKeys[key]
		if !ok {
			continue // unknown key, skip
		}
		var want bool
		if err := json.Unmarshal(raw, &want); err != nil {
			continue
		}
		n.flags = append(n.flags, flagFilter{kind: kind, want: want})
	}

	return n
}

func collectGroup(n *normalized, group map[string]json.RawMessage, rangeKeys map[string]numField, catKeys map[string]catKind, targeting bool) {
	for key, raw := range group {
		if field, ok := rangeKeys[key]; ok {
			if rf, ok := parseRange(field, raw); ok {
				n.ranges = append(n.ranges, rf)
				if targeting {
					n.targetingUsed = true
				}
			}
			continue
		}
		if kind, ok := catKeys[key]; ok {
			if cf, ok := parseCategories(kind, raw); ok {
				n.cats = append(n.cats, cf)
				if targeting {
					n.targetingUsed = true
				}
			}
			continue
		}
		// unknown key, skip
	}
}

// parseRange accepts either the component pair format [min, max] or the
// preset object format {"min_<attr>": x, "max_<attr>": y}. Preset bounds may
// be one-sided.
func parseRange(field numField, raw json.RawMessage) (rangeFilter, bool) {
	var pair []float64
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) != 2 || math.IsNaN(pair[0]) || math.IsNaN(pair[1]) {
			return rangeFilter{}, false
		}
		return rangeFilter{field: field, min: pair[0], max: pair[1], bounded: true}, true
	}

	var preset map[string]float64
	if err := json.Unmarshal(raw, &preset); err != nil {
		return rangeFilter{}, false
	}

	min, max := math.Inf(-1), math.Inf(1)
	hasMin, hasMax := false, false
	for k, v := range preset {
		if math.IsNaN(v) {
			continue
		}
		if strings.HasPrefix(k, "min_") {
			min, hasMin = v, true
		} else if strings.HasPrefix(k, "max_") {
			max, hasMax = v, true
		}
	}
	if !hasMin && !hasMax {
		return rangeFilter{}, false
	}
	return rangeFilter{field: field, min: min, max: max, bounded: hasMin && hasMax}, true
}

// parseCategories accepts a single string or an array of strings.
func parseCategories(kind catKind, raw json.RawMessage) (categoryFilter, bool) {
	allowed := make(map[string]struct{})

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return categoryFilter{}, false
		}
		allowed[one] = struct{}{}
		return categoryFilter{kind: kind, allowed: allowed}, true
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err != nil || len(many) == 0 {
		return categoryFilter{}, false
	}
	for _, v := range many {
		if v != "" {
			allowed[v] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return categoryFilter{}, false
	}
	return categoryFilter{kind: kind, allowed: allowed}, true
}
