package classify

import "github.com/PrecinctPulse/PP-Backend/internal/precinct"

// Derived categorical buckets. Each function returns ok=false when the
// underlying numeric data is missing, which callers treat as "undefined
// category": the precinct can never match a categorical filter on it.

const (
	CohortYoung  = "young"
	CohortMiddle = "middle"
	CohortSenior = "senior"

	IncomeLow    = "low"
	IncomeMiddle = "middle"
	IncomeHigh   = "high"

	DensityRural    = "rural"
	DensitySuburban = "suburban"
	DensityUrban    = "urban"

	LeanStrongDem = "strong_dem"
	LeanDem       = "lean_dem"
	LeanIndep     = "independent"
	LeanRep       = "lean_rep"
	LeanStrongRep = "strong_rep"

	OutlookLiberal      = "liberal"
	OutlookModerate     = "moderate"
	OutlookConservative = "conservative"

	HousingOwner  = "owner"
	HousingRenter = "renter"
)

func AgeCohort(t Thresholds, rec precinct.Record) (string, bool) {
	age, ok := precinct.Num(rec.Demographics.MedianAge)
	if !ok {
		return "", false
	}
	switch {
	case age < t.Age.YoungMax:
		return CohortYoung, true
	case age >= t.Age.SeniorMin:
		return CohortSenior, true
	default:
		return CohortMiddle, true
	}
}

func IncomeLevel(t Thresholds, rec precinct.Record) (string, bool) {
	hhi, ok := precinct.Num(rec.Demographics.MedianHHI)
	if !ok {
		return "", false
	}
	switch {
	case hhi < t.Income.LowMax:
		return IncomeLow, true
	case hhi >= t.Income.HighMin:
		return IncomeHigh, true
	default:
		return IncomeMiddle, true
	}
}

func DensityBand(t Thresholds, rec precinct.Record) (string, bool) {
	d, ok := precinct.Num(rec.Demographics.PopulationDensity)
	if !ok {
		return "", false
	}
	switch {
	case d >= t.Density.UrbanMin:
		return DensityUrban, true
	case d >= t.Density.SuburbanMin:
		return DensitySuburban, true
	default:
		return DensityRural, true
	}
}

// PartyLeanBand classifies by registration margin. A large independent share
// wins over the margin since neither party holds the precinct.
func PartyLeanBand(t Thresholds, rec precinct.Record) (string, bool) {
	dem, okD := precinct.Num(rec.Political.DemAffiliationPct)
	rep, okR := precinct.Num(rec.Political.RepAffiliationPct)
	if !okD || !okR {
		return "", false
	}

	if ind, ok := precinct.Num(rec.Political.IndependentPct); ok && ind >= t.PartyLean.IndependentMin {
		return LeanIndep, true
	}

	margin := dem - rep
	switch {
	case margin >= t.PartyLean.StrongMargin:
		return LeanStrongDem, true
	case margin >= t.PartyLean.LeanMargin:
		return LeanDem, true
	case margin <= -t.PartyLean.StrongMargin:
		return LeanStrongRep, true
	case margin <= -t.PartyLean.LeanMargin:
		return LeanRep, true
	default:
		return LeanIndep, true
	}
}

func PoliticalOutlook(t Thresholds, rec precinct.Record) (string, bool) {
	lib, okL := precinct.Num(rec.Political.LiberalPct)
	mod, okM := precinct.Num(rec.Political.ModeratePct)
	con, okC := precinct.Num(rec.Political.ConservativePct)
	if !okL || !okM || !okC {
		return "", false
	}

	// Plurality wins; moderate takes ties.
	if lib > mod && lib > con {
		return OutlookLiberal, true
	}
	if con > mod && con > lib {
		return OutlookConservative, true
	}
	return OutlookModerate, true
}

func HousingType(t Thresholds, rec precinct.Record) (string, bool) {
	pct, ok := precinct.Num(rec.Demographics.HomeownerPct)
	if !ok {
		return "", false
	}
	if pct >= t.Housing.OwnerMin {
		return HousingOwner, true
	}
	return HousingRenter, true
}

// HighDonorConcentration and friends gate boolean engagement filters.
// Precincts without an engagement block never qualify.

func HighDonorConcentration(t Thresholds, rec precinct.Record) bool {
	if rec.Engagement == nil {
		return false
	}
	v, ok := precinct.Num(rec.Engagement.DonorPct)
	return ok && v >= t.Engagement.HighDonorMin
}

func HighMediaEngagement(t Thresholds, rec precinct.Record) bool {
	if rec.Engagement == nil {
		return false
	}
	v, ok := precinct.Num(rec.Engagement.MediaPct)
	return ok && v >= t.Engagement.HighMediaMin
}

func HighSocialEngagement(t Thresholds, rec precinct.Record) bool {
	if rec.Engagement == nil {
		return false
	}
	v, ok := precinct.Num(rec.Engagement.SocialPct)
	return ok && v >= t.Engagement.HighSocialMin
}
