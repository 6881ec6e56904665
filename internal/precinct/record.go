package precinct

import "math"

// Record is the normalized analytic shape both engines consume. Numeric fields
// are pointers because real precinct files routinely omit columns; a nil or
// non-finite value means "no data", never zero.
type Record struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`

	Demographics Demographics `json:"demographics"`
	Political    Political    `json:"political"`
	Electoral    Electoral    `json:"electoral"`
	Targeting    Targeting    `json:"targeting"`
	Engagement   *Engagement  `json:"engagement,omitempty"`
}

type Demographics struct {
	TotalPopulation   *float64 `json:"totalPopulation,omitempty"`
	Population18Up    *float64 `json:"population18up,omitempty"`
	MedianAge         *float64 `json:"medianAge,omitempty"`
	MedianHHI         *float64 `json:"medianHHI,omitempty"`
	CollegePct        *float64 `json:"collegePct,omitempty"`
	HomeownerPct      *float64 `json:"homeownerPct,omitempty"`
	DiversityIndex    *float64 `json:"diversityIndex,omitempty"`
	PopulationDensity *float64 `json:"populationDensity,omitempty"`
}

type Political struct {
	DemAffiliationPct *float64 `json:"demAffiliationPct,omitempty"`
	RepAffiliationPct *float64 `json:"repAffiliationPct,omitempty"`
	IndependentPct    *float64 `json:"independentPct,omitempty"`
	LiberalPct        *float64 `json:"liberalPct,omitempty"`
	ModeratePct       *float64 `json:"moderatePct,omitempty"`
	ConservativePct   *float64 `json:"conservativePct,omitempty"`
}

type Electoral struct {
	PartisanLean    *float64 `json:"partisanLean,omitempty"`
	SwingPotential  *float64 `json:"swingPotential,omitempty"`
	Competitiveness string   `json:"competitiveness,omitempty"`
	AvgTurnout      *float64 `json:"avgTurnout,omitempty"`
	TurnoutDropoff  *float64 `json:"turnoutDropoff,omitempty"`
}

type Targeting struct {
	GOTVPriority          *float64 `json:"gotvPriority,omitempty"`
	PersuasionOpportunity *float64 `json:"persuasionOpportunity,omitempty"`
	CombinedScore         *float64 `json:"combinedScore,omitempty"`
	Strategy              string   `json:"strategy,omitempty"`
}

type Engagement struct {
	MediaPct  *float64 `json:"mediaPct,omitempty"`
	SocialPct *float64 `json:"socialPct,omitempty"`
	DonorPct  *float64 `json:"donorPct,omitempty"`
}

// Num unwraps an optional numeric field. The second return is false when the
// field is absent or non-finite, so callers can exclude rather than coerce.
func Num(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v := *p
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Ptr is a convenience for building records in seeds and tests.
func Ptr(v float64) *float64 {
	return &v
}
