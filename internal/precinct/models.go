package precinct

import (
	"time"

	"github.com/google/uuid"
)

// Precinct is the storage row. Columns are flat and nullable; ToRecord maps a
// row into the nested analytic shape the engines consume.
type Precinct struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ExternalID   string    `json:"external_id" gorm:"uniqueIndex"`
	Name         string    `json:"name"`
	Jurisdiction string    `json:"jurisdiction" gorm:"index"`

	// Demographics
	TotalPopulation   *float64 `json:"total_population"`
	Population18Up    *float64 `json:"population_18up"`
	MedianAge         *float64 `json:"median_age"`
	MedianHHI         *float64 `json:"median_hhi"`
	CollegePct        *float64 `json:"college_pct"`
	HomeownerPct      *float64 `json:"homeowner_pct"`
	DiversityIndex    *float64 `json:"diversity_index"`
	PopulationDensity *float64 `json:"population_density"`

	// Political affiliation / ideology (independent axes)
	DemAffiliationPct *float64 `json:"dem_affiliation_pct"`
	RepAffiliationPct *float64 `json:"rep_affiliation_pct"`
	IndependentPct    *float64 `json:"independent_pct"`
	LiberalPct        *float64 `json:"liberal_pct"`
	ModeratePct       *float64 `json:"moderate_pct"`
	ConservativePct   *float64 `json:"conservative_pct"`

	// Electoral history
	PartisanLean    *float64 `json:"partisan_lean"`
	SwingPotential  *float64 `json:"swing_potential"`
	Competitiveness string   `json:"competitiveness"`
	AvgTurnout      *float64 `json:"avg_turnout"`
	TurnoutDropoff  *float64 `json:"turnout_dropoff"`

	// Precomputed targeting scores
	GOTVPriority          *float64 `json:"gotv_priority"`
	PersuasionOpportunity *float64 `json:"persuasion_opportunity"`
	CombinedScore         *float64 `json:"combined_score"`
	Strategy              string   `json:"strategy"`

	// Engagement (optional block; HasEngagement gates the whole group)
	HasEngagement bool     `json:"has_engagement"`
	MediaPct      *float64 `json:"media_pct"`
	SocialPct     *float64 `json:"social_pct"`
	DonorPct      *float64 `json:"donor_pct"`

	// Provenance / syncing
	Source     string    `json:"source"` // "csv-seed"
	LastSynced time.Time `json:"last_synced"`
}

func (Precinct) TableName() string {
	return "analytics.precincts"
}

func (p Precinct) ToRecord() Record {
	rec := Record{
		ID:           p.ExternalID,
		Name:         p.Name,
		Jurisdiction: p.Jurisdiction,
		Demographics: Demographics{
			TotalPopulation:   p.TotalPopulation,
			Population18Up:    p.Population18Up,
			MedianAge:         p.MedianAge,
			MedianHHI:         p.MedianHHI,
			CollegePct:        p.CollegePct,
			HomeownerPct:      p.HomeownerPct,
			DiversityIndex:    p.DiversityIndex,
			PopulationDensity: p.PopulationDensity,
		},
		Political: Political{
			DemAffiliationPct: p.DemAffiliationPct,
			RepAffiliationPct: p.RepAffiliationPct,
			IndependentPct:    p.IndependentPct,
			LiberalPct:        p.LiberalPct,
			ModeratePct:       p.ModeratePct,
			ConservativePct:   p.ConservativePct,
		},
		Electoral: Electoral{
			PartisanLean:    p.PartisanLean,
			SwingPotential:  p.SwingPotential,
			Competitiveness: p.Competitiveness,
			AvgTurnout:      p.AvgTurnout,
			TurnoutDropoff:  p.TurnoutDropoff,
		},
		Targeting: Targeting{
			GOTVPriority:          p.GOTVPriority,
			PersuasionOpportunity: p.PersuasionOpportunity,
			CombinedScore:         p.CombinedScore,
			Strategy:              p.Strategy,
		},
	}

	if p.HasEngagement {
		rec.Engagement = &Engagement{
			MediaPct:  p.MediaPct,
			SocialPct: p.SocialPct,
			DonorPct:  p.DonorPct,
		}
	}

	return rec
}
