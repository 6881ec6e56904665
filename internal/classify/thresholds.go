package classify

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Thresholds is the single table of cutoffs consulted by both the segment and
// insights engines, so a precinct classifies identically everywhere. Defaults
// come from DefaultThresholds; a YAML file named by THRESHOLDS_PATH can
// override any subset.
type Thresholds struct {
	Age struct {
		YoungMax  float64 `yaml:"young_max"`  // medianAge below this = young
		SeniorMin float64 `yaml:"senior_min"` // medianAge at/above this = senior
	} `yaml:"age"`

	Income struct {
		LowMax  float64 `yaml:"low_max"`  // medianHHI below this = low
		HighMin float64 `yaml:"high_min"` // medianHHI at/above this = high
	} `yaml:"income"`

	Density struct {
		SuburbanMin float64 `yaml:"suburban_min"` // per-sq-mile floor for suburban
		UrbanMin    float64 `yaml:"urban_min"`    // per-sq-mile floor for urban
	} `yaml:"density"`

	PartyLean struct {
		StrongMargin   float64 `yaml:"strong_margin"`   // |dem-rep| for strong_*
		LeanMargin     float64 `yaml:"lean_margin"`     // |dem-rep| for lean_*
		IndependentMin float64 `yaml:"independent_min"` // independentPct override
	} `yaml:"party_lean"`

	Housing struct {
		OwnerMin float64 `yaml:"owner_min"` // homeownerPct at/above = owner
	} `yaml:"housing"`

	Engagement struct {
		HighDonorMin  float64 `yaml:"high_donor_min"`
		HighMediaMin  float64 `yaml:"high_media_min"`
		HighSocialMin float64 `yaml:"high_social_min"`
	} `yaml:"engagement"`

	GOTV struct {
		PriorityMin  float64 `yaml:"priority_min"`  // gotvPriority floor for a cluster
		MinPrecincts int     `yaml:"min_precincts"` // smallest reportable cluster
		TurnoutSoft  float64 `yaml:"turnout_soft"`  // turnout below this strengthens the finding
	} `yaml:"gotv"`

	Risk struct {
		LeanMin      float64 `yaml:"lean_min"`      // Dem lean floor for vulnerability
		SwingMin     float64 `yaml:"swing_min"`     // swingPotential floor
		MinPrecincts int     `yaml:"min_precincts"`
		HighCount    int     `yaml:"high_count"` // cluster size that escalates to high
	} `yaml:"risk"`

	Anomaly struct {
		TurnoutStdDevs     float64 `yaml:"turnout_std_devs"` // outlier = below mean - k*stddev
		MismatchIncomeMin  float64 `yaml:"mismatch_income_min"`
		MismatchCollegeMin float64 `yaml:"mismatch_college_min"`
		MismatchLeanMax    float64 `yaml:"mismatch_lean_max"` // partisanLean at/below = strongly Rep
	} `yaml:"anomaly"`

	Pattern struct {
		MinPrecincts int     `yaml:"min_precincts"` // jurisdiction size floor
		DeltaPoints  float64 `yaml:"delta_points"`  // jurisdiction mean vs. overall mean
	} `yaml:"pattern"`

	Recommendation struct {
		GOTVLeanMin        float64 `yaml:"gotv_lean_min"` // mean lean above = GOTV strategy
		PersuasionSwingMin float64 `yaml:"persuasion_swing_min"`
		NeutralLeanAbsMax  float64 `yaml:"neutral_lean_abs_max"`
	} `yaml:"recommendation"`
}

func DefaultThresholds() Thresholds {
	var t Thresholds

	t.Age.YoungMax = 35
	t.Age.SeniorMin = 55

	t.Income.LowMax = 50000
	t.Income.HighMin = 100000

	t.Density.SuburbanMin = 1000
	t.Density.UrbanMin = 3000

	t.PartyLean.StrongMargin = 20
	t.PartyLean.LeanMargin = 5
	t.PartyLean.IndependentMin = 40

	t.Housing.OwnerMin = 50

	t.Engagement.HighDonorMin = 10
	t.Engagement.HighMediaMin = 50
	t.Engagement.HighSocialMin = 40

	t.GOTV.PriorityMin = 70
	t.GOTV.MinPrecincts = 3
	t.GOTV.TurnoutSoft = 55

	t.Risk.LeanMin = 5
	t.Risk.SwingMin = 60
	t.Risk.MinPrecincts = 3
	t.Risk.HighCount = 4

	t.Anomaly.TurnoutStdDevs = 1.5
	t.Anomaly.MismatchIncomeMin = 100000
	t.Anomaly.MismatchCollegeMin = 60
	t.Anomaly.MismatchLeanMax = -10

	t.Pattern.MinPrecincts = 3
	t.Pattern.DeltaPoints = 10

	t.Recommendation.GOTVLeanMin = 10
	t.Recommendation.PersuasionSwingMin = 50
	t.Recommendation.NeutralLeanAbsMax = 10

	return t
}

// LoadFromEnv returns the default table, overridden by the YAML file named in
// THRESHOLDS_PATH when that variable is set. A missing or unreadable file is
// fatal only if explicitly configured; no path means defaults.
func LoadFromEnv() (Thresholds, error) {
	t := DefaultThresholds()

	path := os.Getenv("THRESHOLDS_PATH")
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, err
	}
	return t, nil
}
