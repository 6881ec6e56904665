package segment

import (
	"math"
	"sort"
	"time"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

// Scoring weights. A precinct that passes every predicate starts from
// baseScore; each range filter then adds up to rangeWeight points scaled by
// how well the precinct's value fits the request: points grow as the range
// tightens around the value and as the value sits nearer the range's center,
// normalized by the field's typical span. Each categorical filter adds
// catWeight flat, each engagement flag flagWeight. When any targeting filter
// is in play the precinct's own targeting scores are added back in so
// high-priority precincts rank first. The fit only grows as a passed range
// narrows, which keeps the score monotonic under range tightening.
const (
	baseScore   = 50.0
	rangeWeight = 10.0
	catWeight   = 5.0
	flagWeight  = 5.0

	gotvScoreDiv       = 10.0
	persuasionScoreDiv = 10.0
	combinedScoreDiv   = 20.0
)

type Engine struct {
	precincts []precinct.Record
	th        classify.Thresholds
}

// NewEngine holds the collection by reference; it never copies or mutates it.
func NewEngine(precincts []precinct.Record, th classify.Thresholds) *Engine {
	return &Engine{precincts: precincts, th: th}
}

type MatchResult struct {
	PrecinctID            string  `json:"precinctId"`
	PrecinctName          string  `json:"precinctName"`
	Jurisdiction          string  `json:"jurisdiction"`
	RegisteredVoters      float64 `json:"registeredVoters"`
	GOTVPriority          float64 `json:"gotvPriority"`
	PersuasionOpportunity float64 `json:"persuasionOpportunity"`
	SwingPotential        float64 `json:"swingPotential"`
	TargetingStrategy     string  `json:"targetingStrategy"`
	PartisanLean          float64 `json:"partisanLean"`
	MatchScore            float64 `json:"matchScore"`
}

type QueryResult struct {
	MatchingPrecincts []MatchResult `json:"matchingPrecincts"`
	PrecinctCount     int           `json:"precinctCount"`
	TotalPrecincts    int           `json:"totalPrecincts"`
	PercentageOfTotal float64       `json:"percentageOfTotal"`
	EstimatedVoters   float64       `json:"estimatedVoters"`
	AvgGOTV           float64       `json:"avgGOTV"`
	AvgPersuasion     float64       `json:"avgPersuasion"`
	AvgSwingPotential float64       `json:"avgSwingPotential"`
	AvgPartisanLean   float64       `json:"avgPartisanLean"`
	CalculatedAt      time.Time     `json:"calculatedAt"`
}

// Query evaluates every populated predicate against each precinct (logical
// AND), scores the survivors, and returns them ranked with aggregates. An
// empty collection or an all-unknown filter yields a valid zero/all result.
func (e *Engine) Query(spec Specification) QueryResult {
	n := normalize(spec)

	var matches []MatchResult
	var matched []precinct.Record
	for _, rec := range e.precincts {
		if !e.passes(n, rec) {
			continue
		}
		matches = append(matches, e.buildMatch(n, rec))
		matched = append(matched, rec)
	}

	// Descending by score; ties broken by precinct id for reproducibility.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].PrecinctID < matches[j].PrecinctID
	})

	result := QueryResult{
		MatchingPrecincts: matches,
		PrecinctCount:     len(matches),
		TotalPrecincts:    len(e.precincts),
		CalculatedAt:      time.Now(),
	}
	if result.MatchingPrecincts == nil {
		result.MatchingPrecincts = []MatchResult{}
	}
	if result.TotalPrecincts > 0 {
		result.PercentageOfTotal = float64(result.PrecinctCount) / float64(result.TotalPrecincts) * 100
	}

	e.aggregate(&result, matched)
	return result
}

func (e *Engine) passes(n normalized, rec precinct.Record) bool {
	for _, rf := range n.ranges {
		v, ok := fieldValue(rf.field, rec)
		if !ok {
			// A precinct cannot match a filter it has no data for.
			return false
		}
		if v < rf.min || v > rf.max {
			return false
		}
	}

	for _, cf := range n.cats {
		cat, ok := categoryOf(cf.kind, e.th, rec)
		if !ok {
			return false
		}
		if _, member := cf.allowed[cat]; !member {
			return false
		}
	}

	for _, ff := range n.flags {
		var got bool
		switch ff.kind {
		case flagHighDonor:
			got = classify.HighDonorConcentration(e.th, rec)
		case flagHighMedia:
			got = classify.HighMediaEngagement(e.th, rec)
		case flagHighSocial:
			got = classify.HighSocialEngagement(e.th, rec)
		}
		if got != ff.want {
			return false
		}
	}

	return true
}

func (e *Engine) buildMatch(n normalized, rec precinct.Record) MatchResult {
	score := baseScore

	for _, rf := range n.ranges {
		span := fieldSpan[rf.field]
		width := span
		if rf.bounded {
			// Twice the distance from the value to the farther range edge: a
			// value at the center counts the bare width, off-center values
			// count more. This never grows as a passing range tightens.
			if v, ok := fieldValue(rf.field, rec); ok {
				far := rf.max - v
				if d := v - rf.min; d > far {
					far = d
				}
				width = 2 * far
			} else {
				width = rf.max - rf.min
			}
			if width < 0 {
				width = 0
			}
		}
		// fit in (0, 1]: a zero-width range pins the value exactly.
		fit := span / (span + width)
		score += rangeWeight * fit
	}

	score += catWeight * float64(len(n.cats))
	score += flagWeight * float64(len(n.flags))

	if n.targetingUsed {
		if v, ok := precinct.Num(rec.Targeting.GOTVPriority); ok {
			score += v / gotvScoreDiv
		}
		if v, ok := precinct.Num(rec.Targeting.PersuasionOpportunity); ok {
			score += v / persuasionScoreDiv
		}
		if v, ok := precinct.Num(rec.Targeting.CombinedScore); ok {
			score += v / combinedScoreDiv
		}
	}

	return MatchResult{
		PrecinctID:            rec.ID,
		PrecinctName:          rec.Name,
		Jurisdiction:          rec.Jurisdiction,
		RegisteredVoters:      numOrZero(rec.Demographics.Population18Up),
		GOTVPriority:          numOrZero(rec.Targeting.GOTVPriority),
		PersuasionOpportunity: numOrZero(rec.Targeting.PersuasionOpportunity),
		SwingPotential:        numOrZero(rec.Electoral.SwingPotential),
		TargetingStrategy:     rec.Targeting.Strategy,
		PartisanLean:          numOrZero(rec.Electoral.PartisanLean),
		MatchScore:            math.Round(score*100) / 100,
	}
}

// aggregate computes means over the matching precincts only; fields missing
// on a given precinct stay out of that metric's denominator.
func (e *Engine) aggregate(result *QueryResult, matched []precinct.Record) {
	if len(matched) == 0 {
		return
	}

	var voters float64
	sums := make(map[string]float64)
	counts := make(map[string]int)

	add := func(key string, p *float64) {
		if v, ok := precinct.Num(p); ok {
			sums[key] += v
			counts[key]++
		}
	}

	for _, rec := range matched {
		if v, ok := precinct.Num(rec.Demographics.Population18Up); ok {
			voters += v
		}
		add("gotv", rec.Targeting.GOTVPriority)
		add("persuasion", rec.Targeting.PersuasionOpportunity)
		add("swing", rec.Electoral.SwingPotential)
		add("lean", rec.Electoral.PartisanLean)
	}

	mean := func(key string) float64 {
		if counts[key] == 0 {
			return 0
		}
		return sums[key] / float64(counts[key])
	}

	result.EstimatedVoters = voters
	result.AvgGOTV = mean("gotv")
	result.AvgPersuasion = mean("persuasion")
	result.AvgSwingPotential = mean("swing")
	result.AvgPartisanLean = mean("lean")
}

func numOrZero(p *float64) float64 {
	v, ok := precinct.Num(p)
	if !ok {
		return 0
	}
	return v
}
