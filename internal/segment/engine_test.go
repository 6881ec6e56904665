package segment_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
	"github.com/PrecinctPulse/PP-Backend/internal/segment"
)

// spec parses a JSON filter literal into a Specification.
func spec(t *testing.T, raw string) segment.Specification {
	t.Helper()
	var s segment.Specification
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("bad filter literal: %v", err)
	}
	return s
}

func matchedIDs(result segment.QueryResult) []string {
	ids := make([]string, 0, len(result.MatchingPrecincts))
	for _, m := range result.MatchingPrecincts {
		ids = append(ids, m.PrecinctID)
	}
	return ids
}

// fixture returns a 5-precinct mixed set: one young/urban/college precinct,
// one senior/rural, and three middle-aged suburban precincts with varied
// targeting scores.
func fixture() []precinct.Record {
	return []precinct.Record{
		{
			ID: "P-001", Name: "Campus North", Jurisdiction: "Lansing",
			Demographics: precinct.Demographics{
				Population18Up:    precinct.Ptr(2400),
				MedianAge:         precinct.Ptr(28),
				MedianHHI:         precinct.Ptr(42000),
				CollegePct:        precinct.Ptr(70),
				PopulationDensity: precinct.Ptr(5000),
			},
			Electoral: precinct.Electoral{
				PartisanLean:   precinct.Ptr(24),
				SwingPotential: precinct.Ptr(35),
				AvgTurnout:     precinct.Ptr(38),
			},
			Targeting: precinct.Targeting{
				GOTVPriority:          precinct.Ptr(85),
				PersuasionOpportunity: precinct.Ptr(20),
				CombinedScore:         precinct.Ptr(62),
				Strategy:              "gotv",
			},
		},
		{
			ID: "P-002", Name: "Lakeview", Jurisdiction: "Meridian",
			Demographics: precinct.Demographics{
				Population18Up:    precinct.Ptr(1800),
				MedianAge:         precinct.Ptr(61),
				MedianHHI:         precinct.Ptr(78000),
				CollegePct:        precinct.Ptr(30),
				PopulationDensity: precinct.Ptr(400),
			},
			Electoral: precinct.Electoral{
				PartisanLean:   precinct.Ptr(-12),
				SwingPotential: precinct.Ptr(20),
				AvgTurnout:     precinct.Ptr(71),
			},
			Targeting: precinct.Targeting{
				GOTVPriority:          precinct.Ptr(30),
				PersuasionOpportunity: precinct.Ptr(45),
				CombinedScore:         precinct.Ptr(38),
				Strategy:              "none",
			},
		},
		{
			ID: "P-003", Name: "Midtown East", Jurisdiction: "Lansing",
			Demographics: precinct.Demographics{
				Population18Up:    precinct.Ptr(2100),
				MedianAge:         precinct.Ptr(41),
				MedianHHI:         precinct.Ptr(61000),
				CollegePct:        precinct.Ptr(44),
				PopulationDensity: precinct.Ptr(2200),
			},
			Electoral: precinct.Electoral{
				PartisanLean:   precinct.Ptr(8),
				SwingPotential: precinct.Ptr(66),
				AvgTurnout:     precinct.Ptr(55),
			},
			Targeting: precinct.Targeting{
				GOTVPriority:          precinct.Ptr(58),
				PersuasionOpportunity: precinct.Ptr(72),
				CombinedScore:         precinct.Ptr(65),
				Strategy:              "persuasion",
			},
		},
		{
			ID: "P-004", Name: "Riverbend", Jurisdiction: "Delta",
			Demographics: precinct.Demographics{
				Population18Up:    precinct.Ptr(1500),
				MedianAge:         precinct.Ptr(47),
				MedianHHI:         precinct.Ptr(88000),
				CollegePct:        precinct.Ptr(51),
				PopulationDensity: precinct.Ptr(1400),
			},
			Electoral: precinct.Electoral{
				PartisanLean:   precinct.Ptr(2),
				SwingPotential: precinct.Ptr(74),
				AvgTurnout:     precinct.Ptr(62),
			},
			Targeting: precinct.Targeting{
				GOTVPriority:          precinct.Ptr(44),
				PersuasionOpportunity: precinct.Ptr(81),
				CombinedScore:         precinct.Ptr(60),
				Strategy:              "battleground",
			},
		},
		{
			// Sparse record: no demographics beyond population, no targeting.
			ID: "P-005", Name: "Pine Hollow", Jurisdiction: "Delta",
			Demographics: precinct.Demographics{
				Population18Up: precinct.Ptr(900),
			},
			Electoral: precinct.Electoral{
				AvgTurnout: precinct.Ptr(49),
			},
		},
	}
}

func newEngine(records []precinct.Record) *segment.Engine {
	return segment.NewEngine(records, classify.DefaultThresholds())
}

// TestQuery_EmptyFilterMatchesAll verifies that an empty specification imposes
// no constraint.
func TestQuery_EmptyFilterMatchesAll(t *testing.T) {
	engine := newEngine(fixture())
	result := engine.Query(segment.Specification{})

	if result.PrecinctCount != 5 {
		t.Errorf("expected 5 matches, got %d", result.PrecinctCount)
	}
	if result.PercentageOfTotal != 100 {
		t.Errorf("expected 100%%, got %.1f", result.PercentageOfTotal)
	}
}

// TestQuery_EmptyCollection verifies the zero-precinct edge case returns a
// valid zero result and never NaN aggregates.
func TestQuery_EmptyCollection(t *testing.T) {
	engine := newEngine(nil)
	result := engine.Query(segment.Specification{})

	if result.PrecinctCount != 0 {
		t.Errorf("expected 0 matches, got %d", result.PrecinctCount)
	}
	if result.MatchingPrecincts == nil || len(result.MatchingPrecincts) != 0 {
		t.Error("expected empty, non-nil matchingPrecincts")
	}
	if result.PercentageOfTotal != 0 {
		t.Errorf("expected 0%%, got %f", result.PercentageOfTotal)
	}
	if result.AvgGOTV != 0 || result.AvgPartisanLean != 0 {
		t.Error("aggregates over zero matches must be 0")
	}
}

// TestQuery_AgeCohortYoung is the literal single-young-precinct scenario:
// exactly one of the five fixtures classifies as young.
func TestQuery_AgeCohortYoung(t *testing.T) {
	engine := newEngine(fixture())
	result := engine.Query(spec(t, `{"demographics":{"ageCohort":"young"}}`))

	if result.PrecinctCount != 1 {
		t.Fatalf("expected exactly 1 match, got %d", result.PrecinctCount)
	}
	if result.MatchingPrecincts[0].PrecinctID != "P-001" {
		t.Errorf("expected P-001, got %s", result.MatchingPrecincts[0].PrecinctID)
	}
}

// TestQuery_FormatEquivalence verifies the component range pair and the preset
// object select identical precinct sets.
func TestQuery_FormatEquivalence(t *testing.T) {
	engine := newEngine(fixture())

	component := engine.Query(spec(t, `{"demographics":{"ageRange":[50,70]}}`))
	preset := engine.Query(spec(t, `{"demographics":{"age_range":{"min_median_age":50,"max_median_age":70}}}`))

	if !reflect.DeepEqual(matchedIDs(component), matchedIDs(preset)) {
		t.Errorf("format mismatch: component=%v preset=%v", matchedIDs(component), matchedIDs(preset))
	}
	if component.PrecinctCount != 1 || matchedIDs(component)[0] != "P-002" {
		t.Errorf("expected only P-002 in [50,70], got %v", matchedIDs(component))
	}
}

// TestQuery_BothFormatsAND verifies that when both formats appear for the same
// attribute, both ranges apply.
func TestQuery_BothFormatsAND(t *testing.T) {
	engine := newEngine(fixture())

	// Component allows 25-50 (P-001, P-003, P-004); preset narrows to 40-50.
	result := engine.Query(spec(t, `{"demographics":{
		"ageRange":[25,50],
		"age_range":{"min_median_age":40,"max_median_age":50}
	}}`))

	want := []string{"P-003", "P-004"}
	got := matchedIDs(result)
	if len(got) != 2 || !((got[0] == want[0] && got[1] == want[1]) || (got[0] == want[1] && got[1] == want[0])) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestQuery_ANDSemantics verifies that adding a predicate can only shrink the
// match set.
func TestQuery_ANDSemantics(t *testing.T) {
	engine := newEngine(fixture())

	broad := engine.Query(spec(t, `{"targeting":{"swingRange":[60,100]}}`))
	narrow := engine.Query(spec(t, `{"targeting":{"swingRange":[60,100],"persuasionRange":[80,100]}}`))

	if narrow.PrecinctCount > broad.PrecinctCount {
		t.Fatalf("adding a predicate grew the match set: %d > %d", narrow.PrecinctCount, broad.PrecinctCount)
	}
	broadSet := make(map[string]struct{})
	for _, id := range matchedIDs(broad) {
		broadSet[id] = struct{}{}
	}
	for _, id := range matchedIDs(narrow) {
		if _, ok := broadSet[id]; !ok {
			t.Errorf("narrow match %s not present in broad result", id)
		}
	}
}

// TestQuery_MissingFieldExcludes verifies a precinct with no data for a
// filtered field is excluded rather than matched at a default.
func TestQuery_MissingFieldExcludes(t *testing.T) {
	engine := newEngine(fixture())

	// P-005 has no gotvPriority; a gotv range covering "zero" must not pick it up.
	result := engine.Query(spec(t, `{"targeting":{"gotvRange":[0,100]}}`))

	for _, id := range matchedIDs(result) {
		if id == "P-005" {
			t.Error("P-005 has no gotvPriority and must not match a gotv filter")
		}
	}
	if result.PrecinctCount != 4 {
		t.Errorf("expected 4 matches, got %d", result.PrecinctCount)
	}
}

// TestQuery_ScoreMonotonicity verifies that narrowing a passed range toward a
// precinct's actual value never lowers its score.
func TestQuery_ScoreMonotonicity(t *testing.T) {
	engine := newEngine(fixture())

	scoreOf := func(result segment.QueryResult, id string) (float64, bool) {
		for _, m := range result.MatchingPrecincts {
			if m.PrecinctID == id {
				return m.MatchScore, true
			}
		}
		return 0, false
	}

	// P-003 has gotvPriority 58. Tighten around it step by step.
	ranges := []string{
		`{"targeting":{"gotvRange":[0,100]}}`,
		`{"targeting":{"gotvRange":[40,80]}}`,
		`{"targeting":{"gotvRange":[50,70]}}`,
		`{"targeting":{"gotvRange":[55,61]}}`,
	}

	last := -1.0
	for _, raw := range ranges {
		result := engine.Query(spec(t, raw))
		score, ok := scoreOf(result, "P-003")
		if !ok {
			t.Fatalf("P-003 fell out of range %s", raw)
		}
		if score < last {
			t.Errorf("score decreased from %.2f to %.2f when tightening to %s", last, score, raw)
		}
		last = score
	}
}

// TestQuery_ScoreReflectsRangeFit verifies matches near the center of a
// requested range outscore matches hugging its edges, so ranking carries
// information even without targeting filters.
func TestQuery_ScoreReflectsRangeFit(t *testing.T) {
	engine := newEngine(fixture())
	result := engine.Query(spec(t, `{"demographics":{"ageRange":[25,50]}}`))

	if result.PrecinctCount != 3 {
		t.Fatalf("expected 3 matches, got %d", result.PrecinctCount)
	}
	scores := make(map[string]float64)
	for _, m := range result.MatchingPrecincts {
		scores[m.PrecinctID] = m.MatchScore
	}

	// P-003 (age 41) sits nearest the center of [25,50]; P-001 (28) and
	// P-004 (47) are near the edges.
	if scores["P-003"] <= scores["P-001"] || scores["P-003"] <= scores["P-004"] {
		t.Errorf("center match should outscore edge matches: %v", scores)
	}
	if result.MatchingPrecincts[0].PrecinctID != "P-003" {
		t.Errorf("expected P-003 ranked first, got %s", result.MatchingPrecincts[0].PrecinctID)
	}
}

// TestQuery_Determinism verifies repeated queries return identical rankings.
func TestQuery_Determinism(t *testing.T) {
	engine := newEngine(fixture())
	filter := spec(t, `{"targeting":{"swingRange":[0,100]}}`)

	first := engine.Query(filter)
	for i := 0; i < 3; i++ {
		again := engine.Query(filter)
		if !reflect.DeepEqual(matchedIDs(first), matchedIDs(again)) {
			t.Fatalf("run %d diverged: %v vs %v", i, matchedIDs(first), matchedIDs(again))
		}
	}
}

// TestQuery_OrderingDescendingWithTieBreak verifies score ordering and the id
// tie-break.
func TestQuery_OrderingDescendingWithTieBreak(t *testing.T) {
	engine := newEngine(fixture())
	result := engine.Query(segment.Specification{})

	for i := 1; i < len(result.MatchingPrecincts); i++ {
		prev, cur := result.MatchingPrecincts[i-1], result.MatchingPrecincts[i]
		if prev.MatchScore < cur.MatchScore {
			t.Fatalf("scores out of order at %d: %.2f < %.2f", i, prev.MatchScore, cur.MatchScore)
		}
		if prev.MatchScore == cur.MatchScore && prev.PrecinctID > cur.PrecinctID {
			t.Fatalf("tie not broken by id at %d: %s > %s", i, prev.PrecinctID, cur.PrecinctID)
		}
	}
}

// TestQuery_Aggregates verifies the percentage identity and mean computation
// over matching precincts only.
func TestQuery_Aggregates(t *testing.T) {
	engine := newEngine(fixture())
	result := engine.Query(spec(t, `{"demographics":{"ageRange":[35,50]}}`)) // P-003, P-004

	if result.PrecinctCount != 2 {
		t.Fatalf("expected 2 matches, got %d", result.PrecinctCount)
	}
	wantPct := float64(result.PrecinctCount) / float64(result.TotalPrecincts) * 100
	if result.PercentageOfTotal != wantPct {
		t.Errorf("percentage identity broken: %f != %f", result.PercentageOfTotal, wantPct)
	}
	if result.EstimatedVoters != 2100+1500 {
		t.Errorf("estimated voters: expected 3600, got %.0f", result.EstimatedVoters)
	}
	if got, want := result.AvgGOTV, (58.0+44.0)/2; got != want {
		t.Errorf("avg gotv: expected %.1f, got %.1f", want, got)
	}
	if got, want := result.AvgPartisanLean, (8.0+2.0)/2; got != want {
		t.Errorf("avg lean: expected %.1f, got %.1f", want, got)
	}
}

// TestQuery_MalformedFilterIgnored verifies unknown keys and wrongly typed
// values are skipped without failing the query.
func TestQuery_MalformedFilterIgnored(t *testing.T) {
	engine := newEngine(fixture())

	result := engine.Query(spec(t, `{"demographics":{
		"noSuchFilter":[1,2],
		"ageRange":"not-a-range",
		"incomeRange":[0,90000]
	}}`))

	// Only the valid income filter applies: P-001, P-002, P-003, P-004.
	if result.PrecinctCount != 4 {
		t.Errorf("expected 4 matches with only the valid filter applied, got %d", result.PrecinctCount)
	}
}

// TestQuery_CompetitivenessAndStrategy verifies stored categorical fields
// filter directly.
func TestQuery_CompetitivenessAndStrategy(t *testing.T) {
	records := fixture()
	records[0].Electoral.Competitiveness = "lean_d"
	records[1].Electoral.Competitiveness = "safe_r"
	engine := newEngine(records)

	byComp := engine.Query(spec(t, `{"political":{"competitiveness":["lean_d"]}}`))
	if ids := matchedIDs(byComp); len(ids) != 1 || ids[0] != "P-001" {
		t.Errorf("competitiveness filter: expected [P-001], got %v", ids)
	}

	byStrategy := engine.Query(spec(t, `{"targeting":{"strategy":["gotv","persuasion"]}}`))
	if byStrategy.PrecinctCount != 2 {
		t.Errorf("strategy filter: expected 2 matches, got %d", byStrategy.PrecinctCount)
	}
}

// TestQuery_EngagementFlag verifies boolean engagement filters and that
// precincts without engagement data never match them.
func TestQuery_EngagementFlag(t *testing.T) {
	records := fixture()
	records[2].Engagement = &precinct.Engagement{DonorPct: precinct.Ptr(14)}
	engine := newEngine(records)

	result := engine.Query(spec(t, `{"engagement":{"highDonorConcentration":true}}`))
	if ids := matchedIDs(result); len(ids) != 1 || ids[0] != "P-003" {
		t.Errorf("expected [P-003], got %v", ids)
	}
}
