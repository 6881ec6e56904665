package insights_test

import (
	"testing"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/insights"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

// countingBuilder implements mapbridge.CommandBuilder and counts calls, which
// exposes whether the detector battery actually ran.
type countingBuilder struct {
	calls int
}

func (b *countingBuilder) Highlight(precinctIDs []string, style string) map[string]any {
	b.calls++
	return map[string]any{"type": "highlight", "precinctIds": precinctIDs, "style": style}
}

// gotvFixture builds the canonical opportunity scenario: five favorable
// precincts with GOTV priority 75-79 and ~40% turnout, plus five baseline
// precincts at priority 55.
func gotvFixture() []precinct.Record {
	var records []precinct.Record
	for i := 0; i < 5; i++ {
		records = append(records, precinct.Record{
			ID:           "T-10" + string(rune('0'+i)),
			Name:         "Target",
			Jurisdiction: "Lansing",
			Demographics: precinct.Demographics{Population18Up: precinct.Ptr(2000)},
			Electoral: precinct.Electoral{
				Competitiveness: "lean_d",
				AvgTurnout:      precinct.Ptr(40 + float64(i)*0.2),
				PartisanLean:    precinct.Ptr(15),
			},
			Targeting: precinct.Targeting{GOTVPriority: precinct.Ptr(75 + float64(i))},
		})
	}
	for i := 0; i < 5; i++ {
		records = append(records, precinct.Record{
			ID:           "B-20" + string(rune('0'+i)),
			Name:         "Baseline",
			Jurisdiction: "Delta",
			Demographics: precinct.Demographics{Population18Up: precinct.Ptr(1500)},
			Electoral: precinct.Electoral{
				Competitiveness: "likely_r",
				AvgTurnout:      precinct.Ptr(60),
				PartisanLean:    precinct.Ptr(-5),
			},
			Targeting: precinct.Targeting{GOTVPriority: precinct.Ptr(55)},
		})
	}
	return records
}

func newEngine() (*insights.Engine, *countingBuilder) {
	builder := &countingBuilder{}
	return insights.NewEngine(classify.DefaultThresholds(), builder), builder
}

// TestGenerate_GOTVOpportunityScenario checks the literal opportunity
// scenario: a high-priority opportunity insight over at least 3 precincts
// with an "Avg. Turnout" evidence entry.
func TestGenerate_GOTVOpportunityScenario(t *testing.T) {
	engine, _ := newEngine()
	result := engine.Generate(gotvFixture(), insights.Config{})

	var opp *insights.Insight
	for i := range result {
		if result[i].Type == insights.TypeOpportunity {
			opp = &result[i]
			break
		}
	}
	if opp == nil {
		t.Fatal("expected an opportunity insight")
	}
	if opp.Priority != insights.PriorityHigh {
		t.Errorf("expected high priority, got %s", opp.Priority)
	}
	if len(opp.AffectedPrecincts) < 3 {
		t.Errorf("expected >= 3 affected precincts, got %d", len(opp.AffectedPrecincts))
	}

	var hasTurnout bool
	for _, ev := range opp.Evidence {
		if ev.Metric == "Avg. Turnout" {
			hasTurnout = true
		}
	}
	if !hasTurnout {
		t.Error("expected an 'Avg. Turnout' evidence entry")
	}
	if opp.MapCommand == nil {
		t.Error("expected a map highlight command")
	}
}

// TestGenerate_EmptyAndSingle verifies the degenerate inputs never panic and
// return well-formed results.
func TestGenerate_EmptyAndSingle(t *testing.T) {
	engine, _ := newEngine()

	if got := engine.Generate(nil, insights.Config{}); got == nil || len(got) != 0 {
		t.Errorf("empty input: expected empty non-nil slice, got %v", got)
	}

	single := []precinct.Record{{
		ID: "S-1", Jurisdiction: "Delta",
		Electoral: precinct.Electoral{PartisanLean: precinct.Ptr(3), AvgTurnout: precinct.Ptr(50)},
	}}
	result := engine.Generate(single, insights.Config{})
	for _, ins := range result {
		if ins.Type == insights.TypeOpportunity || ins.Type == insights.TypeRisk {
			t.Errorf("cluster detectors must stay silent on a single precinct, got %s", ins.Type)
		}
	}
}

// TestGenerate_PriorityOrdering verifies the critical>high>medium>low sort.
func TestGenerate_PriorityOrdering(t *testing.T) {
	rank := map[string]int{
		insights.PriorityCritical: 0,
		insights.PriorityHigh:     1,
		insights.PriorityMedium:   2,
		insights.PriorityLow:      3,
	}

	engine, _ := newEngine()
	result := engine.Generate(gotvFixture(), insights.Config{})

	for i := 1; i < len(result); i++ {
		if rank[result[i-1].Priority] > rank[result[i].Priority] {
			t.Fatalf("priorities out of order at %d: %s before %s", i, result[i-1].Priority, result[i].Priority)
		}
	}
}

// TestGenerate_MaxInsightsCap verifies the limit, including an explicit zero.
func TestGenerate_MaxInsightsCap(t *testing.T) {
	engine, _ := newEngine()

	for _, k := range []int{0, 1, 2, 100} {
		limit := k
		result := engine.Generate(gotvFixture(), insights.Config{MaxInsights: &limit})
		if len(result) > k {
			t.Errorf("maxInsights=%d returned %d insights", k, len(result))
		}
	}
}

// TestGenerate_IncludeTypes verifies the type filter is closed over its set.
func TestGenerate_IncludeTypes(t *testing.T) {
	engine, _ := newEngine()
	result := engine.Generate(gotvFixture(), insights.Config{IncludeTypes: []string{insights.TypeOpportunity}})

	if len(result) == 0 {
		t.Fatal("expected at least one opportunity insight")
	}
	for _, ins := range result {
		if ins.Type != insights.TypeOpportunity {
			t.Errorf("type filter leaked a %s insight", ins.Type)
		}
	}
}

// TestGenerate_MinPriorityLevel verifies priority filtering keeps only
// insights at or above the requested level.
func TestGenerate_MinPriorityLevel(t *testing.T) {
	engine, _ := newEngine()
	result := engine.Generate(gotvFixture(), insights.Config{MinPriorityLevel: insights.PriorityHigh})

	if len(result) == 0 {
		t.Fatal("expected at least the high-priority opportunity")
	}
	for _, ins := range result {
		if ins.Priority != insights.PriorityCritical && ins.Priority != insights.PriorityHigh {
			t.Errorf("minPriorityLevel=high leaked a %s insight", ins.Priority)
		}
	}
}

// TestGenerate_Memoization verifies detectors do not re-run for an identical
// input but do re-run when the input changes.
func TestGenerate_Memoization(t *testing.T) {
	engine, builder := newEngine()
	records := gotvFixture()

	engine.Generate(records, insights.Config{})
	callsAfterFirst := builder.calls
	if callsAfterFirst == 0 {
		t.Fatal("expected highlight commands from the first run")
	}

	engine.Generate(records, insights.Config{})
	if builder.calls != callsAfterFirst {
		t.Errorf("identical input re-ran detectors: %d -> %d calls", callsAfterFirst, builder.calls)
	}

	// Content change on one precinct must invalidate the cache.
	records[0].Targeting.GOTVPriority = precinct.Ptr(99)
	engine.Generate(records, insights.Config{})
	if builder.calls == callsAfterFirst {
		t.Error("changed input did not re-run detectors")
	}
}

// TestGenerate_PopulationChangeRefreshesEvidence verifies a change in a field
// only the evidence reads still invalidates the memoized result.
func TestGenerate_PopulationChangeRefreshesEvidence(t *testing.T) {
	engine, _ := newEngine()
	records := gotvFixture()

	voterEvidence := func(list []insights.Insight) string {
		for _, ins := range list {
			if ins.Type != insights.TypeOpportunity {
				continue
			}
			for _, ev := range ins.Evidence {
				if ev.Metric == "Eligible Voters" {
					return ev.Value
				}
			}
		}
		return ""
	}

	before := voterEvidence(engine.Generate(records, insights.Config{}))
	if before != "10,000" {
		t.Fatalf("expected 10,000 eligible voters, got %q", before)
	}

	// Double the population of the flagged cluster; the voter count must follow.
	for i := range records[:5] {
		records[i].Demographics.Population18Up = precinct.Ptr(4000)
	}
	after := voterEvidence(engine.Generate(records, insights.Config{}))
	if after != "20,000" {
		t.Errorf("population change not reflected in evidence: got %q, want %q", after, "20,000")
	}
}

// TestDismiss_HidesAcrossConfigs verifies a dismissed id never comes back
// before ClearCache, regardless of config.
func TestDismiss_HidesAcrossConfigs(t *testing.T) {
	engine, _ := newEngine()
	records := gotvFixture()

	first := engine.Generate(records, insights.Config{})
	if len(first) == 0 {
		t.Fatal("expected insights")
	}
	victim := first[0].ID

	engine.Dismiss(victim)

	configs := []insights.Config{
		{},
		{MinPriorityLevel: insights.PriorityLow},
		{IncludeTypes: []string{first[0].Type}},
	}
	for _, cfg := range configs {
		for _, ins := range engine.Generate(records, cfg) {
			if ins.ID == victim {
				t.Fatalf("dismissed insight %s returned under config %+v", victim, cfg)
			}
		}
	}
}

// TestClearCache_RestoresDismissed verifies ClearCache resets the dismissed
// set so still-qualifying findings reappear.
func TestClearCache_RestoresDismissed(t *testing.T) {
	engine, _ := newEngine()
	records := gotvFixture()

	first := engine.Generate(records, insights.Config{})
	victim := first[0].ID
	engine.Dismiss(victim)
	engine.ClearCache()

	var found bool
	for _, ins := range engine.Generate(records, insights.Config{}) {
		if ins.ID == victim {
			found = true
		}
	}
	if !found {
		t.Error("dismissed insight should reappear after ClearCache")
	}
}

// TestGenerate_StableIDs verifies the same finding keeps its id across
// regenerations with a cleared cache.
func TestGenerate_StableIDs(t *testing.T) {
	engine, _ := newEngine()
	records := gotvFixture()

	first := engine.Generate(records, insights.Config{})
	engine.ClearCache()
	second := engine.Generate(records, insights.Config{})

	if len(first) != len(second) {
		t.Fatalf("regeneration changed insight count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("insight %d changed id across regeneration: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

// TestTopInsight verifies the top pick and the nil case.
func TestTopInsight(t *testing.T) {
	engine, _ := newEngine()

	top := engine.TopInsight(gotvFixture())
	if top == nil {
		t.Fatal("expected a top insight")
	}
	if top.Priority != insights.PriorityHigh {
		t.Errorf("expected the high-priority opportunity on top, got %s/%s", top.Priority, top.Type)
	}

	if got := engine.TopInsight(nil); got != nil {
		t.Errorf("empty input: expected nil top insight, got %+v", got)
	}
}
