package insights

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/mapbridge"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Detectors are independent pure passes over the precinct collection. Each
// returns zero or more insights; none reads another's output. The orchestrator
// in engine.go merges them in this order.
var detectors = []func(detectorContext) []Insight{
	detectGOTVOpportunity,
	detectVulnerablePrecincts,
	detectAnomalies,
	detectJurisdictionPatterns,
	detectStrategicRecommendation,
}

type detectorContext struct {
	precincts []precinct.Record
	th        classify.Thresholds
	maps      mapbridge.CommandBuilder
	now       time.Time
}

// num formats counts with thousands separators for evidence/description text.
var num = message.NewPrinter(language.AmericanEnglish)

// stableID derives an insight ID from the finding itself (detector tag plus
// the sorted affected precinct set) so the same finding keeps its ID across
// regenerations and dismissals stick.
func stableID(tag string, affected []string) string {
	ids := make([]string, len(affected))
	copy(ids, affected)
	sort.Strings(ids)

	h := sha1.New()
	h.Write([]byte(tag))
	for _, id := range ids {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return tag + "-" + hex.EncodeToString(h.Sum(nil))[:12]
}

func (c detectorContext) highlight(ids []string, style string) map[string]any {
	if c.maps == nil {
		return nil
	}
	return c.maps.Highlight(ids, style)
}

// meanOf averages the present values produced by get; the bool reports whether
// any value contributed.
func meanOf(precincts []precinct.Record, get func(precinct.Record) (float64, bool)) (float64, bool) {
	var sum float64
	var n int
	for _, rec := range precincts {
		if v, ok := get(rec); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func stddevOf(precincts []precinct.Record, get func(precinct.Record) (float64, bool)) (mean, std float64, n int) {
	mean, ok := meanOf(precincts, get)
	if !ok {
		return 0, 0, 0
	}
	var sumSq float64
	for _, rec := range precincts {
		if v, ok := get(rec); ok {
			d := v - mean
			sumSq += d * d
			n++
		}
	}
	if n < 2 {
		return mean, 0, n
	}
	std = math.Sqrt(sumSq / float64(n))
	return mean, std, n
}

func turnoutOf(rec precinct.Record) (float64, bool) { return precinct.Num(rec.Electoral.AvgTurnout) }
func leanOf(rec precinct.Record) (float64, bool)    { return precinct.Num(rec.Electoral.PartisanLean) }
func swingOf(rec precinct.Record) (float64, bool)   { return precinct.Num(rec.Electoral.SwingPotential) }
func gotvOf(rec precinct.Record) (float64, bool)    { return precinct.Num(rec.Targeting.GOTVPriority) }
func persuasionOf(rec precinct.Record) (float64, bool) {
	return precinct.Num(rec.Targeting.PersuasionOpportunity)
}

// favorableLean reports whether a precinct leans toward the campaign's side:
// either a Dem-friendly competitiveness band or a positive partisan lean.
func favorableLean(rec precinct.Record) bool {
	switch rec.Electoral.Competitiveness {
	case "safe_d", "likely_d", "lean_d", "toss_up":
		return true
	}
	lean, ok := leanOf(rec)
	return ok && lean > 0
}

// detectGOTVOpportunity flags clusters of high-GOTV-priority precincts on
// favorable ground. Low historical turnout across the cluster is the whole
// point: these are supporters who stay home.
func detectGOTVOpportunity(c detectorContext) []Insight {
	var cluster []precinct.Record
	var ids []string
	for _, rec := range c.precincts {
		gotv, ok := gotvOf(rec)
		if !ok || gotv < c.th.GOTV.PriorityMin {
			continue
		}
		if !favorableLean(rec) {
			continue
		}
		cluster = append(cluster, rec)
		ids = append(ids, rec.ID)
	}

	if len(cluster) < c.th.GOTV.MinPrecincts {
		return nil
	}

	avgGOTV, _ := meanOf(cluster, gotvOf)
	avgTurnout, hasTurnout := meanOf(cluster, turnoutOf)
	var voters float64
	for _, rec := range cluster {
		if v, ok := precinct.Num(rec.Demographics.Population18Up); ok {
			voters += v
		}
	}

	turnoutValue := "n/a"
	turnoutComparison := ""
	if hasTurnout {
		turnoutValue = fmt.Sprintf("%.1f%%", avgTurnout)
		if avgTurnout < c.th.GOTV.TurnoutSoft {
			turnoutComparison = fmt.Sprintf("below the %.0f%% mobilization threshold", c.th.GOTV.TurnoutSoft)
		}
	}

	insight := Insight{
		ID:       stableID("opportunity-gotv", ids),
		Type:     TypeOpportunity,
		Priority: PriorityHigh,
		Title:    num.Sprintf("GOTV opportunity across %d precincts", len(cluster)),
		Description: num.Sprintf(
			"%d favorable precincts carry a GOTV priority of %.0f or higher with roughly %d eligible voters. Historical turnout is leaving support on the table.",
			len(cluster), c.th.GOTV.PriorityMin, int64(voters)),
		Evidence: []Evidence{
			{Metric: "Avg. GOTV Priority", Value: fmt.Sprintf("%.1f", avgGOTV)},
			{Metric: "Avg. Turnout", Value: turnoutValue, Comparison: turnoutComparison},
			{Metric: "Eligible Voters", Value: num.Sprintf("%d", int64(voters))},
		},
		AffectedPrecincts: ids,
		SuggestedActions: []string{
			"Schedule canvassing shifts in the flagged precincts",
			"Front-load vote-by-mail applications before the registration deadline",
			"Pair low-turnout precincts with nearby volunteer hubs",
		},
		MapCommand: c.highlight(ids, "gotv-opportunity"),
		Timestamp:  c.now,
	}

	return []Insight{insight}
}

// detectVulnerablePrecincts flags Democratic-leaning precincts with enough
// swing potential to flip.
func detectVulnerablePrecincts(c detectorContext) []Insight {
	var cluster []precinct.Record
	var ids []string
	for _, rec := range c.precincts {
		lean, okLean := leanOf(rec)
		swing, okSwing := swingOf(rec)
		if !okLean || !okSwing {
			continue
		}
		if lean > c.th.Risk.LeanMin && swing >= c.th.Risk.SwingMin {
			cluster = append(cluster, rec)
			ids = append(ids, rec.ID)
		}
	}

	if len(cluster) < c.th.Risk.MinPrecincts {
		return nil
	}

	priority := PriorityMedium
	if len(cluster) >= c.th.Risk.HighCount {
		priority = PriorityHigh
	}

	avgSwing, _ := meanOf(cluster, swingOf)
	avgLean, _ := meanOf(cluster, leanOf)

	insight := Insight{
		ID:       stableID("risk-vulnerable", ids),
		Type:     TypeRisk,
		Priority: priority,
		Title:    num.Sprintf("%d Dem-leaning precincts at risk of flipping", len(cluster)),
		Description: fmt.Sprintf(
			"Precincts leaning Democratic by %.1f points on average show an average swing potential of %.1f. Defensive persuasion is warranted before the opposition targets them.",
			avgLean, avgSwing),
		Evidence: []Evidence{
			{Metric: "Avg. Swing Potential", Value: fmt.Sprintf("%.1f", avgSwing), Comparison: fmt.Sprintf("threshold %.0f", c.th.Risk.SwingMin)},
			{Metric: "Avg. Partisan Lean", Value: fmt.Sprintf("D+%.1f", avgLean)},
		},
		AffectedPrecincts: ids,
		SuggestedActions: []string{
			"Run persuasion messaging before the opposition defines the race",
			"Track weekly ID numbers in the flagged precincts",
		},
		MapCommand: c.highlight(ids, "risk-vulnerable"),
		Timestamp:  c.now,
	}

	return []Insight{insight}
}

// detectAnomalies flags statistical turnout outliers and demographic/political
// mismatches. Mismatches are exploratory signals, so they stay low priority.
func detectAnomalies(c detectorContext) []Insight {
	var out []Insight

	mean, std, n := stddevOf(c.precincts, turnoutOf)
	if n >= 3 && std > 0 {
		cutoff := mean - c.th.Anomaly.TurnoutStdDevs*std
		var ids []string
		for _, rec := range c.precincts {
			if v, ok := turnoutOf(rec); ok && v < cutoff {
				ids = append(ids, rec.ID)
			}
		}
		if len(ids) > 0 {
			out = append(out, Insight{
				ID:       stableID("anomaly-turnout", ids),
				Type:     TypeAnomaly,
				Priority: PriorityMedium,
				Title:    num.Sprintf("Turnout anomaly in %d precincts", len(ids)),
				Description: fmt.Sprintf(
					"Turnout sits more than %.1f standard deviations below the county mean of %.1f%%. Data quality or access barriers are worth ruling out.",
					c.th.Anomaly.TurnoutStdDevs, mean),
				Evidence: []Evidence{
					{Metric: "County Avg. Turnout", Value: fmt.Sprintf("%.1f%%", mean)},
					{Metric: "Outlier Cutoff", Value: fmt.Sprintf("%.1f%%", cutoff), Significance: fmt.Sprintf("%.1f std. dev.", c.th.Anomaly.TurnoutStdDevs)},
				},
				AffectedPrecincts: ids,
				SuggestedActions: []string{
					"Verify the underlying turnout figures against the clerk's records",
					"Check for polling-place changes or consolidation in the flagged precincts",
				},
				MapCommand: c.highlight(ids, "anomaly-turnout"),
				Timestamp:  c.now,
			})
		}
	}

	// High-income, high-education precincts voting strongly Republican run
	// against the county's usual demographic pattern.
	var mismatchIDs []string
	for _, rec := range c.precincts {
		hhi, okH := precinct.Num(rec.Demographics.MedianHHI)
		college, okC := precinct.Num(rec.Demographics.CollegePct)
		lean, okL := leanOf(rec)
		if !okH || !okC || !okL {
			continue
		}
		if hhi >= c.th.Anomaly.MismatchIncomeMin && college >= c.th.Anomaly.MismatchCollegeMin && lean <= c.th.Anomaly.MismatchLeanMax {
			mismatchIDs = append(mismatchIDs, rec.ID)
		}
	}
	if len(mismatchIDs) > 0 {
		out = append(out, Insight{
			ID:       stableID("anomaly-mismatch", mismatchIDs),
			Type:     TypeAnomaly,
			Priority: PriorityLow,
			Title:    num.Sprintf("Demographic mismatch in %d precincts", len(mismatchIDs)),
			Description: fmt.Sprintf(
				"High-income (≥ $%s), college-heavy precincts showing a Republican lean of %.0f or stronger diverge from the expected demographic pattern.",
				num.Sprintf("%d", int64(c.th.Anomaly.MismatchIncomeMin)), -c.th.Anomaly.MismatchLeanMax),
			Evidence: []Evidence{
				{Metric: "Income Floor", Value: num.Sprintf("$%d", int64(c.th.Anomaly.MismatchIncomeMin))},
				{Metric: "College Floor", Value: fmt.Sprintf("%.0f%%", c.th.Anomaly.MismatchCollegeMin)},
			},
			AffectedPrecincts: mismatchIDs,
			SuggestedActions: []string{
				"Spot-check the registration data feeding these precincts",
			},
			MapCommand: c.highlight(mismatchIDs, "anomaly-mismatch"),
			Timestamp:  c.now,
		})
	}

	return out
}

// detectJurisdictionPatterns compares per-jurisdiction mean targeting scores
// against the overall mean and names the outlier jurisdictions.
func detectJurisdictionPatterns(c detectorContext) []Insight {
	groups := make(map[string][]precinct.Record)
	for _, rec := range c.precincts {
		if rec.Jurisdiction == "" {
			continue
		}
		groups[rec.Jurisdiction] = append(groups[rec.Jurisdiction], rec)
	}

	overallGOTV, hasGOTV := meanOf(c.precincts, gotvOf)
	overallPersuasion, hasPersuasion := meanOf(c.precincts, persuasionOf)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic emission order

	var out []Insight
	for _, name := range names {
		members := groups[name]
		if len(members) < c.th.Pattern.MinPrecincts {
			continue
		}

		ids := make([]string, 0, len(members))
		for _, rec := range members {
			ids = append(ids, rec.ID)
		}

		if hasGOTV {
			if jm, ok := meanOf(members, gotvOf); ok && math.Abs(jm-overallGOTV) >= c.th.Pattern.DeltaPoints {
				direction := "High"
				if jm < overallGOTV {
					direction = "Low"
				}
				out = append(out, Insight{
					ID:       stableID("pattern-gotv-"+name, ids),
					Type:     TypePattern,
					Priority: PriorityMedium,
					Title:    fmt.Sprintf("%s GOTV concentration in %s", direction, name),
					Description: fmt.Sprintf(
						"%s averages a GOTV priority of %.1f against a county mean of %.1f across %d precincts.",
						name, jm, overallGOTV, len(members)),
					Evidence: []Evidence{
						{Metric: "Jurisdiction Avg. GOTV", Value: fmt.Sprintf("%.1f", jm), Comparison: fmt.Sprintf("county mean %.1f", overallGOTV)},
					},
					AffectedPrecincts: ids,
					SuggestedActions:  []string{fmt.Sprintf("Rebalance field resources toward or away from %s accordingly", name)},
					MapCommand:        c.highlight(ids, "pattern-jurisdiction"),
					Timestamp:         c.now,
				})
			}
		}

		if hasPersuasion {
			if jm, ok := meanOf(members, persuasionOf); ok && math.Abs(jm-overallPersuasion) >= c.th.Pattern.DeltaPoints {
				direction := "High"
				if jm < overallPersuasion {
					direction = "Low"
				}
				out = append(out, Insight{
					ID:       stableID("pattern-persuasion-"+name, ids),
					Type:     TypePattern,
					Priority: PriorityMedium,
					Title:    fmt.Sprintf("%s persuasion concentration in %s", direction, name),
					Description: fmt.Sprintf(
						"%s averages a persuasion opportunity of %.1f against a county mean of %.1f across %d precincts.",
						name, jm, overallPersuasion, len(members)),
					Evidence: []Evidence{
						{Metric: "Jurisdiction Avg. Persuasion", Value: fmt.Sprintf("%.1f", jm), Comparison: fmt.Sprintf("county mean %.1f", overallPersuasion)},
					},
					AffectedPrecincts: ids,
					SuggestedActions:  []string{fmt.Sprintf("Adjust persuasion spend allocated to %s", name)},
					MapCommand:        c.highlight(ids, "pattern-jurisdiction"),
					Timestamp:         c.now,
				})
			}
		}
	}

	return out
}

// detectStrategicRecommendation emits exactly one county-level strategy call
// based on mean lean and swing potential.
func detectStrategicRecommendation(c detectorContext) []Insight {
	meanLean, hasLean := meanOf(c.precincts, leanOf)
	if !hasLean {
		return nil
	}
	meanSwing, _ := meanOf(c.precincts, swingOf)

	var title, description string
	switch {
	case meanLean > c.th.Recommendation.GOTVLeanMin:
		title = "Recommended strategy: GOTV"
		description = fmt.Sprintf(
			"The county leans Democratic by %.1f points on average; mobilizing existing support returns more votes per dollar than persuasion.",
			meanLean)
	case math.Abs(meanLean) <= c.th.Recommendation.NeutralLeanAbsMax && meanSwing >= c.th.Recommendation.PersuasionSwingMin:
		title = "Recommended strategy: persuasion"
		description = fmt.Sprintf(
			"A near-neutral county lean (%.1f) with an average swing potential of %.1f favors persuasion over base mobilization.",
			meanLean, meanSwing)
	default:
		title = "Recommended strategy: hybrid GOTV + persuasion"
		description = fmt.Sprintf(
			"With a county lean of %.1f and swing potential of %.1f, neither pure mobilization nor pure persuasion dominates; split the program.",
			meanLean, meanSwing)
	}

	ids := make([]string, 0, len(c.precincts))
	for _, rec := range c.precincts {
		ids = append(ids, rec.ID)
	}

	return []Insight{{
		ID:          stableID("recommendation-strategy", nil),
		Type:        TypeRecommendation,
		Priority:    PriorityMedium,
		Title:       title,
		Description: description,
		Evidence: []Evidence{
			{Metric: "County Lean", Value: fmt.Sprintf("%+.1f", meanLean)},
			{Metric: "Avg. Swing Potential", Value: fmt.Sprintf("%.1f", meanSwing)},
		},
		AffectedPrecincts: ids,
		SuggestedActions: []string{
			"Review the recommended split with the field director",
		},
		Timestamp: c.now,
	}}
}
