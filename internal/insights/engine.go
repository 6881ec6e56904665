package insights

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/mapbridge"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

// Engine owns the only mutable state in the analytics core: the memoized
// detector output and the dismissed-ID set. It is an injectable service
// object, not a package singleton; callers that want shared session state
// hold one instance. The mutex makes the check-then-store cache sequence
// atomic under concurrent dashboard re-renders.
type Engine struct {
	th   classify.Thresholds
	maps mapbridge.CommandBuilder

	mu        sync.Mutex
	cachedKey string
	cached    []Insight
	dismissed map[string]struct{}
}

func NewEngine(th classify.Thresholds, maps mapbridge.CommandBuilder) *Engine {
	return &Engine{
		th:        th,
		maps:      maps,
		dismissed: make(map[string]struct{}),
	}
}

// fingerprint identifies a precinct input set by id plus the metric values the
// detectors read, so content changes (not just membership changes) invalidate
// the cache.
func fingerprint(precincts []precinct.Record) string {
	h := sha1.New()
	for _, rec := range precincts {
		fmt.Fprintf(h, "%s|%s|", rec.ID, rec.Jurisdiction)
		writeNum(h, rec.Demographics.Population18Up)
		writeNum(h, rec.Targeting.GOTVPriority)
		writeNum(h, rec.Targeting.PersuasionOpportunity)
		writeNum(h, rec.Electoral.PartisanLean)
		writeNum(h, rec.Electoral.SwingPotential)
		writeNum(h, rec.Electoral.AvgTurnout)
		writeNum(h, rec.Demographics.MedianHHI)
		writeNum(h, rec.Demographics.CollegePct)
		fmt.Fprintf(h, "%s;", rec.Electoral.Competitiveness)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeNum(h interface{ Write([]byte) (int, error) }, p *float64) {
	if v, ok := precinct.Num(p); ok {
		fmt.Fprintf(h, "%g,", v)
	} else {
		fmt.Fprint(h, "_,")
	}
}

// Generate runs the detector battery (or reuses the memoized output for an
// identical input), then applies dismissal, type and priority filters, the
// priority sort, and the truncation limit. The cache holds the merged
// pre-filter list; dismissal and config filters are re-applied on every call.
func (e *Engine) Generate(precincts []precinct.Record, cfg Config) []Insight {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := fingerprint(precincts)
	base := e.cached
	if e.cachedKey != key {
		base = e.runDetectors(precincts)
		e.cachedKey = key
		e.cached = base
	}

	out := make([]Insight, 0, len(base))
	for _, ins := range base {
		if _, gone := e.dismissed[ins.ID]; gone {
			continue
		}
		out = append(out, ins)
	}

	if len(cfg.IncludeTypes) > 0 {
		wanted := make(map[string]struct{}, len(cfg.IncludeTypes))
		for _, t := range cfg.IncludeTypes {
			wanted[t] = struct{}{}
		}
		kept := out[:0]
		for _, ins := range out {
			if _, ok := wanted[ins.Type]; ok {
				kept = append(kept, ins)
			}
		}
		out = kept
	}

	if cfg.MinPriorityLevel != "" {
		if maxRank, ok := priorityRank[cfg.MinPriorityLevel]; ok {
			kept := out[:0]
			for _, ins := range out {
				if priorityRank[ins.Priority] <= maxRank {
					kept = append(kept, ins)
				}
			}
			out = kept
		}
	}

	// Stable: within a priority tier, detector emission order holds.
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})

	limit := defaultMaxInsights
	if cfg.MaxInsights != nil {
		limit = *cfg.MaxInsights
	}
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

func (e *Engine) runDetectors(precincts []precinct.Record) []Insight {
	ctx := detectorContext{
		precincts: precincts,
		th:        e.th,
		maps:      e.maps,
		now:       time.Now(),
	}

	var merged []Insight
	for _, detect := range detectors {
		merged = append(merged, detect(ctx)...)
	}
	return merged
}

// TopInsight returns the single highest-priority insight, or nil when nothing
// qualifies.
func (e *Engine) TopInsight(precincts []precinct.Record) *Insight {
	all := e.Generate(precincts, Config{})
	if len(all) == 0 {
		return nil
	}
	top := all[0]
	return &top
}

// Dismiss hides an insight ID from every subsequent Generate call until
// ClearCache resets the set.
func (e *Engine) Dismiss(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dismissed[id] = struct{}{}
}

// ClearCache drops both the memoized result and the dismissed set.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cachedKey = ""
	e.cached = nil
	e.dismissed = make(map[string]struct{})
}
