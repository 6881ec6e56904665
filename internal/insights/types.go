package insights

import "time"

// Insight types.
const (
	TypeOpportunity    = "opportunity"
	TypeRisk           = "risk"
	TypeAnomaly        = "anomaly"
	TypeTrend          = "trend"
	TypePattern        = "pattern"
	TypeRecommendation = "recommendation"
)

// Priorities, ordered critical > high > medium > low.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// priorityRank maps priorities onto their sort order; unknown values sink.
var priorityRank = map[string]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

type Evidence struct {
	Metric       string `json:"metric"`
	Value        string `json:"value"`
	Comparison   string `json:"comparison,omitempty"`
	Significance string `json:"significance,omitempty"`
}

type Insight struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Priority          string         `json:"priority"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Evidence          []Evidence     `json:"evidence"`
	AffectedPrecincts []string       `json:"affectedPrecincts"`
	SuggestedActions  []string       `json:"suggestedActions"`
	MapCommand        map[string]any `json:"mapCommand,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Config tunes a generation call. MaxInsights is a pointer so an explicit 0
// (return nothing) is distinguishable from unset (default 10).
type Config struct {
	MaxInsights      *int     `json:"maxInsights,omitempty"`
	MinPriorityLevel string   `json:"minPriorityLevel,omitempty"`
	IncludeTypes     []string `json:"includeTypes,omitempty"`
}

const defaultMaxInsights = 10
