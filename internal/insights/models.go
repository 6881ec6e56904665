package insights

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SavedInsight is a persisted snapshot row for the dashboard's run-history
// view. The engine itself never touches the database; handlers write these
// after a generation call.
type SavedInsight struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RunID             uuid.UUID      `json:"run_id" gorm:"type:uuid;index"`
	InsightID         string         `json:"insight_id" gorm:"index"`
	Type              string         `json:"type"`
	Priority          string         `json:"priority"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	AffectedPrecincts pq.StringArray `json:"affected_precincts" gorm:"type:text[]"`
	SuggestedActions  pq.StringArray `json:"suggested_actions" gorm:"type:text[]"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

func (SavedInsight) TableName() string {
	return "analytics.saved_insights"
}
