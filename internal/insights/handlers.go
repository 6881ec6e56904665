package insights

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/PrecinctPulse/PP-Backend/internal/db"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Handlers wrap one shared Engine instance. The engine holds the session's
// cache/dismissal state; handlers do the HTTP and persistence glue around it.
type Handlers struct {
	Engine    *Engine
	Precincts precinct.Lister
}

type generateRequest struct {
	Config
	SaveRun bool `json:"saveRun,omitempty"`
}

func (h Handlers) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	// An empty body means default config.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	records, err := h.Precincts.ListRecords()
	if err != nil {
		http.Error(w, "Failed to load precincts", http.StatusInternalServerError)
		return
	}

	result := h.Engine.Generate(records, req.Config)

	if req.SaveRun && len(result) > 0 {
		if err := saveRun(result); err != nil {
			// History is best-effort; the generated insights still go back.
			log.Printf("[insights] failed to save run: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func saveRun(result []Insight) error {
	runID := uuid.New()
	rows := make([]SavedInsight, 0, len(result))
	for _, ins := range result {
		rows = append(rows, SavedInsight{
			ID:                uuid.New(),
			RunID:             runID,
			InsightID:         ins.ID,
			Type:              ins.Type,
			Priority:          ins.Priority,
			Title:             ins.Title,
			Description:       ins.Description,
			AffectedPrecincts: pq.StringArray(ins.AffectedPrecincts),
			SuggestedActions:  pq.StringArray(ins.SuggestedActions),
			GeneratedAt:       ins.Timestamp,
		})
	}
	return db.DB.Create(&rows).Error
}

func (h Handlers) TopHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.Precincts.ListRecords()
	if err != nil {
		http.Error(w, "Failed to load precincts", http.StatusInternalServerError)
		return
	}

	top := h.Engine.TopInsight(records)
	if top == nil {
		http.Error(w, "No insights available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(top); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h Handlers) DismissHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.Engine.Dismiss(input.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	h.Engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	var rows []SavedInsight
	query := db.DB.Order("generated_at DESC").Limit(200)
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if err := query.Find(&rows).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// FormatHandler renders a posted insight as chat text. Stateless; exists so
// the chat collaborator and the dashboard share one formatter.
func (h Handlers) FormatHandler(w http.ResponseWriter, r *http.Request) {
	var ins Insight
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(FormatForChat(ins)))
}
