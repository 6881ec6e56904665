package narrate

import (
	"encoding/json"
	"net/http"

	"github.com/PrecinctPulse/PP-Backend/internal/insights"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

type Handlers struct {
	Narrator  Narrator
	Engine    *insights.Engine
	Precincts precinct.Lister
}

// SummaryHandler generates the current insight set and narrates it. The
// narration budget is small, so the insight limit is capped server-side.
func (h Handlers) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.Narrator.Enabled() {
		http.Error(w, "Narration is not configured", http.StatusServiceUnavailable)
		return
	}

	records, err := h.Precincts.ListRecords()
	if err != nil {
		http.Error(w, "Failed to load precincts", http.StatusInternalServerError)
		return
	}

	limit := 5
	list := h.Engine.Generate(records, insights.Config{MaxInsights: &limit})
	if len(list) == 0 {
		http.Error(w, "No insights to narrate", http.StatusNotFound)
		return
	}

	summary, err := h.Narrator.Summarize(r.Context(), list)
	if err != nil {
		http.Error(w, "Narration failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"summary": summary}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
