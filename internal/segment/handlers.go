package segment

import (
	"encoding/json"
	"net/http"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
)

// Handlers serve segment queries over the live precinct collection. The
// engine itself is pure; each request loads the current records and runs the
// query against them.
type Handlers struct {
	Precincts  precinct.Lister
	Thresholds classify.Thresholds
}

func (h Handlers) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var spec Specification
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	records, err := h.Precincts.ListRecords()
	if err != nil {
		http.Error(w, "Failed to load precincts", http.StatusInternalServerError)
		return
	}

	engine := NewEngine(records, h.Thresholds)
	result := engine.Query(spec)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
