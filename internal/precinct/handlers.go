package precinct

import (
	"encoding/json"
	"net/http"

	"github.com/PrecinctPulse/PP-Backend/internal/db"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

func ListHandler(w http.ResponseWriter, r *http.Request) {
	var rows []Precinct

	query := db.DB.Order("external_id")
	if j := r.URL.Query().Get("jurisdiction"); j != "" {
		query = query.Where("jurisdiction = ?", j)
	}

	if err := query.Find(&rows).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var row Precinct
	err := db.DB.Where("external_id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		http.Error(w, "Precinct not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(row.ToRecord()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func JurisdictionsHandler(w http.ResponseWriter, r *http.Request) {
	var names []string
	err := db.DB.Model(&Precinct{}).Distinct("jurisdiction").Order("jurisdiction").Pluck("jurisdiction", &names).Error
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
