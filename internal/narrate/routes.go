package narrate

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Post("/summary", h.SummaryHandler)

	return r
}
