package precinct

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListHandler)
	r.Get("/jurisdictions", JurisdictionsHandler)
	r.Get("/{id}", GetHandler)

	return r
}
