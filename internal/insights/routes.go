package insights

import (
	"net/http"

	"github.com/PrecinctPulse/PP-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h Handlers, verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Post("/generate", h.GenerateHandler)
	r.Get("/top", h.TopHandler)
	r.Get("/history", h.HistoryHandler)
	r.Post("/format", h.FormatHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminMiddleware(verifier))
		r.Post("/dismiss", h.DismissHandler)
		r.Post("/cache/clear", h.ClearCacheHandler)
	})

	return r
}
