package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/PrecinctPulse/PP-Backend/internal/classify"
	"github.com/PrecinctPulse/PP-Backend/internal/db"
	"github.com/PrecinctPulse/PP-Backend/internal/insights"
	"github.com/PrecinctPulse/PP-Backend/internal/mapbridge"
	"github.com/PrecinctPulse/PP-Backend/internal/middleware"
	"github.com/PrecinctPulse/PP-Backend/internal/narrate"
	"github.com/PrecinctPulse/PP-Backend/internal/precinct"
	"github.com/PrecinctPulse/PP-Backend/internal/segment"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	thresholds, err := classify.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load thresholds: ", err)
	}

	precinct.Init()
	insights.Init()

	store := precinct.Store{DB: db.DB}
	verifier := middleware.BcryptVerifier{Hash: os.Getenv("ADMIN_TOKEN_HASH")}

	engine := insights.NewEngine(thresholds, mapbridge.Bridge{})

	segmentHandlers := segment.Handlers{Precincts: store, Thresholds: thresholds}
	insightHandlers := insights.Handlers{Engine: engine, Precincts: store}
	narrateHandlers := narrate.Handlers{
		Narrator:  narrate.NewFromEnv(),
		Engine:    engine,
		Precincts: store,
	}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(10, 30))
	r.Get("/", RootHandler)

	r.Mount("/precincts", precinct.SetupRoutes())
	r.Mount("/segments", segment.SetupRoutes(segmentHandlers))
	r.Mount("/insights", insights.SetupRoutes(insightHandlers, verifier))
	r.Mount("/chat", narrate.SetupRoutes(narrateHandlers))

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
