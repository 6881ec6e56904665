package precinct

import (
	"log"

	"github.com/PrecinctPulse/PP-Backend/internal/db"
)

func Init() {
	// Ensure the analytics schema exists first
	if err := db.EnsureSchema(db.DB, "analytics"); err != nil {
		log.Fatal("Failed to create analytics schema: ", err)
	}

	if err := db.DB.AutoMigrate(&Precinct{}); err != nil {
		log.Fatal("Failed to auto-migrate precinct table", err)
	}
}
