package schengen

import (
	"log"

	"github.com/dispatchly/fleet-backend/internal/db"
)

// Init creates the schengen schema and its table. fleet.Init must run first.
func Init() {
	if err := db.EnsureSchema(db.DB, "schengen"); err != nil {
		log.Fatal("Failed to ensure schema schengen: ", err)
	}

	if err := db.DB.AutoMigrate(&DayPresence{}); err != nil {
		log.Fatal("Failed to auto-migrate schengen tables: ", err)
	}

	log.Println("Schengen module initialized")
}
