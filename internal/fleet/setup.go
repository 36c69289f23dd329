package fleet

import (
	"log"

	"github.com/dispatchly/fleet-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "fleet"); err != nil {
		log.Fatal("Failed to ensure schema fleet: ", err)
	}

	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		log.Fatal("Failed to enable uuid-ossp extension:", err)
	}

	if err := db.DB.AutoMigrate(
		&Driver{},
		&Position{},
	); err != nil {
		log.Fatal("Failed to auto-migrate fleet tables: ", err)
	}

	log.Println("Fleet module initialized")
}
