package main

import (
	"log"

	"github.com/dispatchly/fleet-backend/internal/config"
	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/fleet"
	"github.com/dispatchly/fleet-backend/internal/seeds"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	db.Connect(cfg.DatabaseURL)
	fleet.Init()

	if err := seeds.SeedAll(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
