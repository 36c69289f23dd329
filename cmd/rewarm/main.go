package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dispatchly/fleet-backend/internal/config"
	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/schengen"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR not set; there is no result cache to rewarm")
	}

	db.Connect(cfg.DatabaseURL)

	engine, rdb, err := schengen.Bootstrap(cfg, db.DB, prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	n, err := engine.Rewarm(ctx, time.Now())
	if err != nil {
		log.Fatalf("rewarm: %v", err)
	}
	fmt.Printf("✓ Recomputed and cached results for %d drivers\n", n)
}
