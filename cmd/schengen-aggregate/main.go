package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dispatchly/fleet-backend/internal/config"
	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/schengen"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	driverFlag = flag.String("driver", "", "Aggregate a single driver (UUID); default is every driver")
	fromFlag   = flag.String("from", "", "Range start, RFC 3339 (single driver only; default start of the 180-day window)")
	toFlag     = flag.String("to", "", "Range end, RFC 3339 (single driver only; default now)")
	dryRun     = flag.Bool("dry-run", false, "Print the plan only; no DB writes")
	timeout    = flag.Duration("timeout", 30*time.Minute, "Overall timeout")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	db.Connect(cfg.DatabaseURL)
	schengen.Init()

	engine, rdb, err := schengen.Bootstrap(cfg, db.DB, prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	now := time.Now()
	fromDay, toDay := engine.Window(now)

	if *driverFlag == "" {
		if *fromFlag != "" || *toFlag != "" {
			log.Fatal("--from/--to require --driver")
		}
		fmt.Printf("Mode: all drivers, window %s..%s (%s)\n", fromDay, toDay, engine.Location())
		if *dryRun {
			fmt.Println("Dry run complete. No changes made.")
			return
		}
		res, err := engine.AggregateAll(ctx, now)
		if err != nil {
			log.Fatalf("aggregate: %v", err)
		}
		fmt.Printf("Run %s: drivers=%d days=%d skipped_samples=%d failed=%d\n",
			res.ID, res.Drivers, res.Days, res.SamplesSkipped, res.Failed)
		for _, id := range res.FailedDrivers {
			fmt.Printf("  failed: %s\n", id)
		}
		return
	}

	driverID, err := uuid.Parse(*driverFlag)
	if err != nil {
		log.Fatalf("--driver: %v", err)
	}
	from, to := schengen.DayStart(fromDay, engine.Location()), now
	if *fromFlag != "" {
		if from, err = time.Parse(time.RFC3339, *fromFlag); err != nil {
			log.Fatalf("--from: %v", err)
		}
	}
	if *toFlag != "" {
		if to, err = time.Parse(time.RFC3339, *toFlag); err != nil {
			log.Fatalf("--to: %v", err)
		}
	}

	fmt.Printf("Mode: driver %s, %s..%s\n", driverID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	res, err := engine.Aggregate(ctx, driverID, from, to)
	if err != nil {
		log.Fatalf("aggregate: %v", err)
	}
	fmt.Printf("✓ days=%d samples=%d skipped=%d\n", res.DaysWritten, res.Samples, res.SamplesSkipped)
}
