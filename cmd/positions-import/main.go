package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

var (
	csvPath     = flag.String("csv", "", "Path to the position export CSV (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to write")
	replace     = flag.Bool("replace", false, "Delete existing positions of the imported drivers inside the imported time range first")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key. 0 = disabled")
)

// CSV contract
// driver_id,recorded_at,latitude,longitude[,speed]
// recorded_at is RFC 3339; empty latitude/longitude are stored as NULL.

type PositionCSV struct {
	DriverID   uuid.UUID
	RecordedAt time.Time
	Latitude   *float64
	Longitude  *float64
	Speed      *float64
}

type span struct {
	from, to time.Time
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}
	if *dsn == "" && !*dryRun {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		fatalf("open: %v", err)
	}
	rows, err := loadCSV(bufio.NewReader(f))
	f.Close()
	if err != nil {
		fatalf("CSV error: %v", err)
	}
	if len(rows) == 0 {
		fatalf("CSV has no data rows")
	}

	spans := driverSpans(rows)
	fmt.Printf("Loaded %d positions for %d drivers from %s\n", len(rows), len(spans), *csvPath)

	if *dryRun {
		printPlan(rows, spans)
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	if err := checkDrivers(ctx, tx, spans); err != nil {
		fatalf("drivers: %v", err)
	}

	if *replace {
		deleted, err := deleteSpans(ctx, tx, spans)
		if err != nil {
			fatalf("delete existing: %v", err)
		}
		fmt.Printf("Deleted %d existing positions\n", deleted)
	}

	if err := insertAll(ctx, tx, rows); err != nil {
		fatalf("insert: %v", err)
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Imported %d positions ✅\n", len(rows))
	fmt.Println("Run schengen-aggregate to refresh daily presence.")
}

func loadCSV(in io.Reader) ([]PositionCSV, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"driver_id", "recorded_at", "latitude", "longitude"} {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}
	speedCol, hasSpeed := idx["speed"]

	field := func(rec []string, col int) string {
		if col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	var out []PositionCSV
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		var row PositionCSV
		if row.DriverID, err = uuid.Parse(field(rec, idx["driver_id"])); err != nil {
			return nil, fmt.Errorf("row %d: driver_id: %w", line, err)
		}
		if row.RecordedAt, err = time.Parse(time.RFC3339Nano, field(rec, idx["recorded_at"])); err != nil {
			return nil, fmt.Errorf("row %d: recorded_at: %w", line, err)
		}
		if row.Latitude, err = optionalFloat(field(rec, idx["latitude"]), 90); err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", line, err)
		}
		if row.Longitude, err = optionalFloat(field(rec, idx["longitude"]), 180); err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", line, err)
		}
		if hasSpeed {
			if row.Speed, err = optionalFloat(field(rec, speedCol), math.MaxFloat64); err != nil {
				return nil, fmt.Errorf("row %d: speed: %w", line, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func optionalFloat(s string, limit float64) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.Abs(v) > limit {
		return nil, fmt.Errorf("%q out of range", s)
	}
	return &v, nil
}

func driverSpans(rows []PositionCSV) map[uuid.UUID]span {
	out := map[uuid.UUID]span{}
	for _, r := range rows {
		s, ok := out[r.DriverID]
		if !ok {
			out[r.DriverID] = span{from: r.RecordedAt, to: r.RecordedAt}
			continue
		}
		if r.RecordedAt.Before(s.from) {
			s.from = r.RecordedAt
		}
		if r.RecordedAt.After(s.to) {
			s.to = r.RecordedAt
		}
		out[r.DriverID] = s
	}
	return out
}

func printPlan(rows []PositionCSV, spans map[uuid.UUID]span) {
	missing := 0
	for _, r := range rows {
		if r.Latitude == nil || r.Longitude == nil {
			missing++
		}
	}
	fmt.Println("Plan preview:")
	fmt.Printf("  Positions to insert: %d (%d without coordinates)\n", len(rows), missing)
	for id, s := range spans {
		fmt.Printf("  %s: %s .. %s\n", id, s.from.Format(time.RFC3339), s.to.Format(time.RFC3339))
	}
	if *replace {
		fmt.Println("  Existing positions inside each driver's range will be deleted first")
	}
}

func checkDrivers(ctx context.Context, tx *sql.Tx, spans map[uuid.UUID]span) error {
	for id := range spans {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM fleet.drivers WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("driver %s does not exist", id)
		}
	}
	return nil
}

func deleteSpans(ctx context.Context, tx *sql.Tx, spans map[uuid.UUID]span) (int64, error) {
	var total int64
	for id, s := range spans {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM fleet.positions WHERE driver_id = $1 AND recorded_at BETWEEN $2 AND $3`,
			id, s.from, s.to)
		if err != nil {
			return total, fmt.Errorf("driver %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, rows []PositionCSV) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fleet.positions (id, driver_id, latitude, longitude, speed, recorded_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,now())`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, uuid.New(), r.DriverID, r.Latitude, r.Longitude, r.Speed, r.RecordedAt); err != nil {
			return fmt.Errorf("row %d (%s @ %s): %w", i+2, r.DriverID, r.RecordedAt.Format(time.RFC3339), err)
		}
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
