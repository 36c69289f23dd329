package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dispatchly/fleet-backend/internal/geofence"
)

var (
	output  = flag.String("o", filepath.Join("data", "schengen.geojson"), "Output path")
	include = flag.String("include", "", "Extra ISO A2 codes to include (comma separated)")
	exclude = flag.String("exclude", "", "ISO A2 codes to exclude (comma separated)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] countries.geojson\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	countries := geofence.NewCountrySet(geofence.SchengenMembers...).Apply(split(*include), split(*exclude))
	fc, err := geofence.FilterCountries(data, countries)
	if err != nil {
		log.Fatalf("filter: %v", err)
	}

	// Fail before writing if the loader would reject the output.
	b, err := fc.MarshalJSON()
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	if _, err := geofence.ParseRings(b, nil); err != nil {
		log.Fatalf("output does not parse: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	if err := os.WriteFile(*output, b, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	fmt.Printf("Wrote %d features to %s\n", len(fc.Features), *output)
}

func split(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
