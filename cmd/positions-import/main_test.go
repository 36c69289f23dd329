package main

import (
	"strings"
	"testing"
	"time"
)

const sampleCSV = `driver_id,recorded_at,latitude,longitude,speed
7b0e4a58-7f2e-4f53-9a65-1c1f2f0b8a11,2025-06-01T08:00:00Z,43.85,18.41,62.5
7b0e4a58-7f2e-4f53-9a65-1c1f2f0b8a11,2025-05-30T22:30:00+02:00,,,
0c2d9a1e-52e4-4c47-8b7a-9de0f4b3c222,2025-06-02T10:15:00Z,48.2,16.37,
`

func TestLoadCSV(t *testing.T) {
	rows, err := loadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("loadCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Latitude == nil || *rows[0].Latitude != 43.85 || rows[0].Speed == nil || *rows[0].Speed != 62.5 {
		t.Errorf("row 0 not parsed: %+v", rows[0])
	}
	if rows[1].Latitude != nil || rows[1].Longitude != nil || rows[1].Speed != nil {
		t.Errorf("empty coordinates should be nil: %+v", rows[1])
	}
	if rows[2].Speed != nil {
		t.Errorf("empty speed should be nil")
	}

	spans := driverSpans(rows)
	if len(spans) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(spans))
	}
	s := spans[rows[0].DriverID]
	if !s.from.Equal(time.Date(2025, 5, 30, 20, 30, 0, 0, time.UTC)) || !s.to.Equal(rows[0].RecordedAt) {
		t.Errorf("span = %v..%v", s.from, s.to)
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"missing column": "driver_id,recorded_at,latitude\n",
		"bad uuid":       "driver_id,recorded_at,latitude,longitude\nnope,2025-06-01T08:00:00Z,1,2\n",
		"bad time":       "driver_id,recorded_at,latitude,longitude\n7b0e4a58-7f2e-4f53-9a65-1c1f2f0b8a11,yesterday,1,2\n",
		"lat range":      "driver_id,recorded_at,latitude,longitude\n7b0e4a58-7f2e-4f53-9a65-1c1f2f0b8a11,2025-06-01T08:00:00Z,91,2\n",
		"lon not number": "driver_id,recorded_at,latitude,longitude\n7b0e4a58-7f2e-4f53-9a65-1c1f2f0b8a11,2025-06-01T08:00:00Z,1,east\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadCSV(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
