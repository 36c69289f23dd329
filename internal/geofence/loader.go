package geofence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadFiles reads one or more GeoJSON files (FeatureCollection or single
// Feature) and unions every Polygon/MultiPolygon outer ring into a Region.
// When countries is non-nil only features whose ISO code is in the set are
// kept. Any read or parse failure, or an empty result, is returned as an error.
func LoadFiles(name string, paths []string, countries CountrySet) (*Region, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("load region %q: no geojson paths: %w", name, ErrEmptyRegion)
	}
	var rings []orb.Ring
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read region file %s: %w", filepath.Base(p), err)
		}
		rs, err := ParseRings(b, countries)
		if err != nil {
			return nil, fmt.Errorf("parse region file %s: %w", filepath.Base(p), err)
		}
		rings = append(rings, rs...)
	}
	region, err := NewRegion(name, rings)
	if err != nil {
		return nil, fmt.Errorf("load region %q: %w", name, err)
	}
	return region, nil
}

// ParseRings decodes GeoJSON bytes into outer rings.
func ParseRings(data []byte, countries CountrySet) ([]orb.Ring, error) {
	features, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	var rings []orb.Ring
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if countries != nil && !countries.Has(DetectISOA2(f.Properties)) {
			continue
		}
		rings = append(rings, outerRings(f.Geometry)...)
	}
	return rings, nil
}

func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		return fc.Features, nil
	case "feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return []*geojson.Feature{f}, nil
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", head.Type)
	}
}

// outerRings keeps only the exterior ring of each polygon; holes are not
// subtracted.
func outerRings(g orb.Geometry) []orb.Ring {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) > 0 {
			return []orb.Ring{geom[0]}
		}
	case orb.MultiPolygon:
		out := make([]orb.Ring, 0, len(geom))
		for _, poly := range geom {
			if len(poly) > 0 {
				out = append(out, poly[0])
			}
		}
		return out
	}
	return nil
}
