package geofence

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrNoFeaturesMatched = errors.New("geofence: no features matched the country filter")

// FilterCountries keeps the features of data (a FeatureCollection) whose ISO
// code is in countries. Properties are reduced to iso_a2 and geometries other
// than Polygon/MultiPolygon are dropped.
func FilterCountries(data []byte, countries CountrySet) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("input must be a FeatureCollection: %w", err)
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		code := DetectISOA2(f.Properties)
		if code == "" || !countries.Has(code) {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		nf := geojson.NewFeature(f.Geometry)
		nf.Properties["iso_a2"] = code
		out.Append(nf)
	}
	if len(out.Features) == 0 {
		return nil, ErrNoFeaturesMatched
	}
	return out, nil
}
