package geofence

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// ErrEmptyRegion is returned when a region would be built without a single
// usable polygon ring. Callers treat it as a fatal configuration error.
var ErrEmptyRegion = errors.New("geofence: region has no polygons")

// Region is an immutable union of simple polygons (outer rings only).
// It is built once at startup and shared read-only by every caller.
type Region struct {
	name  string
	rings []ring
	bound orb.Bound
}

type ring struct {
	points orb.Ring
	bound  orb.Bound
}

// NewRegion copies the given rings into a Region. Rings with fewer than three
// vertices are ignored; if nothing usable remains ErrEmptyRegion is returned.
func NewRegion(name string, rings []orb.Ring) (*Region, error) {
	r := &Region{name: name}
	for _, src := range rings {
		if len(src) < 3 {
			continue
		}
		pts := make(orb.Ring, len(src))
		copy(pts, src)
		b := pts.Bound()
		if len(r.rings) == 0 {
			r.bound = b
		} else {
			r.bound = r.bound.Union(b)
		}
		r.rings = append(r.rings, ring{points: pts, bound: b})
	}
	if len(r.rings) == 0 {
		return nil, ErrEmptyRegion
	}
	return r, nil
}

// Name returns the label the region was loaded under.
func (r *Region) Name() string { return r.name }

// Len returns the number of polygons in the region.
func (r *Region) Len() int { return len(r.rings) }

// Bound returns the bounding box enclosing every polygon.
func (r *Region) Bound() orb.Bound { return r.bound }

// IsInside reports whether (lat, lon) falls inside any polygon of the region.
// Out-of-range or non-finite coordinates are never inside. Points lying
// exactly on a ring edge may resolve either way.
func (r *Region) IsInside(lat, lon float64) bool {
	if !ValidCoordinate(lat, lon) {
		return false
	}
	pt := orb.Point{lon, lat}
	if !r.bound.Contains(pt) {
		return false
	}
	for _, rg := range r.rings {
		if !rg.bound.Contains(pt) {
			continue
		}
		if pointInRing(pt, rg.points) {
			return true
		}
	}
	return false
}

// ValidCoordinate reports whether lat/lon are finite and within WGS84 range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// pointInRing is the even-odd rule: cast a ray towards +lon and flip on
// every edge it crosses. Works for open or closed rings.
func pointInRing(pt orb.Point, rg orb.Ring) bool {
	n := len(rg)
	x, y := pt[0], pt[1]
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := rg[i][0], rg[i][1]
		xj, yj := rg[j][0], rg[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
