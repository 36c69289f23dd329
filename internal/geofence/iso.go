package geofence

import (
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SchengenMembers lists the ISO 3166-1 alpha-2 codes of the Schengen states.
var SchengenMembers = []string{
	"AT", "BE", "CH", "CZ", "DE", "DK", "EE", "ES", "FI", "FR",
	"GR", "HR", "HU", "IS", "IT", "LI", "LT", "LU", "LV", "MT",
	"NL", "NO", "PL", "PT", "SE", "SI", "SK", "BG", "RO",
}

var (
	a2Keys = []string{"ISO_A2", "iso_a2", "ISO2", "iso2", "ISO3166-1-Alpha-2"}
	a3Keys = []string{"ISO_A3", "iso_a3", "ADM0_A3", "adm0_a3", "ISO3166-1-Alpha-3"}
)

var upper = cases.Upper(language.Und)

// NormalizeCode returns the ISO alpha-2 form of an alpha-2, alpha-3 or UN
// M.49 country code. Codes the region registry does not know as a country
// are returned trimmed and upper-cased.
func NormalizeCode(code string) string {
	c := upper.String(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if r, err := language.ParseRegion(c); err == nil && r.IsCountry() {
		return r.String()
	}
	return c
}

// countryCode is NormalizeCode restricted to recognised countries; dataset
// placeholders such as "-99" yield "".
func countryCode(v string) string {
	r, err := language.ParseRegion(upper.String(strings.TrimSpace(v)))
	if err != nil || !r.IsCountry() {
		return ""
	}
	return r.String()
}

// CountrySet is a set of normalized ISO alpha-2 codes. A nil set matches all.
type CountrySet map[string]struct{}

// NewCountrySet builds a set from codes, skipping blanks.
func NewCountrySet(codes ...string) CountrySet {
	s := make(CountrySet, len(codes))
	for _, c := range codes {
		if c = NormalizeCode(c); c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

// Has reports whether the set contains code. A nil set contains everything.
func (s CountrySet) Has(code string) bool {
	if s == nil {
		return true
	}
	_, ok := s[NormalizeCode(code)]
	return ok
}

// Apply adds include and removes exclude, returning s for chaining.
func (s CountrySet) Apply(include, exclude []string) CountrySet {
	for _, c := range include {
		if c = NormalizeCode(c); c != "" {
			s[c] = struct{}{}
		}
	}
	for _, c := range exclude {
		delete(s, NormalizeCode(c))
	}
	return s
}

// DetectISOA2 extracts the alpha-2 country code from GeoJSON feature
// properties, falling back to the alpha-3 columns. Some datasets publish
// ISO_A2 as "-99" and only carry the alpha-3 code. Empty when unknown.
func DetectISOA2(props geojson.Properties) string {
	for _, keys := range [][]string{a2Keys, a3Keys} {
		for _, k := range keys {
			if v, ok := props[k].(string); ok {
				if code := countryCode(v); code != "" {
					return code
				}
			}
		}
	}
	return ""
}
