package models

import "strings"

// Region represents a geographic market served by one or more job boards.
// The set is closed: routing, registry, and intent classification all agree
// on these values and nothing else.
type Region string

const (
	RegionNorthAmerica  Region = "north_america"
	RegionEurope        Region = "europe"
	RegionOceania       Region = "oceania" // Australia / New Zealand
	RegionEastAsia      Region = "east_asia"
	RegionSoutheastAsia Region = "southeast_asia"
	RegionSouthAsia     Region = "south_asia"
	RegionMiddleEast    Region = "middle_east"
	RegionAfrica        Region = "africa"
	RegionLatinAmerica  Region = "latin_america"
	RegionGlobal        Region = "global"
	RegionUnknown       Region = "unknown"
)

// IsValid checks if the Region is a known, valid value
func (r Region) IsValid() bool {
	switch r {
	case RegionNorthAmerica, RegionEurope, RegionOceania, RegionEastAsia,
		RegionSoutheastAsia, RegionSouthAsia, RegionMiddleEast, RegionAfrica,
		RegionLatinAmerica, RegionGlobal, RegionUnknown:
		return true
	}
	return false
}

// String returns the string representation of the Region
func (r Region) String() string {
	return string(r)
}

// IsGeographic reports whether the region names an actual geography rather
// than the global or unknown markers.
func (r Region) IsGeographic() bool {
	return r.IsValid() && r != RegionGlobal && r != RegionUnknown
}

// AllRegions returns a slice of all valid Region values
func AllRegions() []Region {
	return []Region{
		RegionNorthAmerica,
		RegionEurope,
		RegionOceania,
		RegionEastAsia,
		RegionSoutheastAsia,
		RegionSouthAsia,
		RegionMiddleEast,
		RegionAfrica,
		RegionLatinAmerica,
		RegionGlobal,
		RegionUnknown,
	}
}

// ParseRegion maps free-form region labels (oracle output, config files) onto
// the closed Region set. Unrecognized input yields RegionUnknown.
func ParseRegion(s string) Region {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "north_america", "na", "usa_canada", "americas_north":
		return RegionNorthAmerica
	case "europe", "eu", "emea_europe":
		return RegionEurope
	case "oceania", "australia", "australia_nz", "anz":
		return RegionOceania
	case "east_asia", "asia_east":
		return RegionEastAsia
	case "southeast_asia", "south_east_asia", "asia_southeast":
		return RegionSoutheastAsia
	case "south_asia", "asia_south", "indian_subcontinent":
		return RegionSouthAsia
	case "middle_east", "mena", "gulf":
		return RegionMiddleEast
	case "africa":
		return RegionAfrica
	case "latin_america", "latam", "south_america":
		return RegionLatinAmerica
	case "global", "worldwide", "international", "any":
		return RegionGlobal
	}
	return RegionUnknown
}
