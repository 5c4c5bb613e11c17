package pipeline

import "regexp"

// Coordinate extraction is two-tier: the strict pattern matches the exact
// form the geocoding agent is instructed to emit; the loose patterns salvage
// responses where the agent labelled the values independently. Captures stay
// strings end to end so reported precision survives untouched.
var (
	pairPattern = regexp.MustCompile(`(?i)latitude:\s*(-?\d+(?:\.\d+)?)\s*,\s*longitude:\s*(-?\d+(?:\.\d+)?)`)
	latPattern  = regexp.MustCompile(`(?i)\blat(?:itude)?\b\s*[:=]?\s*(-?\d+(?:\.\d+)?)`)
	lonPattern  = regexp.MustCompile(`(?i)\b(?:lon|lng|long|longitude)\b\s*[:=]?\s*(-?\d+(?:\.\d+)?)`)
)

// ExtractCoordinates parses a coordinate pair out of agent output. The first
// tier that yields both values wins.
func ExtractCoordinates(text string) (*Location, bool) {
	if m := pairPattern.FindStringSubmatch(text); m != nil {
		return &Location{Latitude: m[1], Longitude: m[2]}, true
	}

	latM := latPattern.FindStringSubmatch(text)
	lonM := lonPattern.FindStringSubmatch(text)
	if latM != nil && lonM != nil {
		return &Location{Latitude: latM[1], Longitude: lonM[1]}, true
	}
	return nil, false
}
