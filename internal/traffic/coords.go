package traffic

import "strings"

// representativeCoords maps country-level (and broad region) names to a major
// city likely to have traffic coverage. Used as a coarse fallback when direct
// geocoding of the input fails.
var representativeCoords = map[string][2]float64{
	"us":                       {40.7128, -74.0060},
	"usa":                      {40.7128, -74.0060},
	"united states":            {40.7128, -74.0060},
	"united states of america": {40.7128, -74.0060},
	"uk":                       {51.5074, -0.1278},
	"united kingdom":           {51.5074, -0.1278},
	"great britain":            {51.5074, -0.1278},
	"bangladesh":               {23.8103, 90.4125},
	"india":                    {19.0760, 72.8777},
	"australia":                {-33.8688, 151.2093},
	"canada":                   {43.6532, -79.3832},
	"france":                   {48.8566, 2.3522},
	"japan":                    {35.6895, 139.6917},
	"germany":                  {52.52, 13.4050},
	"europe":                   {48.8566, 2.3522},
	"asia":                     {35.6895, 139.6917},
}

// representativeCoordsFor returns a representative coordinate pair for a
// country or region name, or false when no mapping exists. Matches the exact
// key first, then a prefix (e.g. "united states - usa").
func representativeCoordsFor(name string) (lat, lon float64, ok bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, 0, false
	}
	if c, found := representativeCoords[key]; found {
		return c[0], c[1], true
	}
	for k, c := range representativeCoords {
		if strings.HasPrefix(key, k) {
			return c[0], c[1], true
		}
	}
	return 0, 0, false
}
