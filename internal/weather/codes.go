package weather

// condition is the (category, description, icon) triple mapped from a WMO
// weather interpretation code.
type condition struct {
	Category    string
	Description string
	Icon        string
}

// wmoCodes maps WMO weather interpretation codes (0-99) to display conditions.
var wmoCodes = map[int]condition{
	0:  {"Clear", "clear sky", "01d"},
	1:  {"Clear", "mainly clear", "01d"},
	2:  {"Clouds", "partly cloudy", "02d"},
	3:  {"Clouds", "overcast", "03d"},
	45: {"Fog", "fog", "50d"},
	48: {"Fog", "depositing rime fog", "50d"},
	51: {"Drizzle", "light drizzle", "09d"},
	53: {"Drizzle", "moderate drizzle", "09d"},
	55: {"Drizzle", "dense drizzle", "09d"},
	56: {"Drizzle", "light freezing drizzle", "09d"},
	57: {"Drizzle", "dense freezing drizzle", "09d"},
	61: {"Rain", "slight rain", "10d"},
	63: {"Rain", "moderate rain", "10d"},
	65: {"Rain", "heavy rain", "10d"},
	66: {"Rain", "light freezing rain", "13d"},
	67: {"Rain", "heavy freezing rain", "13d"},
	71: {"Snow", "slight snow", "13d"},
	73: {"Snow", "moderate snow", "13d"},
	75: {"Snow", "heavy snow", "13d"},
	77: {"Snow", "snow grains", "13d"},
	80: {"Rain", "slight rain showers", "09d"},
	81: {"Rain", "moderate rain showers", "09d"},
	82: {"Rain", "violent rain showers", "09d"},
	85: {"Snow", "slight snow showers", "13d"},
	86: {"Snow", "heavy snow showers", "13d"},
	95: {"Thunderstorm", "thunderstorm", "11d"},
	96: {"Thunderstorm", "thunderstorm with slight hail", "11d"},
	99: {"Thunderstorm", "thunderstorm with heavy hail", "11d"},
}

// conditionForCode resolves a WMO code to its display condition. Unknown codes
// default to clear sky.
func conditionForCode(code int) condition {
	if c, ok := wmoCodes[code]; ok {
		return c
	}
	return condition{"Clear", "clear sky", "01d"}
}
