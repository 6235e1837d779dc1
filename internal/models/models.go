package models

import "time"

// WeatherReading is a normalized current-weather observation. Temperatures are
// in degrees Celsius rounded to one decimal, wind speed in m/s.
type WeatherReading struct {
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
	CityName    string  `json:"city_name"`
	Country     string  `json:"country"`
}

// NewsArticle is a single article returned by the news lookup. Title is always
// present; the rest is best-effort from the provider.
type NewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Alert types and priorities for TrafficAlert.
const (
	AlertTypeTraffic   = "traffic"
	AlertTypeEmergency = "emergency"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// TrafficAlert is a road or emergency notice, either synthesized from
// structured traffic data or classified out of news headlines.
type TrafficAlert struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
	AlertType   string `json:"alert_type"`
	Priority    string `json:"priority"`
}

// Congestion levels, ordered worst to best.
const (
	CongestionJammed   = "jammed"
	CongestionHeavy    = "heavy"
	CongestionModerate = "moderate"
	CongestionLight    = "light"
	CongestionFree     = "free"
)

// CongestionRank orders congestion levels for sorting, worst first.
// Unknown levels sort last.
func CongestionRank(level string) int {
	switch level {
	case CongestionJammed:
		return 0
	case CongestionHeavy:
		return 1
	case CongestionModerate:
		return 2
	case CongestionLight:
		return 3
	case CongestionFree:
		return 4
	}
	return 5
}

// RoadCondition describes the current state of one road segment.
type RoadCondition struct {
	RoadName        string    `json:"road_name"`
	CongestionLevel string    `json:"congestion_level"`
	SpeedKmh        float64   `json:"speed_kmh"`
	NormalSpeedKmh  float64   `json:"normal_speed_kmh"`
	IncidentType    string    `json:"incident_type,omitempty"`
	Description     string    `json:"description,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Incident severities.
const (
	SeverityMinor    = "minor"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

// TrafficIncident is a discrete traffic event near the queried location.
type TrafficIncident struct {
	IncidentType     string     `json:"incident_type"`
	Severity         string     `json:"severity"`
	RoadName         string     `json:"road_name"`
	Location         string     `json:"location"`
	Description      string     `json:"description"`
	StartTime        time.Time  `json:"start_time"`
	EstimatedEndTime *time.Time `json:"estimated_end_time,omitempty"`
	DelayMinutes     int        `json:"delay_minutes,omitempty"`
}

// TrafficData is the structured traffic payload for a location. When the
// structured provider has no coverage, RoadConditions and Incidents are empty
// and Alerts carries news-derived notices instead.
type TrafficData struct {
	RoadConditions []RoadCondition   `json:"road_conditions"`
	Incidents      []TrafficIncident `json:"incidents"`
	Alerts         []TrafficAlert    `json:"traffic_alerts,omitempty"`
	Message        string            `json:"message,omitempty"`
	DataSource     string            `json:"data_source,omitempty"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// Service names used in ServiceError entries.
const (
	ServiceWeather = "weather"
	ServiceNews    = "news"
	ServiceTraffic = "traffic"
	ServiceAI      = "ai"
)

// ServiceError records one failed sub-lookup. Errors never abort the overall
// request; they accumulate in the response alongside fallback content.
type ServiceError struct {
	Service string `json:"service"`
	Message string `json:"message"`
}

// UserPreferences shape the generated plan prompt. Every field is optional;
// the prompt builder substitutes neutral defaults for missing values.
type UserPreferences struct {
	Name           string `json:"name,omitempty"`
	TravelMode     string `json:"travel_mode,omitempty"`
	FoodPreference string `json:"food_preference,omitempty"`
	ActivityType   string `json:"activity_type,omitempty"`
	Pace           string `json:"pace,omitempty"`
	Budget         string `json:"budget,omitempty"`
	Companions     string `json:"companions,omitempty"`
	Interests      string `json:"interests,omitempty"`
}

// Planning profiles.
const (
	ProfileStandard = "standard"
	ProfileChild    = "child"
	ProfileElderly  = "elderly"
)

// PlanRequest is the body of POST /api/plan. Exactly one of City or the
// Latitude/Longitude pair is required; coordinates win when both are present.
type PlanRequest struct {
	City        string           `json:"city,omitempty"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
	Profile     string           `json:"profile,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// PlanResponse aggregates everything the request produced, including partial
// failures. PartialSuccess is true when at least one of weather, news, or the
// plan text delivered content.
type PlanResponse struct {
	Weather               *WeatherReading `json:"weather"`
	News                  []NewsArticle   `json:"news"`
	TrafficData           *TrafficData    `json:"traffic_data,omitempty"`
	TrafficAlerts         []TrafficAlert  `json:"traffic_alerts"`
	HasHighPriorityAlerts bool            `json:"has_high_priority_alerts"`
	AIPlan                string          `json:"ai_plan"`
	City                  string          `json:"city"`
	Errors                []ServiceError  `json:"errors"`
	PartialSuccess        bool            `json:"partial_success"`
}

// ChatRequest is the body of POST /api/chat: a single-turn follow-up about a
// previously generated plan.
type ChatRequest struct {
	Message      string          `json:"message"`
	City         string          `json:"city"`
	Weather      *WeatherReading `json:"weather,omitempty"`
	News         []NewsArticle   `json:"news,omitempty"`
	PreviousPlan string          `json:"previous_plan,omitempty"`
}

// ChatResponse carries the follow-up answer. Error is set when the model was
// unavailable and Response holds canned text instead.
type ChatResponse struct {
	Response string `json:"response"`
	Error    bool   `json:"error"`
	Message  string `json:"message,omitempty"`
}

// HealthResponse is returned by the liveness endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
