package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/news"
	"github.com/daymate/daymate/internal/planner"
	"github.com/daymate/daymate/internal/traffic"
	"github.com/daymate/daymate/internal/weather"
)

type stubWeather struct {
	byCity        weather.Result
	byCoordinates weather.Result
	cityCalls     int
	coordCalls    int
}

func (s *stubWeather) ByCity(ctx context.Context, city string) weather.Result {
	s.cityCalls++
	return s.byCity
}

func (s *stubWeather) ByCoordinates(ctx context.Context, lat, lon float64) weather.Result {
	s.coordCalls++
	return s.byCoordinates
}

type stubNews struct {
	result   news.Result
	calls    int
	lastCity string
}

func (s *stubNews) Lookup(ctx context.Context, city string) news.Result {
	s.calls++
	s.lastCity = city
	return s.result
}

type stubTraffic struct {
	result   traffic.Result
	calls    int
	lastCity string
}

func (s *stubTraffic) Lookup(ctx context.Context, city string, lat, lon *float64) traffic.Result {
	s.calls++
	s.lastCity = city
	return s.result
}

type stubSynth struct {
	plan     planner.PlanResult
	followup planner.FollowupResult
	planIn   planner.PlanInput
	calls    int
}

func (s *stubSynth) GeneratePlan(ctx context.Context, in planner.PlanInput) planner.PlanResult {
	s.calls++
	s.planIn = in
	return s.plan
}

func (s *stubSynth) GenerateFollowup(ctx context.Context, weather *models.WeatherReading, articles []models.NewsArticle, city, previousPlan, userMessage string) planner.FollowupResult {
	return s.followup
}

func okReading(city string) weather.Result {
	return weather.Result{Reading: &models.WeatherReading{Temp: 18, Condition: "Clouds", CityName: city, Country: "GB"}}
}

func weatherFailure(msg string) weather.Result {
	return weather.Result{Err: &models.ServiceError{Service: models.ServiceWeather, Message: msg}}
}

func newTestAggregator(w *stubWeather, n *stubNews, tr *stubTraffic, s *stubSynth) *Aggregator {
	return NewAggregator(w, n, tr, s, 1, 100)
}

func fullStubs() (*stubWeather, *stubNews, *stubTraffic, *stubSynth) {
	w := &stubWeather{byCity: okReading("London"), byCoordinates: okReading("London")}
	n := &stubNews{result: news.Result{Articles: []models.NewsArticle{{Title: "Big story"}}}}
	tr := &stubTraffic{result: traffic.Result{Data: &models.TrafficData{Message: "ok"}}}
	s := &stubSynth{plan: planner.PlanResult{Plan: "a plan", AIGenerated: true}}
	return w, n, tr, s
}

// Invalid input fails fast: no provider is ever called.
func TestAggregator_Plan_InvalidInput(t *testing.T) {
	bad := 91.0
	lon := 0.0

	tests := []struct {
		name string
		req  models.PlanRequest
	}{
		{name: "empty request", req: models.PlanRequest{}},
		{name: "whitespace city", req: models.PlanRequest{City: "   "}},
		{name: "invalid characters", req: models.PlanRequest{City: "London<script>"}},
		{name: "latitude out of range", req: models.PlanRequest{Latitude: &bad, Longitude: &lon}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, n, tr, s := fullStubs()
			agg := newTestAggregator(w, n, tr, s)

			resp, err := agg.Plan(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Nil(t, resp)
			assert.Zero(t, w.cityCalls+w.coordCalls, "weather called on invalid input")
			assert.Zero(t, n.calls, "news called on invalid input")
			assert.Zero(t, tr.calls, "traffic called on invalid input")
			assert.Zero(t, s.calls, "planner called on invalid input")
		})
	}
}

func TestAggregator_Plan_AllProvidersSucceed(t *testing.T) {
	w, n, tr, s := fullStubs()
	agg := newTestAggregator(w, n, tr, s)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "london"})
	require.NoError(t, err)

	assert.Equal(t, "London", resp.City, "display city comes from the geocoded reading")
	assert.Equal(t, "London", n.lastCity)
	assert.Equal(t, "London", tr.lastCity)
	assert.True(t, resp.PartialSuccess)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, "a plan", resp.AIPlan)
}

// Weather failure is non-terminal: the lookup chain continues with the raw
// city name and the failure is recorded.
func TestAggregator_Plan_WeatherFailureDegrades(t *testing.T) {
	w, n, tr, s := fullStubs()
	w.byCity = weatherFailure("Weather service temporarily unavailable. Please try again.")
	agg := newTestAggregator(w, n, tr, s)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
	require.NoError(t, err)

	assert.Nil(t, resp.Weather)
	assert.Equal(t, "London", resp.City)
	assert.Equal(t, 1, n.calls)
	assert.Equal(t, 1, tr.calls)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, models.ServiceWeather, resp.Errors[0].Service)
	assert.True(t, resp.PartialSuccess, "news and plan still delivered")
	assert.Nil(t, s.planIn.Weather, "planner sees absent weather")
}

// Coordinates mode: weather failure leaves no city name, so the generic
// location label serves as the display city.
func TestAggregator_Plan_CoordinatesGenericLocation(t *testing.T) {
	w, n, tr, s := fullStubs()
	w.byCoordinates = weatherFailure("Weather service timed out. Please try again later.")
	agg := newTestAggregator(w, n, tr, s)

	lat, lon := 51.5, -0.12
	resp, err := agg.Plan(context.Background(), models.PlanRequest{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)

	assert.Equal(t, genericLocation, resp.City)
	assert.Equal(t, 1, w.coordCalls)
	assert.Zero(t, w.cityCalls)
}

// Coordinates win over the display name: a successful reverse geocode
// overrides whatever city string came with the request.
func TestAggregator_Plan_CoordinatesResolveCity(t *testing.T) {
	w, n, tr, s := fullStubs()
	w.byCoordinates = okReading("Camden")
	agg := newTestAggregator(w, n, tr, s)

	lat, lon := 51.54, -0.14
	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "ignored", Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)

	assert.Equal(t, "Camden", resp.City)
	assert.Equal(t, "Camden", n.lastCity)
}

func TestAggregator_Plan_PartialSuccess(t *testing.T) {
	tests := []struct {
		name        string
		weatherOK   bool
		articles    int
		plan        string
		wantPartial bool
	}{
		{"everything failed", false, 0, "", false},
		{"only weather", true, 0, "", true},
		{"only news", false, 2, "", true},
		{"only plan", false, 0, "fallback text", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, n, tr, s := fullStubs()
			if !tc.weatherOK {
				w.byCity = weatherFailure("down")
			}
			n.result = news.Result{
				Articles: make([]models.NewsArticle, tc.articles),
				Err:      &models.ServiceError{Service: models.ServiceNews, Message: "down"},
			}
			tr.result = traffic.Result{Err: &models.ServiceError{Service: models.ServiceTraffic, Message: "down"}}
			s.plan = planner.PlanResult{Plan: tc.plan, Err: &models.ServiceError{Service: models.ServiceAI, Message: "down"}}
			agg := newTestAggregator(w, n, tr, s)

			resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
			require.NoError(t, err)
			assert.Equal(t, tc.wantPartial, resp.PartialSuccess)
		})
	}
}

func TestAggregator_Plan_CollectsAllErrors(t *testing.T) {
	w, n, tr, s := fullStubs()
	w.byCity = weatherFailure("weather down")
	n.result = news.Result{
		Articles: []models.NewsArticle{{Title: "placeholder"}},
		Err:      &models.ServiceError{Service: models.ServiceNews, Message: "news down"},
	}
	tr.result = traffic.Result{Err: &models.ServiceError{Service: models.ServiceTraffic, Message: "traffic down"}}
	s.plan = planner.PlanResult{Plan: "fallback", Err: &models.ServiceError{Service: models.ServiceAI, Message: "ai down"}}
	agg := newTestAggregator(w, n, tr, s)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
	require.NoError(t, err)

	require.Len(t, resp.Errors, 4)
	services := []string{resp.Errors[0].Service, resp.Errors[1].Service, resp.Errors[2].Service, resp.Errors[3].Service}
	assert.ElementsMatch(t, []string{"weather", "news", "traffic", "ai"}, services)
	assert.True(t, resp.PartialSuccess, "placeholder news and fallback plan still count")
}

func TestAggregator_Plan_AlertSynthesis(t *testing.T) {
	w, n, tr, s := fullStubs()
	tr.result = traffic.Result{Data: &models.TrafficData{
		RoadConditions: []models.RoadCondition{
			{RoadName: "A40", CongestionLevel: models.CongestionJammed, SpeedKmh: 8, NormalSpeedKmh: 90},
			{RoadName: "A1", CongestionLevel: models.CongestionHeavy, SpeedKmh: 30, NormalSpeedKmh: 90},
			{RoadName: "B5", CongestionLevel: models.CongestionFree, SpeedKmh: 88, NormalSpeedKmh: 90},
		},
		Incidents: []models.TrafficIncident{
			{IncidentType: "road_closure", Severity: models.SeverityCritical, Description: "bridge shut"},
			{IncidentType: "construction", Severity: models.SeverityMinor, Description: "lane works"},
		},
		DataSource: "TomTom Traffic API",
	}}
	agg := newTestAggregator(w, n, tr, s)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
	require.NoError(t, err)

	// Free-flowing roads produce no alert; jammed and heavy do, plus both
	// incidents. High priority sorts first.
	require.Len(t, resp.TrafficAlerts, 4)
	assert.True(t, resp.HasHighPriorityAlerts)
	for _, a := range resp.TrafficAlerts[:2] {
		assert.Equal(t, models.PriorityHigh, a.Priority)
	}

	var closure *models.TrafficAlert
	for i := range resp.TrafficAlerts {
		if resp.TrafficAlerts[i].Description == "bridge shut" {
			closure = &resp.TrafficAlerts[i]
		}
	}
	require.NotNil(t, closure)
	assert.Equal(t, models.AlertTypeEmergency, closure.AlertType)
	assert.Equal(t, models.PriorityHigh, closure.Priority)

	assert.Equal(t, resp.TrafficAlerts, s.planIn.Alerts, "planner receives the synthesized alerts")
}

// Only congestion at heavy or worse is alert-worthy; jammed alone escalates
// to high priority.
func TestDeriveAlerts_CongestionThreshold(t *testing.T) {
	data := &models.TrafficData{
		RoadConditions: []models.RoadCondition{
			{RoadName: "M25", CongestionLevel: models.CongestionJammed, SpeedKmh: 5, NormalSpeedKmh: 100},
			{RoadName: "A10", CongestionLevel: models.CongestionHeavy, SpeedKmh: 35, NormalSpeedKmh: 100},
			{RoadName: "A12", CongestionLevel: models.CongestionModerate, SpeedKmh: 60, NormalSpeedKmh: 100},
			{RoadName: "B100", CongestionLevel: models.CongestionLight, SpeedKmh: 80, NormalSpeedKmh: 100},
			{RoadName: "B200", CongestionLevel: models.CongestionFree, SpeedKmh: 98, NormalSpeedKmh: 100},
			{RoadName: "C1", CongestionLevel: "unknown", SpeedKmh: 50, NormalSpeedKmh: 100},
		},
		DataSource: "TomTom Traffic API",
	}

	alerts := deriveAlerts(data)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Severe congestion on M25", alerts[0].Title)
	assert.Equal(t, models.PriorityHigh, alerts[0].Priority)
	assert.Equal(t, "Heavy traffic on A10", alerts[1].Title)
	assert.Equal(t, models.PriorityMedium, alerts[1].Priority)
}

// News-fallback traffic payloads already carry derived alerts; they pass
// through unchanged.
func TestAggregator_Plan_NewsFallbackAlertsPassThrough(t *testing.T) {
	w, n, tr, s := fullStubs()
	derived := []models.TrafficAlert{{Title: "Accident on ring road", AlertType: models.AlertTypeTraffic, Priority: models.PriorityMedium}}
	tr.result = traffic.Result{Data: &models.TrafficData{Alerts: derived, DataSource: "News RSS fallback"}}
	agg := newTestAggregator(w, n, tr, s)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
	require.NoError(t, err)
	assert.Equal(t, derived, resp.TrafficAlerts)
	assert.False(t, resp.HasHighPriorityAlerts)
}

func TestAggregator_Plan_ProfileDefaulted(t *testing.T) {
	w, n, tr, s := fullStubs()
	agg := newTestAggregator(w, n, tr, s)

	_, err := agg.Plan(context.Background(), models.PlanRequest{City: "London", Profile: "robot"})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileStandard, s.planIn.Profile)

	_, err = agg.Plan(context.Background(), models.PlanRequest{City: "London", Profile: models.ProfileElderly})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileElderly, s.planIn.Profile)
}

// Full pipeline with the real synthesizer and no model credential: the plan
// comes from the rule-based fallback and reflects the rainy London weather.
func TestAggregator_Plan_EndToEnd_FallbackPlan(t *testing.T) {
	w := &stubWeather{byCity: weather.Result{Reading: &models.WeatherReading{
		Temp: 15, Condition: "Rain", Description: "slight rain", CityName: "London", Country: "GB",
	}}}
	n := &stubNews{result: news.Result{Articles: []models.NewsArticle{{Title: "Thames path reopens"}}}}
	tr := &stubTraffic{result: traffic.Result{Data: &models.TrafficData{Message: "ok"}}}
	synth := planner.NewSynthesizer(planner.NewGeminiClient("", "", 0))
	agg := NewAggregator(w, n, tr, synth, 1, 100)

	resp, err := agg.Plan(context.Background(), models.PlanRequest{City: "London"})
	require.NoError(t, err)

	assert.True(t, resp.PartialSuccess)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, models.ServiceAI, resp.Errors[0].Service)
	assert.Contains(t, resp.AIPlan, "umbrella")
	assert.Contains(t, resp.AIPlan, "London")
}

// Coordinates-only request where the reading resolves a city name: the
// resolved name becomes the response city.
func TestAggregator_Plan_EndToEnd_CoordinatesResolveDisplayCity(t *testing.T) {
	w := &stubWeather{byCoordinates: weather.Result{Reading: &models.WeatherReading{
		Temp: 12, Condition: "Clouds", CityName: "London", Country: "GB",
	}}}
	n := &stubNews{result: news.Result{Articles: []models.NewsArticle{{Title: "story"}}}}
	tr := &stubTraffic{result: traffic.Result{Data: &models.TrafficData{}}}
	synth := planner.NewSynthesizer(planner.NewGeminiClient("", "", 0))
	agg := NewAggregator(w, n, tr, synth, 1, 100)

	lat, lon := 51.5074, -0.1278
	resp, err := agg.Plan(context.Background(), models.PlanRequest{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	assert.Equal(t, "London", resp.City)
}

func TestAggregator_Chat(t *testing.T) {
	w, n, tr, s := fullStubs()
	s.followup = planner.FollowupResult{Response: "Try the market instead."}
	agg := newTestAggregator(w, n, tr, s)

	resp := agg.Chat(context.Background(), models.ChatRequest{Message: "rainy options?", City: "London"})
	assert.Equal(t, "Try the market instead.", resp.Response)
	assert.False(t, resp.Error)

	s.followup = planner.FollowupResult{
		Response: "canned",
		Err:      &models.ServiceError{Service: models.ServiceAI, Message: "AI API key not configured."},
	}
	resp = agg.Chat(context.Background(), models.ChatRequest{Message: "hi"})
	assert.True(t, resp.Error)
	assert.Equal(t, "AI API key not configured.", resp.Message)
	assert.Equal(t, "canned", resp.Response)
}
