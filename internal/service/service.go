package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/news"
	"github.com/daymate/daymate/internal/observability"
	"github.com/daymate/daymate/internal/planner"
	"github.com/daymate/daymate/internal/traffic"
	"github.com/daymate/daymate/internal/validation"
	"github.com/daymate/daymate/internal/weather"
)

// genericLocation is the display city used when weather fails and no city was
// supplied.
const genericLocation = "Your Location"

// ErrInvalidRequest marks client-input failures. It is the only error Plan
// ever returns; everything else degrades into ServiceError entries.
var ErrInvalidRequest = errors.New("invalid request")

// weatherLookup resolves a location to a current-weather reading.
// Satisfied by *weather.Service.
type weatherLookup interface {
	ByCity(ctx context.Context, city string) weather.Result
	ByCoordinates(ctx context.Context, lat, lon float64) weather.Result
}

// newsLookup resolves a city to articles. Satisfied by *news.Service.
type newsLookup interface {
	Lookup(ctx context.Context, city string) news.Result
}

// trafficLookup resolves a city to traffic data. Satisfied by *traffic.Service.
type trafficLookup interface {
	Lookup(ctx context.Context, city string, lat, lon *float64) traffic.Result
}

// planSynth generates plan and follow-up text. Satisfied by *planner.Synthesizer.
type planSynth interface {
	GeneratePlan(ctx context.Context, in planner.PlanInput) planner.PlanResult
	GenerateFollowup(ctx context.Context, weather *models.WeatherReading, articles []models.NewsArticle, city, previousPlan, userMessage string) planner.FollowupResult
}

// Aggregator is the request orchestrator: it sequences the weather, news, and
// traffic lookups, collects partial failures as structured errors, and shapes
// the unified response. Every lookup converts its own failures into result
// values, so Plan is a pure reducer over already-caught results.
type Aggregator struct {
	weather weatherLookup
	news    newsLookup
	traffic trafficLookup
	synth   planSynth

	cityMinLength int
	cityMaxLength int
}

// NewAggregator creates the orchestrator over the four collaborators.
func NewAggregator(w weatherLookup, n newsLookup, t trafficLookup, s planSynth, cityMinLength, cityMaxLength int) *Aggregator {
	if cityMinLength <= 0 {
		cityMinLength = 1
	}
	if cityMaxLength <= 0 {
		cityMaxLength = 100
	}
	return &Aggregator{
		weather:       w,
		news:          n,
		traffic:       t,
		synth:         s,
		cityMinLength: cityMinLength,
		cityMaxLength: cityMaxLength,
	}
}

// Plan produces one aggregate response for the request. It returns an error
// only when the input supplies neither a city nor a coordinate pair (or the
// values are out of range); that check happens before any provider call.
func (a *Aggregator) Plan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error) {
	useCoordinates := req.Latitude != nil && req.Longitude != nil
	city := strings.TrimSpace(req.City)

	if !useCoordinates && city == "" {
		return nil, fmt.Errorf("%w: either city name or coordinates (latitude/longitude) are required", ErrInvalidRequest)
	}
	if useCoordinates {
		if err := validation.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	} else {
		validated, err := validation.ValidateCity(city, a.cityMinLength, a.cityMaxLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		city = validated
	}

	logger := observability.FromContext(ctx)
	var serviceErrors []models.ServiceError

	// Weather runs first: its resolved name becomes the display city for the
	// news and traffic lookups.
	var weatherResult weather.Result
	if useCoordinates {
		weatherResult = a.weather.ByCoordinates(ctx, *req.Latitude, *req.Longitude)
	} else {
		weatherResult = a.weather.ByCity(ctx, city)
	}

	displayCity := city
	if weatherResult.OK() && weatherResult.Reading.CityName != "" {
		displayCity = weatherResult.Reading.CityName
	}
	if displayCity == "" {
		displayCity = genericLocation
	}
	if !weatherResult.OK() {
		serviceErrors = append(serviceErrors, *weatherResult.Err)
		if logger != nil {
			logger.Info("weather lookup failed", zap.String("city", displayCity), zap.String("reason", weatherResult.Err.Message))
		}
	}

	// News and traffic are independent of each other; run them concurrently.
	// Each lookup catches its own failures, so the goroutines never return
	// errors and one cannot cancel the other.
	var newsResult news.Result
	var trafficResult traffic.Result
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		newsResult = a.news.Lookup(gCtx, displayCity)
		return nil
	})
	g.Go(func() error {
		var lat, lon *float64
		if useCoordinates {
			lat, lon = req.Latitude, req.Longitude
		}
		trafficResult = a.traffic.Lookup(gCtx, displayCity, lat, lon)
		return nil
	})
	_ = g.Wait()

	if newsResult.Err != nil {
		serviceErrors = append(serviceErrors, *newsResult.Err)
	}
	if trafficResult.Err != nil {
		serviceErrors = append(serviceErrors, *trafficResult.Err)
	}

	alerts := deriveAlerts(trafficResult.Data)
	hasHighPriority := false
	for _, alert := range alerts {
		if alert.Priority == models.PriorityHigh {
			hasHighPriority = true
			break
		}
	}

	planResult := a.synth.GeneratePlan(ctx, planner.PlanInput{
		Weather:     weatherResult.Reading,
		Articles:    newsResult.Articles,
		City:        displayCity,
		Profile:     profileOrDefault(req.Profile),
		Preferences: req.Preferences,
		Alerts:      alerts,
	})
	if planResult.Err != nil {
		serviceErrors = append(serviceErrors, *planResult.Err)
	}

	resp := &models.PlanResponse{
		Weather:               weatherResult.Reading,
		News:                  newsResult.Articles,
		TrafficData:           trafficResult.Data,
		TrafficAlerts:         alerts,
		HasHighPriorityAlerts: hasHighPriority,
		AIPlan:                planResult.Plan,
		City:                  displayCity,
		Errors:                serviceErrors,
		PartialSuccess:        weatherResult.OK() || len(newsResult.Articles) > 0 || planResult.Plan != "",
	}
	if resp.Errors == nil {
		resp.Errors = []models.ServiceError{}
	}
	if resp.TrafficAlerts == nil {
		resp.TrafficAlerts = []models.TrafficAlert{}
	}
	return resp, nil
}

// Chat answers a stateless single-turn follow-up about a prior plan.
func (a *Aggregator) Chat(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	result := a.synth.GenerateFollowup(ctx, req.Weather, req.News, req.City, req.PreviousPlan, req.Message)
	resp := models.ChatResponse{Response: result.Response}
	if result.Err != nil {
		resp.Error = true
		resp.Message = result.Err.Message
	}
	return resp
}

// deriveAlerts synthesizes the alert list from a traffic payload. Structured
// road conditions and incidents are converted by severity; on the news
// fallback path the payload already carries derived alerts, used directly.
func deriveAlerts(data *models.TrafficData) []models.TrafficAlert {
	if data == nil {
		return nil
	}
	if len(data.RoadConditions) == 0 && len(data.Incidents) == 0 {
		return data.Alerts
	}

	var alerts []models.TrafficAlert
	for _, rc := range data.RoadConditions {
		rank := models.CongestionRank(rc.CongestionLevel)
		if rank > models.CongestionRank(models.CongestionHeavy) {
			continue
		}
		title := fmt.Sprintf("Heavy traffic on %s", rc.RoadName)
		priority := models.PriorityMedium
		if rank == models.CongestionRank(models.CongestionJammed) {
			title = fmt.Sprintf("Severe congestion on %s", rc.RoadName)
			priority = models.PriorityHigh
		}
		alerts = append(alerts, models.TrafficAlert{
			Title:       title,
			Description: fmt.Sprintf("Traffic at %.0f km/h, normally %.0f km/h.", rc.SpeedKmh, rc.NormalSpeedKmh),
			Source:      data.DataSource,
			AlertType:   models.AlertTypeTraffic,
			Priority:    priority,
		})
	}

	for _, inc := range data.Incidents {
		alertType := models.AlertTypeTraffic
		if inc.IncidentType == "accident" || inc.IncidentType == "road_closure" {
			alertType = models.AlertTypeEmergency
		}
		priority := models.PriorityMedium
		if inc.Severity == models.SeverityCritical {
			priority = models.PriorityHigh
		}
		alerts = append(alerts, models.TrafficAlert{
			Title:       fmt.Sprintf("%s: %s", strings.ReplaceAll(inc.IncidentType, "_", " "), inc.Description),
			Description: inc.Description,
			Source:      data.DataSource,
			AlertType:   alertType,
			Priority:    priority,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority == models.PriorityHigh && alerts[j].Priority != models.PriorityHigh
	})
	return alerts
}

func profileOrDefault(profile string) string {
	switch profile {
	case models.ProfileChild, models.ProfileElderly:
		return profile
	default:
		return models.ProfileStandard
	}
}
