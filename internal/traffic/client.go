package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

var (
	ErrNoAPIKey        = errors.New("traffic API key not configured")
	ErrLocationUnknown = errors.New("location not found")
	ErrUpstreamFailure = errors.New("traffic upstream failure")
	ErrTimeout         = errors.New("traffic provider timed out")
)

const unknownRoad = "Unknown Road"

// Client fetches flow segments and incidents from the TomTom traffic APIs.
type Client struct {
	apiKey      string
	geocodeURL  string
	flowURL     string
	incidentURL string
	httpClient  *http.Client
}

// NewClient creates a traffic client. An empty apiKey is allowed; calls then
// fail with ErrNoAPIKey so the lookup can degrade to news-derived alerts.
func NewClient(apiKey, geocodeURL, flowURL, incidentURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:      apiKey,
		geocodeURL:  geocodeURL,
		flowURL:     flowURL,
		incidentURL: incidentURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type tomtomGeocodeResponse struct {
	Results []struct {
		Position struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"position"`
	} `json:"results"`
}

// Geocode resolves a city name to coordinates via TomTom search, falling back
// to the representative-coordinates table for country-level names.
func (c *Client) Geocode(ctx context.Context, city string) (lat, lon float64, err error) {
	if c.apiKey == "" {
		return 0, 0, ErrNoAPIKey
	}

	endpoint := fmt.Sprintf("%s/%s.json", c.geocodeURL, url.PathEscape(city))
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("limit", "1")

	body, err := c.get(ctx, endpoint, params, "geocode")
	if err == nil {
		var resp tomtomGeocodeResponse
		if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && len(resp.Results) > 0 {
			return resp.Results[0].Position.Lat, resp.Results[0].Position.Lon, nil
		}
	}

	if rLat, rLon, ok := representativeCoordsFor(city); ok {
		return rLat, rLon, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrLocationUnknown, city)
}

type flowResponse struct {
	FlowSegmentData struct {
		StreetName    string  `json:"streetName"`
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
	} `json:"flowSegmentData"`
}

// FlowSegment fetches the road segment nearest the coordinates and classifies
// its congestion from the current/free-flow speed ratio.
func (c *Client) FlowSegment(ctx context.Context, lat, lon float64) (models.RoadCondition, error) {
	if c.apiKey == "" {
		return models.RoadCondition{}, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("point", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, c.flowURL, params, "flow")
	if err != nil {
		return models.RoadCondition{}, err
	}

	var resp flowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RoadCondition{}, fmt.Errorf("%w: parse flow data: %v", ErrUpstreamFailure, err)
	}

	seg := resp.FlowSegmentData
	roadName := seg.StreetName
	if roadName == "" {
		roadName = unknownRoad
	}
	return models.RoadCondition{
		RoadName:        roadName,
		CongestionLevel: CongestionLevel(seg.CurrentSpeed, seg.FreeFlowSpeed),
		SpeedKmh:        seg.CurrentSpeed,
		NormalSpeedKmh:  seg.FreeFlowSpeed,
		LastUpdated:     time.Now(),
	}, nil
}

// CongestionLevel classifies a road segment by the ratio of current to
// free-flow speed. Thresholds use >= comparisons, so exact boundary values
// resolve to the less congested bucket. A non-positive free-flow speed
// classifies as free.
func CongestionLevel(currentSpeed, freeFlowSpeed float64) string {
	if freeFlowSpeed <= 0 {
		return models.CongestionFree
	}
	ratio := currentSpeed / freeFlowSpeed
	switch {
	case ratio >= 0.9:
		return models.CongestionFree
	case ratio >= 0.7:
		return models.CongestionLight
	case ratio >= 0.5:
		return models.CongestionModerate
	case ratio >= 0.3:
		return models.CongestionHeavy
	default:
		return models.CongestionJammed
	}
}

type incidentResponse struct {
	Incidents []struct {
		Properties struct {
			IconCategory int    `json:"iconCategory"`
			StartTime    string `json:"startTime"`
			EndTime      string `json:"endTime"`
			Description  string `json:"description"`
			Delay        int    `json:"delay"`
		} `json:"properties"`
	} `json:"incidents"`
}

// Incidents fetches incidents in a bounding box around the coordinates,
// capped at 5. A failure here is non-terminal for the traffic lookup; the
// flow data still stands on its own.
func (c *Client) Incidents(ctx context.Context, lat, lon float64) ([]models.TrafficIncident, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", lon-0.1, lat-0.1, lon+0.1, lat+0.1))
	params.Set("fields", "{incidents{properties{iconCategory,startTime,endTime,description,delay}}}")
	params.Set("language", "en-US")

	body, err := c.get(ctx, c.incidentURL, params, "incidents")
	if err != nil {
		return nil, err
	}

	var resp incidentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse incident data: %v", ErrUpstreamFailure, err)
	}

	var incidents []models.TrafficIncident
	for i, inc := range resp.Incidents {
		if i >= 5 {
			break
		}
		p := inc.Properties

		description := p.Description
		if description == "" {
			description = "Traffic incident"
		}

		incident := models.TrafficIncident{
			IncidentType: incidentType(p.IconCategory),
			Severity:     IncidentSeverity(p.Delay),
			RoadName:     unknownRoad, // incident payloads rarely carry road names
			Location:     fmt.Sprintf("Lat: %.4f, Lon: %.4f", lat, lon),
			Description:  description,
			StartTime:    parseIncidentTime(p.StartTime),
			DelayMinutes: p.Delay,
		}
		if p.EndTime != "" {
			end := parseIncidentTime(p.EndTime)
			incident.EstimatedEndTime = &end
		}
		incidents = append(incidents, incident)
	}
	return incidents, nil
}

// incidentType maps TomTom icon categories onto the incident taxonomy.
func incidentType(iconCategory int) string {
	switch {
	case iconCategory >= 0 && iconCategory <= 3:
		return "accident"
	case iconCategory >= 4 && iconCategory <= 6:
		return "construction"
	case iconCategory == 7 || iconCategory == 8:
		return "road_closure"
	default:
		return "incident"
	}
}

// IncidentSeverity maps a delay in minutes to a severity bucket.
func IncidentSeverity(delayMinutes int) string {
	switch {
	case delayMinutes > 30:
		return models.SeverityCritical
	case delayMinutes > 15:
		return models.SeverityMajor
	default:
		return models.SeverityMinor
	}
}

func parseIncidentTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

// get performs a GET with metrics and uniform error classification.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, op string) ([]byte, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid traffic API URL: %w", err)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		observability.ObserveProviderCall(models.ServiceTraffic, op+"_error", duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ObserveProviderCall(models.ServiceTraffic, op+"_error", duration)
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	observability.ObserveProviderCall(models.ServiceTraffic, op+"_success", duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
