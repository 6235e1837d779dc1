package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

var (
	ErrCityNotFound    = errors.New("city not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrTimeout         = errors.New("provider timed out")
	ErrBadResponse     = errors.New("malformed provider response")
)

// userAgent is sent on Nominatim requests, which reject anonymous clients.
const userAgent = "DayMate/1.0"

// Client talks to the Open-Meteo geocoding and forecast APIs plus Nominatim
// for reverse geocoding. None of the three require credentials.
type Client struct {
	geocodeURL  string
	forecastURL string
	reverseURL  string
	httpClient  *http.Client
}

// NewClient creates a weather client with the given endpoint URLs and a
// per-call timeout.
func NewClient(geocodeURL, forecastURL, reverseURL string, timeout time.Duration) *Client {
	return &Client{
		geocodeURL:  geocodeURL,
		forecastURL: forecastURL,
		reverseURL:  reverseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Place is a resolved location name with coordinates.
type Place struct {
	Lat      float64
	Lon      float64
	CityName string
	Country  string
}

type geocodeResponse struct {
	Results []struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Name        string  `json:"name"`
		Country     string  `json:"country"`
		CountryCode string  `json:"country_code"`
	} `json:"results"`
}

// Geocode resolves a city name to coordinates via the Open-Meteo geocoding API.
// Returns ErrCityNotFound when the provider has no match.
func (c *Client) Geocode(ctx context.Context, city string) (Place, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	body, err := c.get(ctx, c.geocodeURL, params, nil)
	if err != nil {
		return Place{}, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(resp.Results) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}

	r := resp.Results[0]
	country := r.CountryCode
	if country == "" {
		country = r.Country
	}
	return Place{Lat: r.Latitude, Lon: r.Longitude, CityName: r.Name, Country: country}, nil
}

type reverseResponse struct {
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		Country      string `json:"country"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

// ReverseGeocode resolves coordinates to a display name via Nominatim.
// Best-effort: callers should fall back to a generic label on error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("format", "json")
	params.Set("zoom", "10")

	body, err := c.get(ctx, c.reverseURL, params, map[string]string{"User-Agent": userAgent})
	if err != nil {
		return Place{}, err
	}

	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	a := resp.Address
	name := firstNonEmpty(a.City, a.Town, a.Village, a.Municipality, a.County)
	if name == "" {
		return Place{}, fmt.Errorf("%w: no place name for %v,%v", ErrCityNotFound, lat, lon)
	}
	country := strings.ToUpper(a.CountryCode)
	if country == "" {
		country = a.Country
	}
	return Place{Lat: lat, Lon: lon, CityName: name, Country: country}, nil
}

type forecastResponse struct {
	Current struct {
		Temperature  float64 `json:"temperature_2m"`
		Humidity     int     `json:"relative_humidity_2m"`
		ApparentTemp float64 `json:"apparent_temperature"`
		WeatherCode  int     `json:"weather_code"`
		WindSpeed    float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Current fetches current conditions for coordinates from the Open-Meteo
// forecast API and normalizes them: WMO code mapped to a display condition,
// wind converted from km/h to m/s, temperatures rounded to one decimal.
func (c *Client) Current(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	params.Set("timezone", "auto")

	body, err := c.get(ctx, c.forecastURL, params, nil)
	if err != nil {
		return models.WeatherReading{}, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.WeatherReading{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	cond := conditionForCode(resp.Current.WeatherCode)
	return models.WeatherReading{
		Temp:        roundTenth(resp.Current.Temperature),
		FeelsLike:   roundTenth(resp.Current.ApparentTemp),
		Humidity:    resp.Current.Humidity,
		Condition:   cond.Category,
		Description: cond.Description,
		Icon:        cond.Icon,
		WindSpeed:   roundTenth(resp.Current.WindSpeed / 3.6),
	}, nil
}

// get performs a GET with metrics and uniform error classification.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		observability.ObserveProviderCall(models.ServiceWeather, "error", duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ObserveProviderCall(models.ServiceWeather, "error", duration)
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	observability.ObserveProviderCall(models.ServiceWeather, "success", duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
