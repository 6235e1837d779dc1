package weather

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

// fallbackLabel is the display name used when coordinates cannot be reverse
// geocoded to a real place name.
const fallbackLabel = "Your Location"

// geocoder is the subset of Client used by the Service. Split out for tests.
type geocoder interface {
	Geocode(ctx context.Context, city string) (Place, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
	Current(ctx context.Context, lat, lon float64) (models.WeatherReading, error)
}

// Result is the tagged outcome of a weather lookup. Exactly one of Reading or
// Err is set: a nil Reading means the lookup failed and Err explains why.
type Result struct {
	Reading *models.WeatherReading
	Err     *models.ServiceError
}

// OK reports whether the lookup produced a reading.
func (r Result) OK() bool {
	return r.Reading != nil
}

// Service resolves a city name or coordinate pair to a normalized current
// weather reading. Failures are converted to ServiceError values, never
// returned as Go errors: absence of weather is a first-class state.
type Service struct {
	client geocoder
}

// NewService creates a weather lookup service over the given client.
func NewService(client geocoder) *Service {
	return &Service{client: client}
}

// ByCity geocodes the name, then fetches current conditions. Geocoding failure
// is terminal for the lookup since no coordinates can be obtained.
func (s *Service) ByCity(ctx context.Context, city string) Result {
	place, err := s.client.Geocode(ctx, city)
	if err != nil {
		return failure(geocodeMessage(city, err))
	}

	reading, err := s.client.Current(ctx, place.Lat, place.Lon)
	if err != nil {
		return failure(currentMessage(err))
	}

	reading.CityName = place.CityName
	reading.Country = place.Country
	return Result{Reading: &reading}
}

// ByCoordinates reverse geocodes best-effort for a display name, then fetches
// current conditions. Reverse geocoding failure is non-terminal: coordinates
// are already known, so the reading proceeds under a generic label.
func (s *Service) ByCoordinates(ctx context.Context, lat, lon float64) Result {
	cityName := fallbackLabel
	country := ""
	if place, err := s.client.ReverseGeocode(ctx, lat, lon); err == nil {
		cityName = place.CityName
		country = place.Country
	} else {
		observability.RecordFallback(models.ServiceWeather, "generic_location")
		if logger := observability.FromContext(ctx); logger != nil {
			logger.Debug("reverse geocode failed, using generic label", zap.Error(err))
		}
	}

	reading, err := s.client.Current(ctx, lat, lon)
	if err != nil {
		return failure(currentMessage(err))
	}

	reading.CityName = cityName
	reading.Country = country
	return Result{Reading: &reading}
}

func failure(message string) Result {
	return Result{Err: &models.ServiceError{Service: models.ServiceWeather, Message: message}}
}

// geocodeMessage maps a geocoding error to the user-facing message.
func geocodeMessage(city string, err error) string {
	switch {
	case errors.Is(err, ErrCityNotFound):
		return fmt.Sprintf("City '%s' not found. Please check the spelling and try again.", city)
	case errors.Is(err, ErrTimeout):
		return "Geocoding service timed out"
	default:
		return "Geocoding service unavailable"
	}
}

// currentMessage maps a forecast fetch error to the user-facing message.
func currentMessage(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "Weather service timed out. Please try again later."
	case errors.Is(err, ErrBadResponse):
		return "Error parsing weather data. Please try again."
	default:
		return "Weather service temporarily unavailable. Please try again."
	}
}
