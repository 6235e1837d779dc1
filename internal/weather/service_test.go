package weather

import (
	"context"
	"testing"

	"github.com/daymate/daymate/internal/models"
)

type mockGeocoder struct {
	place      Place
	geocodeErr error
	reverseErr error
	reading    models.WeatherReading
	currentErr error
}

func (m *mockGeocoder) Geocode(ctx context.Context, city string) (Place, error) {
	return m.place, m.geocodeErr
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	return m.place, m.reverseErr
}

func (m *mockGeocoder) Current(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	return m.reading, m.currentErr
}

func TestService_ByCity_Success(t *testing.T) {
	svc := NewService(&mockGeocoder{
		place:   Place{Lat: 51.5, Lon: -0.12, CityName: "London", Country: "GB"},
		reading: models.WeatherReading{Temp: 18.5, Condition: "Clouds"},
	})

	result := svc.ByCity(context.Background(), "london")
	if !result.OK() {
		t.Fatalf("expected success, got error %+v", result.Err)
	}
	if result.Reading.CityName != "London" || result.Reading.Country != "GB" {
		t.Errorf("reading location = %q/%q, want London/GB", result.Reading.CityName, result.Reading.Country)
	}
	if result.Reading.Temp != 18.5 {
		t.Errorf("Temp = %v, want 18.5", result.Reading.Temp)
	}
}

// Geocoding failure is terminal for a by-city lookup: there are no coordinates
// to fall back on.
func TestService_ByCity_GeocodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "city not found",
			err:     ErrCityNotFound,
			wantMsg: "City 'Atlantis' not found. Please check the spelling and try again.",
		},
		{
			name:    "timeout",
			err:     ErrTimeout,
			wantMsg: "Geocoding service timed out",
		},
		{
			name:    "upstream",
			err:     ErrUpstreamFailure,
			wantMsg: "Geocoding service unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&mockGeocoder{geocodeErr: tc.err})
			result := svc.ByCity(context.Background(), "Atlantis")
			if result.OK() {
				t.Fatal("expected failure")
			}
			if result.Err.Service != models.ServiceWeather {
				t.Errorf("Service = %q, want weather", result.Err.Service)
			}
			if result.Err.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", result.Err.Message, tc.wantMsg)
			}
		})
	}
}

// Reverse geocoding failure is non-terminal for a by-coordinates lookup: the
// reading proceeds under a generic display name.
func TestService_ByCoordinates_ReverseFailureFallsBack(t *testing.T) {
	svc := NewService(&mockGeocoder{
		reverseErr: ErrUpstreamFailure,
		reading:    models.WeatherReading{Temp: 12.0, Condition: "Clear"},
	})

	result := svc.ByCoordinates(context.Background(), 51.5, -0.12)
	if !result.OK() {
		t.Fatalf("expected success, got error %+v", result.Err)
	}
	if result.Reading.CityName != fallbackLabel {
		t.Errorf("CityName = %q, want %q", result.Reading.CityName, fallbackLabel)
	}
}

func TestService_ByCoordinates_CurrentFailure(t *testing.T) {
	svc := NewService(&mockGeocoder{
		place:      Place{CityName: "London", Country: "GB"},
		currentErr: ErrTimeout,
	})

	result := svc.ByCoordinates(context.Background(), 51.5, -0.12)
	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Message != "Weather service timed out. Please try again later." {
		t.Errorf("Message = %q", result.Err.Message)
	}
}
