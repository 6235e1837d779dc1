package traffic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daymate/daymate/internal/models"
)

// Boundary values resolve to the less congested bucket (>= comparisons).
func TestCongestionLevel(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		freeFlow float64
		want     string
	}{
		{"well above free threshold", 95, 100, models.CongestionFree},
		{"free boundary", 90, 100, models.CongestionFree},
		{"light", 75, 100, models.CongestionLight},
		{"light boundary", 70, 100, models.CongestionLight},
		{"moderate", 55, 100, models.CongestionModerate},
		{"moderate boundary", 50, 100, models.CongestionModerate},
		{"heavy", 35, 100, models.CongestionHeavy},
		{"heavy boundary", 30, 100, models.CongestionHeavy},
		{"jammed", 10, 100, models.CongestionJammed},
		{"zero free flow", 50, 0, models.CongestionFree},
		{"negative free flow", 50, -1, models.CongestionFree},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CongestionLevel(tc.current, tc.freeFlow)
			if got != tc.want {
				t.Fatalf("CongestionLevel(%v, %v) = %q, want %q", tc.current, tc.freeFlow, got, tc.want)
			}
		})
	}
}

func TestIncidentSeverity(t *testing.T) {
	tests := []struct {
		delay int
		want  string
	}{
		{0, models.SeverityMinor},
		{15, models.SeverityMinor},
		{16, models.SeverityMajor},
		{30, models.SeverityMajor},
		{31, models.SeverityCritical},
	}
	for _, tc := range tests {
		if got := IncidentSeverity(tc.delay); got != tc.want {
			t.Errorf("IncidentSeverity(%d) = %q, want %q", tc.delay, got, tc.want)
		}
	}
}

func TestIncidentType(t *testing.T) {
	tests := []struct {
		icon int
		want string
	}{
		{0, "accident"},
		{3, "accident"},
		{4, "construction"},
		{6, "construction"},
		{7, "road_closure"},
		{8, "road_closure"},
		{9, "incident"},
	}
	for _, tc := range tests {
		if got := incidentType(tc.icon); got != tc.want {
			t.Errorf("incidentType(%d) = %q, want %q", tc.icon, got, tc.want)
		}
	}
}

func TestClient_Geocode_RepresentativeFallback(t *testing.T) {
	// Geocoder returns no match; country-level names fall back to the table.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, server.URL, server.URL, 5*time.Second)
	lat, lon, err := c.Geocode(context.Background(), "UK")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if lat != 51.5074 || lon != -0.1278 {
		t.Errorf("got %v,%v, want London representative coords", lat, lon)
	}
}

func TestClient_Geocode_NoKey(t *testing.T) {
	c := NewClient("", "http://unused.invalid", "http://unused.invalid", "http://unused.invalid", 5*time.Second)
	_, _, err := c.Geocode(context.Background(), "London")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestClient_FlowSegment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flowSegmentData":{"streetName":"A40","currentSpeed":40,"freeFlowSpeed":100}}`))
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, server.URL, server.URL, 5*time.Second)
	rc, err := c.FlowSegment(context.Background(), 51.5, -0.12)
	if err != nil {
		t.Fatalf("FlowSegment: %v", err)
	}
	if rc.RoadName != "A40" {
		t.Errorf("RoadName = %q", rc.RoadName)
	}
	if rc.CongestionLevel != models.CongestionHeavy {
		t.Errorf("CongestionLevel = %q, want heavy at ratio 0.4", rc.CongestionLevel)
	}
}

func TestClient_Incidents_CappedAtFive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"incidents":[
			{"properties":{"iconCategory":1,"delay":40,"description":"pileup"}},
			{"properties":{"iconCategory":5,"delay":10}},
			{"properties":{"iconCategory":7,"delay":20}},
			{"properties":{"iconCategory":2,"delay":5}},
			{"properties":{"iconCategory":4,"delay":0}},
			{"properties":{"iconCategory":1,"delay":60}},
			{"properties":{"iconCategory":1,"delay":60}}
		]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, server.URL, server.URL, 5*time.Second)
	incidents, err := c.Incidents(context.Background(), 51.5, -0.12)
	if err != nil {
		t.Fatalf("Incidents: %v", err)
	}
	if len(incidents) != 5 {
		t.Fatalf("got %d incidents, want cap of 5", len(incidents))
	}
	if incidents[0].IncidentType != "accident" || incidents[0].Severity != models.SeverityCritical {
		t.Errorf("first incident = %s/%s", incidents[0].IncidentType, incidents[0].Severity)
	}
	if incidents[0].Description != "pileup" {
		t.Errorf("Description = %q", incidents[0].Description)
	}
	if incidents[1].Description != "Traffic incident" {
		t.Errorf("empty description should default, got %q", incidents[1].Description)
	}
}

func TestRepresentativeCoordsFor(t *testing.T) {
	if _, _, ok := representativeCoordsFor("Bangladesh"); !ok {
		t.Error("expected match for Bangladesh")
	}
	if _, _, ok := representativeCoordsFor("Ruritania"); ok {
		t.Error("expected no match for Ruritania")
	}
}
