package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daymate/daymate/internal/models"
)

func TestClassifyHeadlines(t *testing.T) {
	articles := []models.NewsArticle{
		{Title: "Major accident on the M25 causes delays"},
		{Title: "Local bakery wins national award"},
		{Title: "Flood evacuation ordered in riverside district"},
		{Title: "Road work begins on High Street"},
	}

	alerts := ClassifyHeadlines(articles)
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3 (bakery story dropped)", len(alerts))
	}

	// High priority sorts first; provider order preserved within a priority.
	if alerts[0].Priority != models.PriorityHigh || alerts[0].AlertType != models.AlertTypeEmergency {
		t.Errorf("first alert = %s/%s, want high/emergency", alerts[0].Priority, alerts[0].AlertType)
	}
	if alerts[0].Title != "Flood evacuation ordered in riverside district" {
		t.Errorf("first alert title = %q", alerts[0].Title)
	}
	if alerts[1].Title != "Major accident on the M25 causes delays" {
		t.Errorf("second alert title = %q", alerts[1].Title)
	}
	if alerts[1].Priority != models.PriorityMedium || alerts[1].AlertType != models.AlertTypeTraffic {
		t.Errorf("second alert = %s/%s, want medium/traffic", alerts[1].Priority, alerts[1].AlertType)
	}
}

func TestClassifyHeadlines_CaseInsensitive(t *testing.T) {
	alerts := ClassifyHeadlines([]models.NewsArticle{{Title: "TRAFFIC chaos downtown"}})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestAlertSource_Lookup(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel>
<item><title>Gas leak prompts emergency response</title><link>https://example.com/1</link><pubDate>Mon, 10 Aug 2026 08:00:00 GMT</pubDate></item>
<item><title>Congestion builds on ring road</title><link>https://example.com/2</link></item>
<item><title>Summer festival lineup announced</title><link>https://example.com/3</link></item>
</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "Leeds traffic OR road OR emergency" {
			t.Errorf("query = %q", q)
		}
		w.Write([]byte(feed))
	}))
	defer server.Close()

	src := NewAlertSource(server.URL, 5, 5*time.Second)
	result := src.Lookup(context.Background(), "Leeds")
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if len(result.Alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(result.Alerts))
	}
	if !result.HasHighPriority {
		t.Error("expected HasHighPriority for gas leak headline")
	}
}

func TestAlertSource_Lookup_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	src := NewAlertSource(server.URL, 5, 5*time.Second)
	result := src.Lookup(context.Background(), "Leeds")
	if result.Err == nil {
		t.Fatal("expected error on HTTP 502")
	}
	if result.Err.Service != models.ServiceTraffic {
		t.Errorf("Service = %q, want traffic", result.Err.Service)
	}
}
