package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

// Headlines matching these substrings (lower-cased) become traffic alerts.
var trafficKeywords = []string{
	"traffic", "accident", "road closure", "highway", "congestion",
	"road work", "construction", "detour", "delays", "crash",
}

// Headlines matching these substrings become high-priority emergency alerts.
var emergencyKeywords = []string{
	"emergency", "evacuation", "fire", "flood", "storm warning",
	"power outage", "gas leak", "police", "alert", "closure",
	"severe weather", "tornado", "hurricane", "earthquake",
}

// AlertsResult is the tagged outcome of a news-derived alert lookup.
type AlertsResult struct {
	Alerts          []models.TrafficAlert
	HasHighPriority bool
	Err             *models.ServiceError
}

// AlertSource derives traffic and emergency alerts from news headlines. It
// serves as the fallback when the structured traffic provider is unavailable
// or has no coverage.
type AlertSource struct {
	rssURL     string
	pageSize   int
	httpClient *http.Client
}

// NewAlertSource creates an alert source over a Google News style RSS search
// endpoint. pageSize caps the alert count per lookup.
func NewAlertSource(rssURL string, pageSize int, timeout time.Duration) *AlertSource {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &AlertSource{
		rssURL:     rssURL,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Source      string `xml:"source"`
}

// Lookup fetches recent headlines for the city and classifies them by keyword
// into alerts, high priority first, capped at pageSize.
func (s *AlertSource) Lookup(ctx context.Context, city string) AlertsResult {
	items, err := s.fetch(ctx, city)
	if err != nil {
		return AlertsResult{
			Err: &models.ServiceError{
				Service: models.ServiceTraffic,
				Message: fmt.Sprintf("Traffic news lookup failed: %v", err),
			},
		}
	}

	alerts := ClassifyHeadlines(items)
	if len(alerts) > s.pageSize {
		alerts = alerts[:s.pageSize]
	}

	high := false
	for _, a := range alerts {
		if a.Priority == models.PriorityHigh {
			high = true
			break
		}
	}
	return AlertsResult{Alerts: alerts, HasHighPriority: high}
}

// fetch retrieves and parses the RSS search feed for the city.
func (s *AlertSource) fetch(ctx context.Context, city string) ([]models.NewsArticle, error) {
	base, err := url.Parse(s.rssURL)
	if err != nil {
		return nil, fmt.Errorf("invalid RSS URL: %w", err)
	}
	params := url.Values{}
	params.Set("q", city+" traffic OR road OR emergency")
	params.Set("hl", "en-US")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		observability.ObserveProviderCall(models.ServiceTraffic, "rss_error", duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ObserveProviderCall(models.ServiceTraffic, "rss_error", duration)
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	observability.ObserveProviderCall(models.ServiceTraffic, "rss_success", duration)

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", ErrUpstreamFailure, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		articles = append(articles, models.NewsArticle{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.Link,
			Source:      firstNonEmptyString(item.Source, "Google News"),
			PublishedAt: item.PubDate,
		})
	}
	return articles, nil
}

// ClassifyHeadlines turns headlines into alerts by lower-cased substring match
// against the keyword sets. Emergency matches get priority high and alert type
// emergency; traffic matches get medium/traffic. Non-matching headlines are
// dropped. The result is sorted high priority first, preserving provider
// order within each priority.
func ClassifyHeadlines(articles []models.NewsArticle) []models.TrafficAlert {
	var alerts []models.TrafficAlert
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		switch {
		case matchesAny(title, emergencyKeywords):
			alerts = append(alerts, newAlert(a, models.AlertTypeEmergency, models.PriorityHigh))
		case matchesAny(title, trafficKeywords):
			alerts = append(alerts, newAlert(a, models.AlertTypeTraffic, models.PriorityMedium))
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority == models.PriorityHigh && alerts[j].Priority != models.PriorityHigh
	})
	return alerts
}

func newAlert(a models.NewsArticle, alertType, priority string) models.TrafficAlert {
	return models.TrafficAlert{
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Source:      a.Source,
		PublishedAt: a.PublishedAt,
		AlertType:   alertType,
		Priority:    priority,
	}
}

func matchesAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
