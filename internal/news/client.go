package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

var (
	ErrNoAPIKey        = errors.New("news API key not configured")
	ErrInvalidAPIKey   = errors.New("invalid news API key")
	ErrTierRestricted  = errors.New("news API tier restricted")
	ErrUpstreamFailure = errors.New("news upstream failure")
	ErrTimeout         = errors.New("news provider timed out")
)

// Client fetches articles from the NewsAPI /v2/everything endpoint.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a news client. An empty apiKey is allowed; Fetch then
// fails with ErrNoAPIKey so callers can degrade to fallback articles.
func NewClient(apiKey, apiURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type newsAPIResponse struct {
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch queries articles mentioning the city, newest first, capped at
// pageSize. Returns a typed error for each NewsAPI failure mode; 426 means
// the free tier rejects non-localhost callers.
func (c *Client) Fetch(ctx context.Context, city string, pageSize int) ([]models.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	base, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid news API URL: %w", err)
	}
	params := url.Values{}
	params.Set("q", city)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("apiKey", c.apiKey)
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
		observability.ObserveProviderCall(models.ServiceNews, "error", duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		observability.ObserveProviderCall(models.ServiceNews, "success", duration)
	case http.StatusUnauthorized:
		observability.ObserveProviderCall(models.ServiceNews, "unauthorized", duration)
		return nil, ErrInvalidAPIKey
	case http.StatusUpgradeRequired:
		observability.ObserveProviderCall(models.ServiceNews, "tier_restricted", duration)
		return nil, ErrTierRestricted
	default:
		observability.ObserveProviderCall(models.ServiceNews, "error", duration)
		var apiResp newsAPIResponse
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUpstreamFailure, apiResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	var apiResp newsAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstreamFailure, err)
	}

	articles := make([]models.NewsArticle, 0, pageSize)
	for _, a := range apiResp.Articles {
		if len(articles) >= pageSize {
			break
		}
		title := a.Title
		if title == "" {
			title = "No title"
		}
		link := a.URL
		if link == "" {
			link = "#"
		}
		source := a.Source.Name
		if source == "" {
			source = "Unknown"
		}
		articles = append(articles, models.NewsArticle{
			Title:       title,
			Description: a.Description,
			URL:         link,
			Source:      source,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
