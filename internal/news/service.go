package news

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

// fetcher is the subset of Client used by the Service. Split out for tests.
type fetcher interface {
	Fetch(ctx context.Context, city string, pageSize int) ([]models.NewsArticle, error)
}

// Result is the tagged outcome of a news lookup. Articles is never empty:
// when the provider fails or returns nothing, fallback placeholders fill in
// and Err records what went wrong (nil for the empty-result case, which is
// not an error).
type Result struct {
	Articles []models.NewsArticle
	Err      *models.ServiceError
}

// Service resolves a city name to a small set of topical articles, always
// producing a usable list.
type Service struct {
	client   fetcher
	pageSize int
}

// NewService creates a news lookup service. pageSize caps the article count
// per lookup.
func NewService(client fetcher, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Service{client: client, pageSize: pageSize}
}

// Lookup fetches articles for the city. Provider failures substitute fallback
// placeholders and record a ServiceError; a successful fetch with zero
// articles substitutes the same placeholders without an error.
func (s *Service) Lookup(ctx context.Context, city string) Result {
	articles, err := s.client.Fetch(ctx, city, s.pageSize)
	if err != nil {
		observability.RecordFallback(models.ServiceNews, "placeholder_articles")
		if logger := observability.FromContext(ctx); logger != nil {
			logger.Warn("news fetch failed, serving fallback articles", zap.String("city", city), zap.Error(err))
		}
		return Result{
			Articles: fallbackArticles(city),
			Err:      &models.ServiceError{Service: models.ServiceNews, Message: fetchMessage(err)},
		}
	}

	if len(articles) == 0 {
		observability.RecordFallback(models.ServiceNews, "placeholder_articles")
		return Result{Articles: fallbackArticles(city)}
	}
	return Result{Articles: articles}
}

// fetchMessage maps a fetch error to the user-facing ServiceError message.
func fetchMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		return "News API key not configured. Please add NEWS_API_KEY to your environment."
	case errors.Is(err, ErrInvalidAPIKey):
		return "Invalid News API key. Please check your NEWS_API_KEY."
	case errors.Is(err, ErrTierRestricted):
		return "News API free tier only works on localhost. Using fallback news."
	case errors.Is(err, ErrTimeout):
		return "News service timed out. Please try again later."
	default:
		return fmt.Sprintf("News service unavailable: %v", err)
	}
}

// fallbackArticles returns the three generic placeholders served when no real
// articles are available. Always exactly three, always referencing the city.
func fallbackArticles(city string) []models.NewsArticle {
	return []models.NewsArticle{
		{
			Title:       fmt.Sprintf("Local events and activities in %s", city),
			Description: "Check local event listings for activities in your area.",
			URL:         "#",
			Source:      "DayMate",
		},
		{
			Title:       fmt.Sprintf("Traffic and transportation updates for %s", city),
			Description: "Stay informed about local traffic conditions.",
			URL:         "#",
			Source:      "DayMate",
		},
		{
			Title:       fmt.Sprintf("Community news from %s", city),
			Description: "Connect with local community happenings.",
			URL:         "#",
			Source:      "DayMate",
		},
	}
}
