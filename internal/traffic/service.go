package traffic

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/daymate/daymate/internal/cache"
	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/news"
	"github.com/daymate/daymate/internal/observability"
)

// Data source labels reported in the traffic payload.
const (
	sourceTomTom  = "TomTom Traffic API"
	sourceNewsRSS = "News RSS fallback"
)

// provider is the subset of Client used by the Service. Split out for tests.
type provider interface {
	Geocode(ctx context.Context, city string) (lat, lon float64, err error)
	FlowSegment(ctx context.Context, lat, lon float64) (models.RoadCondition, error)
	Incidents(ctx context.Context, lat, lon float64) ([]models.TrafficIncident, error)
}

// alertSource is the news-derived alert fallback. Satisfied by *news.AlertSource.
type alertSource interface {
	Lookup(ctx context.Context, city string) news.AlertsResult
}

// Result is the tagged outcome of a traffic lookup. Data is nil only when the
// whole degradation chain failed, in which case Err is set.
type Result struct {
	Data *models.TrafficData
	Err  *models.ServiceError
}

// Service resolves a city (optionally with coordinates) to road-condition and
// incident data, degrading to news-derived alerts when the structured
// provider is unavailable or has no coverage, and to a terminal error when
// that also fails.
type Service struct {
	client   provider
	alerts   alertSource
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewService creates a traffic lookup service. The cache is injectable so
// tests can run with a fresh one; a nil cache disables caching.
func NewService(client provider, alerts alertSource, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{client: client, alerts: alerts, cache: c, cacheTTL: cacheTTL}
}

// Lookup runs the degradation chain for the city. lat/lon are optional; when
// nil the city is geocoded first. Repeated lookups within the cache TTL are
// served from cache.
func (s *Service) Lookup(ctx context.Context, city string, lat, lon *float64) Result {
	key := cacheKey(city, lat, lon)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			observability.TrafficCacheHitsTotal.Inc()
			return Result{Data: &cached}
		}
		observability.TrafficCacheMissesTotal.Inc()
	}

	data, ok := s.structuredLookup(ctx, city, lat, lon)
	if ok {
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, *data, s.cacheTTL); err != nil {
				if logger := observability.FromContext(ctx); logger != nil {
					logger.Warn("traffic cache set failed", zap.Error(err))
				}
			}
		}
		return Result{Data: data}
	}

	// Structured traffic unavailable or no coverage: derive alerts from news.
	observability.RecordFallback(models.ServiceTraffic, "news_alerts")
	alertsResult := s.alerts.Lookup(ctx, city)
	if alertsResult.Err == nil {
		return Result{Data: &models.TrafficData{
			RoadConditions: []models.RoadCondition{},
			Incidents:      []models.TrafficIncident{},
			Alerts:         alertsResult.Alerts,
			Message:        "Traffic data from news headlines (structured traffic unavailable for this location)",
			DataSource:     sourceNewsRSS,
			LastUpdated:    time.Now(),
		}}
	}

	return Result{Err: &models.ServiceError{
		Service: models.ServiceTraffic,
		Message: "Traffic data unavailable. Structured traffic lookup failed and the news fallback also failed.",
	}}
}

// structuredLookup queries the structured provider. Returns ok=false when the
// provider is unconfigured, errored, or returned only placeholder data, which
// all route to the news fallback.
func (s *Service) structuredLookup(ctx context.Context, city string, lat, lon *float64) (*models.TrafficData, bool) {
	logger := observability.FromContext(ctx)

	var qLat, qLon float64
	if lat != nil && lon != nil {
		qLat, qLon = *lat, *lon
	} else {
		var err error
		qLat, qLon, err = s.client.Geocode(ctx, city)
		if err != nil {
			if logger != nil {
				logger.Debug("traffic geocode failed", zap.String("city", city), zap.Error(err))
			}
			return nil, false
		}
	}

	segment, err := s.client.FlowSegment(ctx, qLat, qLon)
	if err != nil {
		if logger != nil {
			logger.Debug("traffic flow fetch failed", zap.Error(err))
		}
		return nil, false
	}

	// Placeholder road names signal no real coverage for this location.
	if segment.RoadName == unknownRoad {
		return nil, false
	}

	incidents, err := s.client.Incidents(ctx, qLat, qLon)
	if err != nil {
		// Incidents are additive; flow data alone is still a valid result.
		if logger != nil {
			logger.Debug("traffic incidents fetch failed", zap.Error(err))
		}
		incidents = nil
	}
	if incidents == nil {
		incidents = []models.TrafficIncident{}
	}

	return &models.TrafficData{
		RoadConditions: []models.RoadCondition{segment},
		Incidents:      incidents,
		Message:        "Traffic data fetched successfully",
		DataSource:     sourceTomTom,
		LastUpdated:    time.Now(),
	}, true
}

// cacheKey builds the (city, lat, lon) cache key.
func cacheKey(city string, lat, lon *float64) string {
	if lat != nil && lon != nil {
		return fmt.Sprintf("%s_%.4f_%.4f", city, *lat, *lon)
	}
	return fmt.Sprintf("%s__", city)
}
