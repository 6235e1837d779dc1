package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/daymate/daymate/internal/cache"
	"github.com/daymate/daymate/internal/config"
	httphandler "github.com/daymate/daymate/internal/http"
	"github.com/daymate/daymate/internal/lifecycle"
	"github.com/daymate/daymate/internal/news"
	"github.com/daymate/daymate/internal/observability"
	"github.com/daymate/daymate/internal/planner"
	"github.com/daymate/daymate/internal/service"
	"github.com/daymate/daymate/internal/traffic"
	"github.com/daymate/daymate/internal/weather"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; plans will use rule-based fallback")
	}
	if cfg.NewsAPIKey == "" {
		logger.Warn("NEWS_API_KEY not set; news will use placeholder articles")
	}
	if cfg.TomTomAPIKey == "" {
		logger.Warn("TOMTOM_API_KEY not set; traffic will use news-derived alerts")
	}

	weatherClient := weather.NewClient(cfg.GeocodingURL, cfg.ForecastURL, cfg.ReverseGeocodeURL, cfg.WeatherTimeout)
	weatherService := weather.NewService(weatherClient)

	newsClient := news.NewClient(cfg.NewsAPIKey, cfg.NewsAPIURL, cfg.NewsTimeout)
	newsService := news.NewService(newsClient, cfg.NewsPageSize)
	alertSource := news.NewAlertSource(cfg.NewsRSSURL, cfg.NewsPageSize, cfg.NewsTimeout)

	var trafficCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		trafficCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		trafficCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	trafficClient := traffic.NewClient(cfg.TomTomAPIKey, cfg.TomTomGeocodeURL, cfg.TomTomFlowURL, cfg.TomTomIncidentURL, cfg.TrafficTimeout)
	trafficService := traffic.NewService(trafficClient, alertSource, trafficCache, cfg.TrafficCacheTTL)

	geminiClient := planner.NewGeminiClient(cfg.GeminiAPIKey, "", cfg.AITimeout)
	synthesizer := planner.NewSynthesizer(geminiClient)

	aggregator := service.NewAggregator(weatherService, newsService, trafficService, synthesizer, cfg.CityMinLength, cfg.CityMaxLength)
	handler := httphandler.NewHandler(aggregator, weatherService, newsService, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/", handler.GetHealth).Methods("GET")
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	apiRouter.HandleFunc("/plan", handler.PostPlan).Methods("POST")
	apiRouter.HandleFunc("/chat", handler.PostChat).Methods("POST")
	apiRouter.HandleFunc("/weather/{city}", handler.GetWeather).Methods("GET")
	apiRouter.HandleFunc("/news/{city}", handler.GetNews).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Correlation-ID"}),
	)
	root := handlers.RecoveryHandler(handlers.RecoveryLogger(&panicLogger{logger: logger}))(cors(router))

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.ActiveRequests()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.DrainRequests(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.ActiveRequests()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// panicLogger adapts zap to the recovery handler's logger interface.
type panicLogger struct {
	logger *zap.Logger
}

func (p *panicLogger) Println(v ...interface{}) {
	p.logger.Error("panic recovered", zap.Any("details", v))
}
