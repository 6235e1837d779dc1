package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
// Provider credentials are all optional: a missing key degrades the
// corresponding lookup at request time, it never fails startup.
type Config struct {
	ServerPort string

	AllowedOrigins []string

	GeminiAPIKey string
	NewsAPIKey   string
	TomTomAPIKey string

	GeocodingURL      string
	ForecastURL       string
	ReverseGeocodeURL string
	NewsAPIURL        string
	NewsRSSURL        string
	TomTomGeocodeURL  string
	TomTomFlowURL     string
	TomTomIncidentURL string

	WeatherTimeout time.Duration
	NewsTimeout    time.Duration
	TrafficTimeout time.Duration
	AITimeout      time.Duration

	NewsPageSize int

	TrafficCacheTTL       time.Duration
	CacheBackend          string // "in_memory" or "memcached"
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CityMinLength int
	CityMaxLength int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Providers struct {
		Geocoding      string `yaml:"geocoding_url"`
		Forecast       string `yaml:"forecast_url"`
		ReverseGeocode string `yaml:"reverse_geocode_url"`
		NewsAPI        string `yaml:"news_api_url"`
		NewsRSS        string `yaml:"news_rss_url"`
		TomTomGeocode  string `yaml:"tomtom_geocode_url"`
		TomTomFlow     string `yaml:"tomtom_flow_url"`
		TomTomIncident string `yaml:"tomtom_incident_url"`

		WeatherTimeout string `yaml:"weather_timeout"`
		NewsTimeout    string `yaml:"news_timeout"`
		TrafficTimeout string `yaml:"traffic_timeout"`
		AITimeout      string `yaml:"ai_timeout"`
	} `yaml:"providers"`

	News struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"news"`

	Traffic struct {
		CacheTTL     string `yaml:"cache_ttl"`
		CacheBackend string `yaml:"cache_backend"`
		Memcached    struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"traffic"`

	Request struct {
		Timeout        string `yaml:"timeout"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
		CityMinLength  int    `yaml:"city_min_length"`
		CityMaxLength  int    `yaml:"city_max_length"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	NewsAPIKey   string `yaml:"news_api_key"`
	TomTomAPIKey string `yaml:"tomtom_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. Credentials come from GEMINI_API_KEY, NEWS_API_KEY,
// TOMTOM_API_KEY env vars or the secrets file. A missing config file is not an
// error; defaults apply. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.AllowedOrigins = fc.Server.AllowedOrigins
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	var sec secretsFile
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	if secretsData, err := os.ReadFile(secretsPath); err == nil {
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}
	cfg.GeminiAPIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), sec.GeminiAPIKey)
	cfg.NewsAPIKey = firstNonEmpty(os.Getenv("NEWS_API_KEY"), sec.NewsAPIKey)
	cfg.TomTomAPIKey = firstNonEmpty(os.Getenv("TOMTOM_API_KEY"), sec.TomTomAPIKey)

	cfg.GeocodingURL = defaultString(fc.Providers.Geocoding, "https://geocoding-api.open-meteo.com/v1/search")
	cfg.ForecastURL = defaultString(fc.Providers.Forecast, "https://api.open-meteo.com/v1/forecast")
	cfg.ReverseGeocodeURL = defaultString(fc.Providers.ReverseGeocode, "https://nominatim.openstreetmap.org/reverse")
	cfg.NewsAPIURL = defaultString(fc.Providers.NewsAPI, "https://newsapi.org/v2/everything")
	cfg.NewsRSSURL = defaultString(fc.Providers.NewsRSS, "https://news.google.com/rss/search")
	cfg.TomTomGeocodeURL = defaultString(fc.Providers.TomTomGeocode, "https://api.tomtom.com/search/2/geocode")
	cfg.TomTomFlowURL = defaultString(fc.Providers.TomTomFlow, "https://api.tomtom.com/traffic/services/4/flowSegmentData/relative0/10/json")
	cfg.TomTomIncidentURL = defaultString(fc.Providers.TomTomIncident, "https://api.tomtom.com/traffic/services/5/incidentDetails")

	cfg.WeatherTimeout = parseDuration(fc.Providers.WeatherTimeout, 10*time.Second)
	cfg.NewsTimeout = parseDuration(fc.Providers.NewsTimeout, 10*time.Second)
	cfg.TrafficTimeout = parseDuration(fc.Providers.TrafficTimeout, 15*time.Second)
	cfg.AITimeout = parseDuration(fc.Providers.AITimeout, 30*time.Second)

	cfg.NewsPageSize = fc.News.PageSize
	if cfg.NewsPageSize <= 0 {
		cfg.NewsPageSize = 5
	}

	cfg.TrafficCacheTTL = parseDuration(fc.Traffic.CacheTTL, 5*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Traffic.CacheBackend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Traffic.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Traffic.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Traffic.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 60*time.Second)
	cfg.RateLimitRPS = fc.Request.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Request.RateLimitBurst
	if cfg.RateLimitBurst <= 0 && cfg.RateLimitRPS > 0 {
		cfg.RateLimitBurst = 2 * cfg.RateLimitRPS
	}
	cfg.CityMinLength = fc.Request.CityMinLength
	if cfg.CityMinLength <= 0 {
		cfg.CityMinLength = 1
	}
	cfg.CityMaxLength = fc.Request.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func defaultString(s, defaultVal string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validate performs post-load validation. The overall request timeout must
// cover the slowest provider, and the cache backend must be a known value.
func validate(cfg *Config) error {
	if cfg.RequestTimeout <= cfg.AITimeout {
		cfg.RequestTimeout = cfg.AITimeout + cfg.WeatherTimeout
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("traffic.cache_backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("request.city_min_length (%d) exceeds city_max_length (%d)", cfg.CityMinLength, cfg.CityMaxLength)
	}
	return nil
}
