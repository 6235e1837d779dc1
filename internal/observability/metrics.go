package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream provider call rate, labelled by provider (weather, news, traffic, ai)
	// and outcome status. Watch for: error vs success ratio per provider.
	ProviderCallsTotal *prometheus.CounterVec

	// Upstream provider latency. Watch for: p95 > 2s (upstream degradation).
	ProviderCallDuration *prometheus.HistogramVec

	// Fallback substitutions, labelled by provider and the fallback that served
	// instead. Watch for: sustained non-zero rate = a provider is down.
	ProviderFallbacksTotal *prometheus.CounterVec

	// Plans generated, labelled by source (gemini or fallback).
	PlanGeneratedTotal *prometheus.CounterVec

	// Traffic result cache hits/misses. Hit rate = hits/(hits+misses).
	TrafficCacheHitsTotal   prometheus.Counter
	TrafficCacheMissesTotal prometheus.Counter

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerCallDurationSeconds",
			Help:    "Upstream provider latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)
	ProviderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerFallbacksTotal",
			Help: "Fallback substitutions after a provider failed or had no coverage",
		},
		[]string{"provider", "fallback"},
	)
	PlanGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planGeneratedTotal",
			Help: "Daily plans generated, by source (gemini or fallback)",
		},
		[]string{"source"},
	)
	TrafficCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trafficCacheHitsTotal",
			Help: "Traffic result cache hits",
		},
	)
	TrafficCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trafficCacheMissesTotal",
			Help: "Traffic result cache misses",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderCallDuration, ProviderFallbacksTotal,
		PlanGeneratedTotal,
		TrafficCacheHitsTotal, TrafficCacheMissesTotal,
		RateLimitDeniedTotal,
	)
}

// ObserveProviderCall records one upstream call outcome with its duration.
func ObserveProviderCall(provider, status string, duration time.Duration) {
	ProviderCallsTotal.WithLabelValues(provider, status).Inc()
	ProviderCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordFallback records that fallback content served in place of provider.
func RecordFallback(provider, fallback string) {
	ProviderFallbacksTotal.WithLabelValues(provider, fallback).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
