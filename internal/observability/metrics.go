package observability

import (
	"net/http"
	"strings"
	"sync"

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

	// Forecast provider call rate by outcome. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Forecast provider latency. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Forecast provider failures by CategorizeError label.
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Dashboard renders by result (ok, invalid_payload).
	DashboardBuildsTotal *prometheus.CounterVec

	// Insights emitted per title. Stable Conditions dominating means nothing interesting is happening.
	InsightsEmittedTotal *prometheus.CounterVec

	// Fetch triggers answered from the snapshot because they arrived inside the throttle window.
	FetchThrottledTotal prometheus.Counter

	// Scheduled refresh runs by result (success, error, skipped).
	AutoRefreshRunsTotal *prometheus.CounterVec

	// Session store calls by backend, operation and result.
	SessionStoreOperationsTotal *prometheus.CounterVec

	// Upstream breaker state: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState prometheus.Gauge

	// Total dashboard queries. Watch for: traffic volume, rate() for QPS.
	DashboardQueriesTotal prometheus.Counter

	// Per-city query count (allow-list; others go to "other").
	DashboardQueriesByCityTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}
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
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of forecast provider calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Forecast provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Forecast provider failures by error category",
		},
		[]string{"category"},
	)
	DashboardBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardBuildsTotal",
			Help: "Dashboard view renders by result",
		},
		[]string{"result"},
	)
	InsightsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightsEmittedTotal",
			Help: "Insights emitted by title",
		},
		[]string{"title"},
	)
	FetchThrottledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchThrottledTotal",
			Help: "Fetch triggers served from the session snapshot because of the minimum interval",
		},
	)
	AutoRefreshRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoRefreshRunsTotal",
			Help: "Scheduled dashboard refresh runs by result",
		},
		[]string{"result"},
	)
	SessionStoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionStoreOperationsTotal",
			Help: "Session store operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Forecast provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
	DashboardQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboardQueriesTotal",
			Help: "Total number of dashboard fetches",
		},
	)
	DashboardQueriesByCityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardQueriesByCityTotal",
			Help: "Dashboard fetches by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		DashboardBuildsTotal, InsightsEmittedTotal,
		FetchThrottledTotal, AutoRefreshRunsTotal,
		SessionStoreOperationsTotal, CircuitBreakerState,
		DashboardQueriesTotal, DashboardQueriesByCityTotal,
		RateLimitDeniedTotal,
	)
}

// SetTrackedCities sets the allow-list for city metrics. Non-tracked cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordDashboardQuery records a dashboard fetch for the given query.
func RecordDashboardQuery(query string) {
	DashboardQueriesTotal.Inc()
	city := normalizeCityForMetrics(query)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[city]
	trackedCitiesMu.RUnlock()
	if ok {
		DashboardQueriesByCityTotal.WithLabelValues(city).Inc()
	} else {
		DashboardQueriesByCityTotal.WithLabelValues("other").Inc()
	}
}

// RecordSessionOp counts one session store call.
func RecordSessionOp(backend, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SessionStoreOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
