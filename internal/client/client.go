// Package client fetches forecast payloads from the weather provider.
package client

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

	"github.com/sony/gobreaker/v2"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
)

// ForecastClient is the weather data source behind the dashboard.
type ForecastClient interface {
	GetForecast(ctx context.Context, query string) (models.ForecastPayload, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrInvalidQuery     = errors.New("invalid location query")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrCircuitOpen      = errors.New("circuit breaker open")
	// ErrInvalidPayload is shared with the dashboard builder.
	ErrInvalidPayload = models.ErrInvalidPayload
)

// Provider error codes carried in the payload's error object.
const (
	codeKeyMissing      = 1002
	codeQueryMissing    = 1003
	codeURLInvalid      = 1005
	codeNoLocation      = 1006
	codeKeyInvalid      = 2006
	codeQuotaExceeded   = 2007
	codeKeyDisabled     = 2008
	codeInternalFailure = 9999
)

// DefaultForecastDays is how many days the dashboard asks for.
const DefaultForecastDays = 7

// BreakerSettings configures the upstream circuit breaker.
type BreakerSettings struct {
	Enabled             bool
	ConsecutiveFailures uint32
	Timeout             time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings opens after five consecutive failures for thirty seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Enabled:             true,
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// WeatherAPIClient calls forecast.json with air quality and alerts enabled.
type WeatherAPIClient struct {
	apiKey  string
	apiURL  string
	days    int
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[models.ForecastPayload]
}

func NewWeatherAPIClient(apiKey, apiURL string, timeout time.Duration, days int, bs BreakerSettings) (*WeatherAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if days <= 0 {
		days = DefaultForecastDays
	}

	c := &WeatherAPIClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		days:    days,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
	if bs.Enabled {
		c.breaker = newBreaker(bs)
	}
	return c, nil
}

func newBreaker(bs BreakerSettings) *gobreaker.CircuitBreaker[models.ForecastPayload] {
	threshold := bs.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerSettings().ConsecutiveFailures
	}
	observability.CircuitBreakerState.Set(stateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[models.ForecastPayload](gobreaker.Settings{
		Name:        "weatherapi",
		MaxRequests: bs.HalfOpenRequests,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			observability.CircuitBreakerState.Set(stateValue(to))
		},
		IsSuccessful: countsAsSuccess,
	})
}

// IsCallerError reports whether err is the user's mistake (unknown city, malformed
// query) rather than a provider or service fault. A rejected API key is a service fault.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrInvalidQuery)
}

// countsAsSuccess keeps caller mistakes and abandoned requests from tripping the breaker.
func countsAsSuccess(err error) bool {
	return err == nil || IsCallerError(err) || errors.Is(err, context.Canceled)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BreakerState reports the breaker state for health output; "disabled" when there is none.
func (c *WeatherAPIClient) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// GetForecast fetches the forecast for a city name or "lat,lon" query. There is no retry.
func (c *WeatherAPIClient) GetForecast(ctx context.Context, query string) (models.ForecastPayload, error) {
	var (
		payload models.ForecastPayload
		err     error
	)
	if c.breaker == nil {
		payload, err = c.callAPI(ctx, query)
	} else {
		payload, err = c.breaker.Execute(func() (models.ForecastPayload, error) {
			return c.callAPI(ctx, query)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
	}
	if err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.ForecastPayload{}, err
	}
	return payload, nil
}

func (c *WeatherAPIClient) callAPI(ctx context.Context, query string) (models.ForecastPayload, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, query, c.days)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.ForecastPayload{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.ForecastPayload{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.ForecastPayload{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ForecastPayload{}, fmt.Errorf("read response body: %w", err)
	}

	var payload models.ForecastPayload
	decodeErr := json.Unmarshal(body, &payload)

	if err := handleErrorResponse(resp.StatusCode, payload.Error); err != nil {
		return models.ForecastPayload{}, err
	}
	if decodeErr != nil {
		return models.ForecastPayload{}, fmt.Errorf("%w: parse response: %w", ErrInvalidPayload, decodeErr)
	}
	if payload.Error != nil {
		return models.ForecastPayload{}, mapProviderError(payload.Error)
	}
	if err := payload.Validate(); err != nil {
		return models.ForecastPayload{}, err
	}
	return payload, nil
}

func (c *WeatherAPIClient) buildRequest(ctx context.Context, query string, days int) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("days", strconv.Itoa(days))
	params.Set("aqi", "yes")
	params.Set("alerts", "yes")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps a non-2xx status. A 400 is resolved by the provider code when present.
func handleErrorResponse(statusCode int, perr *models.ProviderError) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, statusCode)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrLocationNotFound, statusCode)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, statusCode)
	case statusCode == http.StatusBadRequest:
		if perr != nil {
			return mapProviderError(perr)
		}
		return fmt.Errorf("%w: HTTP %d", ErrInvalidQuery, statusCode)
	}
	return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, statusCode)
}

func mapProviderError(perr *models.ProviderError) error {
	var base error
	switch perr.Code {
	case codeKeyMissing, codeKeyInvalid, codeKeyDisabled:
		base = ErrInvalidAPIKey
	case codeQueryMissing, codeURLInvalid:
		base = ErrInvalidQuery
	case codeNoLocation:
		base = ErrLocationNotFound
	case codeQuotaExceeded:
		base = ErrRateLimited
	case codeInternalFailure:
		base = ErrUpstreamFailure
	default:
		base = ErrUpstreamFailure
	}
	return fmt.Errorf("%w: provider code %d: %s", base, perr.Code, perr.Message)
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a one-day forecast for London and checks the key is accepted.
func (c *WeatherAPIClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, "London", 1)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: API key is invalid or disabled", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
