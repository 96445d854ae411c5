package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weatherx-dashboard/internal/account"
	"github.com/kjstillabower/weatherx-dashboard/internal/client"
	"github.com/kjstillabower/weatherx-dashboard/internal/dashboard"
	"github.com/kjstillabower/weatherx-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/service"
	"github.com/kjstillabower/weatherx-dashboard/internal/session"
	"github.com/kjstillabower/weatherx-dashboard/internal/traffic"
)

var testStart = time.Date(2025, 9, 11, 9, 0, 0, 0, time.UTC)

type mockForecastClient struct {
	mu  sync.Mutex
	err error
}

func (m *mockForecastClient) GetForecast(ctx context.Context, query string) (models.ForecastPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.ForecastPayload{}, m.err
	}
	return models.ForecastPayload{
		Location: &models.Location{Name: query, Country: "UK", TzID: "Europe/London", LocalTime: "2025-09-11 09:00"},
		Current: &models.Current{
			TempC: 20, Humidity: 50, WindKph: 10, PressureMb: 1010, VisKm: 10,
			Condition: models.Condition{Text: "Partly cloudy", Icon: "//cdn.weatherapi.com/weather/64x64/day/116.png"},
		},
		Forecast: &models.Forecast{ForecastDay: []models.ForecastDay{{
			Date:  "2025-09-11",
			Day:   models.Day{MaxTempC: 22, MinTempC: 12, AvgTempC: 17, Condition: models.Condition{Text: "Sunny"}},
			Astro: models.Astro{Sunrise: "06:30 AM", Sunset: "07:15 PM", MoonPhase: "Waxing Gibbous"},
		}}},
	}, nil
}

func (m *mockForecastClient) ValidateAPIKey(ctx context.Context) error { return nil }

func (m *mockForecastClient) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

type testServer struct {
	handler  http.Handler
	client   *mockForecastClient
	clock    *clockwork.FakeClock
	sessions *session.InMemoryStore
	logs     *observer.ObservedLogs
	health   *HealthConfig
}

func setup(t testing.TB) *testServer {
	t.Helper()
	lifecycle.Set(lifecycle.Serving)
	traffic.Reset()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	clock := clockwork.NewFakeClockAt(testStart)
	fc := &mockForecastClient{}
	sessions := session.NewInMemoryStore(clock)
	accounts := account.NewService(account.NewMemoryStore(), bcrypt.MinCost, clock, logger)
	dash := service.NewDashboardService(fc, accounts, sessions, dashboard.NewBuilder(clock, 0), nil, clock, service.Options{
		DefaultCity:      "London",
		FetchMinInterval: 2 * time.Second,
		RefreshInterval:  10 * time.Minute,
		SessionTTL:       time.Hour,
	})
	health := &HealthConfig{
		ErrorWindow:  time.Minute,
		ErrorPct:     50,
		MinRequests:  2,
		BreakerState: func() string { return "closed" },
		Pings:        dash.Ping,
		StartTime:    testStart,
	}
	h := NewHandler(dash, accounts, health, logger)
	return &testServer{
		handler:  NewRouter(h, logger, nil, 5*time.Second),
		client:   fc,
		clock:    clock,
		sessions: sessions,
		logs:     logs,
		health:   health,
	}
}

func (s *testServer) do(t testing.TB, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// login registers ada@example.com (city Paris) and returns a session token.
func (s *testServer) login(t testing.TB) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/accounts", "", `{"email":"ada@example.com","password":"secret1","city":"Paris"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/sessions", "", `{"email":"ada@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "Paris", resp.City)
	return resp.Token
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotEmpty(t, body.Error.RequestID)
	return body.Error.Code
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"valid", `{"email":"bob@example.com","password":"secret1","city":"New York"}`, http.StatusCreated, ""},
		{"bad email", `{"email":"bob","password":"secret1","city":"London"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"short password", `{"email":"bob@example.com","password":"123","city":"London"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad city", `{"email":"bob@example.com","password":"secret1","city":"L"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"password over bcrypt limit", `{"email":"bob@example.com","password":"` + strings.Repeat("p", 73) + `","city":"London"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed", `{"email":`, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t)
			w := s.do(t, http.MethodPost, "/accounts", "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				return
			}
			assert.NotContains(t, w.Body.String(), "password")
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := setup(t)
	s.login(t)
	w := s.do(t, http.MethodPost, "/accounts", "", `{"email":"ADA@example.com","password":"secret2","city":"Rome"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_TAKEN", errorCode(t, w))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := setup(t)
	s.login(t)
	w := s.do(t, http.MethodPost, "/sessions", "", `{"email":"ada@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
}

func TestLogout(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	w := s.do(t, http.MethodDelete, "/sessions", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/preferences", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = s.do(t, http.MethodDelete, "/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordReset(t *testing.T) {
	s := setup(t)
	s.login(t)

	w := s.do(t, http.MethodPost, "/password-reset", "", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/password-reset", "", `{"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", errorCode(t, w))
}

func TestPreferences_RoundTrip(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/preferences", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var prefs models.Preferences
	require.NoError(t, json.NewDecoder(w.Body).Decode(&prefs))
	assert.Equal(t, models.DefaultPreferences(10*time.Minute), prefs)

	body := `{"tempUnit":"fahrenheit","windUnit":"mph","theme":"light","autoRefresh":false,"notifications":true,"refreshMinutes":30}`
	w = s.do(t, http.MethodPut, "/preferences", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/preferences", token, "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&prefs))
	assert.Equal(t, models.TempUnitFahrenheit, prefs.TempUnit)
	assert.Equal(t, models.WindUnitMph, prefs.WindUnit)
	assert.Equal(t, 30, prefs.RefreshMinutes)
	assert.True(t, prefs.Notifications)
}

func TestPreferences_Invalid(t *testing.T) {
	s := setup(t)
	token := s.login(t)
	body := `{"tempUnit":"kelvin","windUnit":"mph","theme":"light","refreshMinutes":30}`
	w := s.do(t, http.MethodPut, "/preferences", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PREFERENCES", errorCode(t, w))
}

func TestDashboard_Success(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/dashboard?q=Tokyo", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Tokyo", res.Query)
	assert.False(t, res.Throttled)
	assert.Equal(t, "Tokyo", res.View.Location.Name)
	assert.Equal(t, "London", res.View.Location.Timezone)
	assert.Equal(t, "https://cdn.weatherapi.com/weather/128x128/day/116.png", res.View.Main.IconURL)
	assert.NotEmpty(t, res.View.Insights)
}

func TestDashboard_DefaultsToAccountCity(t *testing.T) {
	s := setup(t)
	token := s.login(t)
	w := s.do(t, http.MethodGet, "/dashboard", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res service.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Paris", res.View.Location.Name)
}

func TestDashboard_ThrottledServesSnapshot(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/dashboard?q=Tokyo", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/dashboard?q=Rome", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res service.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Throttled)
	assert.Equal(t, "Tokyo", res.View.Location.Name)
}

func TestDashboard_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		upstream   error
		wantStatus int
		wantCode   string
	}{
		{"bad query", "Lon%2Fdon", nil, http.StatusBadRequest, "INVALID_QUERY"},
		{"not found", "Atlantis", client.ErrLocationNotFound, http.StatusNotFound, "LOCATION_NOT_FOUND"},
		{"provider rejects query", "Paris", client.ErrInvalidQuery, http.StatusBadRequest, "INVALID_QUERY"},
		{"upstream down", "Paris", client.ErrUpstreamFailure, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"circuit open", "Paris", client.ErrCircuitOpen, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"bad api key", "Paris", client.ErrInvalidAPIKey, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"timeout", "Paris", context.DeadlineExceeded, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t)
			token := s.login(t)
			s.client.setErr(tt.upstream)
			w := s.do(t, http.MethodGet, "/dashboard?q="+tt.query, token, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestDashboard_RequiresSession(t *testing.T) {
	s := setup(t)
	w := s.do(t, http.MethodGet, "/dashboard?q=Tokyo", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/dashboard/current", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardCurrent(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/dashboard/current", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_FORECAST", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/dashboard?q=Tokyo", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := `{"tempUnit":"fahrenheit","windUnit":"kph","theme":"dark","refreshMinutes":10}`
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/preferences", token, body).Code)

	w = s.do(t, http.MethodGet, "/dashboard/current", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res service.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 68, res.View.Main.Temperature)
}

func TestDashboard_GzipWhenAccepted(t *testing.T) {
	s := setup(t)
	token := s.login(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard?q=Tokyo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestHealth(t *testing.T) {
	s := setup(t)

	w := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["sessions"])
	assert.Equal(t, "healthy", checks["accounts"])
	assert.Equal(t, "closed", checks["circuitBreaker"])
}

func TestHealth_DegradedOnErrorRate(t *testing.T) {
	s := setup(t)
	token := s.login(t)
	s.client.setErr(client.ErrUpstreamFailure)

	for i := 0; i < 2; i++ {
		s.do(t, http.MethodGet, "/dashboard?q=Tokyo", token, "")
		s.clock.Advance(3 * time.Second)
	}

	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	var transitions int
	for _, e := range s.logs.All() {
		if e.Message == "health status transition" {
			transitions++
		}
	}
	assert.LessOrEqual(t, transitions, 1)
}

func TestHealth_BreakerOpen(t *testing.T) {
	s := setup(t)
	s.health.BreakerState = func() string { return "open" }
	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestHealth_ShuttingDown(t *testing.T) {
	s := setup(t)
	lifecycle.Set(lifecycle.Draining)
	defer lifecycle.Set(lifecycle.Serving)

	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "shutting-down")
}

func TestHealth_ReportsTrafficCounts(t *testing.T) {
	s := setup(t)
	traffic.RecordSuccess()
	traffic.RecordSuccess()
	traffic.RecordError()
	traffic.RecordDenied()

	w := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "1/3", body.Checks["upstreamErrors"])
	assert.Equal(t, "1", body.Checks["rateLimitDenials"])
}

func TestHealth_Starting(t *testing.T) {
	s := setup(t)
	lifecycle.Set(lifecycle.Starting)
	defer lifecycle.Set(lifecycle.Serving)

	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"starting"`)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(r), header)
	}
}
