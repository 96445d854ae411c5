package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
)

// BenchmarkClient_BuildRequest benchmarks HTTP request construction.
func BenchmarkClient_BuildRequest(b *testing.B) {
	client, _ := NewWeatherAPIClient("test-api-key-12345", "https://api.weatherapi.com/v1/forecast.json", 2*time.Second, 7, BreakerSettings{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.buildRequest(ctx, "London", 7)
	}
}

// BenchmarkClient_ParseResponse benchmarks forecast payload decoding.
func BenchmarkClient_ParseResponse(b *testing.B) {
	body := []byte(forecastJSON)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var p models.ForecastPayload
		_ = json.Unmarshal(body, &p)
	}
}

// BenchmarkClient_GetForecast benchmarks the full call path against a local server.
func BenchmarkClient_GetForecast(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(forecastJSON))
	}))
	defer server.Close()

	client, _ := NewWeatherAPIClient("test-api-key-12345", server.URL, 2*time.Second, 7, DefaultBreakerSettings())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.GetForecast(ctx, "London")
	}
}
