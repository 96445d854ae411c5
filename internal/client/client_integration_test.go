//go:build integration
// +build integration

package client

import (
	"context"
	"os"
	"testing"
	"time"
)

const liveForecastURL = "https://api.weatherapi.com/v1/forecast.json"

func TestWeatherAPIClient_ValidateAPIKey_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	client, err := NewWeatherAPIClient(apiKey, liveForecastURL, 5*time.Second, 7, DefaultBreakerSettings())
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}

	if err := client.ValidateAPIKey(context.Background()); err != nil {
		t.Errorf("ValidateAPIKey() error = %v, want nil", err)
	}
}

func TestWeatherAPIClient_GetForecast_Integration(t *testing.T) {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	client, err := NewWeatherAPIClient(apiKey, liveForecastURL, 5*time.Second, 3, DefaultBreakerSettings())
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}

	payload, err := client.GetForecast(context.Background(), "London")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if payload.Location == nil || payload.Location.Name == "" {
		t.Error("GetForecast() returned empty location")
	}
	if len(payload.Days()) == 0 {
		t.Error("GetForecast() returned no forecast days")
	}
}
