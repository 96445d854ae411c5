//go:build integration
// +build integration

// Package testhelpers builds a live dashboard stack for integration tests.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weatherx-dashboard/internal/account"
	"github.com/kjstillabower/weatherx-dashboard/internal/client"
	"github.com/kjstillabower/weatherx-dashboard/internal/dashboard"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
	"github.com/kjstillabower/weatherx-dashboard/internal/service"
	"github.com/kjstillabower/weatherx-dashboard/internal/session"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey         string
	APIURL         string
	SessionBackend string // "in_memory" or "memcached"
	MemcachedAddr  string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}
	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.weatherapi.com/v1/forecast.json"
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		APIKey:         apiKey,
		APIURL:         apiURL,
		SessionBackend: os.Getenv("SESSION_BACKEND"),
		MemcachedAddr:  memcachedAddr,
	}
}

// Stack is a wired dashboard service with its collaborators.
type Stack struct {
	Client    *client.WeatherAPIClient
	Accounts  *account.Service
	Dashboard *service.DashboardService
	Sessions  session.Store
}

// SetupIntegrationStack wires a real provider client, in-memory accounts and the
// configured session backend. Falls back to in-memory sessions when memcached is down.
func SetupIntegrationStack(t *testing.T, cfg IntegrationTestConfig) (*Stack, func()) {
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	weatherClient, err := client.NewWeatherAPIClient(cfg.APIKey, cfg.APIURL, 5*time.Second, 3, client.DefaultBreakerSettings())
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}

	var sessions session.Store = session.NewInMemoryStore(nil)
	cleanup := func() {}
	if cfg.SessionBackend == "memcached" {
		mc := session.NewMemcachedStore(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err := mc.Ping(t.Context()); err == nil {
			sessions = mc
			cleanup = func() { _ = mc.Close() }
			t.Logf("Using memcached sessions at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("memcached not available (%v), using in-memory sessions", err)
		}
	}

	accounts := account.NewService(account.NewMemoryStore(), bcrypt.MinCost, nil, logger)
	dash := service.NewDashboardService(weatherClient, accounts, sessions, dashboard.NewBuilder(nil, 0), nil, nil, service.Options{
		DefaultCity:      "London",
		FetchMinInterval: 2 * time.Second,
		RefreshInterval:  10 * time.Minute,
		SessionTTL:       time.Hour,
	})
	return &Stack{Client: weatherClient, Accounts: accounts, Dashboard: dash, Sessions: sessions}, cleanup
}
