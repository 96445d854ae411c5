package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	ForecastDays      int

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	DefaultCity      string
	FetchMinInterval time.Duration
	RefreshInterval  time.Duration
	SunArcRadius     float64

	SessionBackend        string // "in_memory" or "memcached"
	SessionTTL            time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	AccountBackend string // "in_memory" or "postgres"
	DatabaseURL    string
	BcryptCost     int

	CircuitBreakerEnabled  bool
	CircuitBreakerFailures uint32
	CircuitBreakerTimeout  time.Duration

	HealthWindow      time.Duration
	HealthErrorPct    int
	HealthMinRequests int

	ShutdownTimeout time.Duration

	TrackedCities []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL          string `yaml:"url"`
		Timeout      string `yaml:"timeout"`
		ForecastDays int    `yaml:"forecast_days"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout        string `yaml:"timeout"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"request"`

	Dashboard struct {
		DefaultCity      string  `yaml:"default_city"`
		FetchMinInterval string  `yaml:"fetch_min_interval"`
		RefreshInterval  string  `yaml:"refresh_interval"`
		SunArcRadius     float64 `yaml:"sun_arc_radius"`
	} `yaml:"dashboard"`

	Sessions struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"sessions"`

	Accounts struct {
		Backend     string `yaml:"backend"`
		DatabaseURL string `yaml:"database_url"`
		BcryptCost  int    `yaml:"bcrypt_cost"`
	} `yaml:"accounts"`

	CircuitBreaker struct {
		Enabled             *bool  `yaml:"enabled"`
		ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
		Timeout             string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Health struct {
		Window      string `yaml:"window"`
		ErrorPct    int    `yaml:"error_pct"`
		MinRequests int    `yaml:"min_requests"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	DatabaseURL   string `yaml:"database_url"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// An optional .env in the working directory is loaded first; variables already set win.
// API key comes from WEATHER_API_KEY env or secrets file. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		cfg.WeatherAPIKey = sec.WeatherAPIKey
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.weatherapi.com/v1/forecast.json"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.ForecastDays = fc.WeatherAPI.ForecastDays
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = 7
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 8*time.Second)
	cfg.RateLimitRPS = fc.Request.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Request.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.DefaultCity = strings.TrimSpace(fc.Dashboard.DefaultCity)
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = "London"
	}
	cfg.FetchMinInterval = parseDuration(fc.Dashboard.FetchMinInterval, 2*time.Second)
	cfg.RefreshInterval = parseDuration(fc.Dashboard.RefreshInterval, 10*time.Minute)
	cfg.SunArcRadius = fc.Dashboard.SunArcRadius
	if cfg.SunArcRadius <= 0 {
		cfg.SunArcRadius = 120
	}

	cfg.SessionBackend = envOr("SESSION_BACKEND", fc.Sessions.Backend, "in_memory")
	cfg.SessionTTL = parseDuration(fc.Sessions.TTL, 24*time.Hour)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Sessions.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Sessions.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Sessions.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.AccountBackend = envOr("ACCOUNT_BACKEND", fc.Accounts.Backend, "in_memory")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = sec.DatabaseURL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fc.Accounts.DatabaseURL
	}
	cfg.BcryptCost = fc.Accounts.BcryptCost
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	cfg.CircuitBreakerEnabled = true
	if fc.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerFailures = fc.CircuitBreaker.ConsecutiveFailures
	if cfg.CircuitBreakerFailures == 0 {
		cfg.CircuitBreakerFailures = 5
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.HealthErrorPct = fc.Health.ErrorPct
	if cfg.HealthErrorPct <= 0 {
		cfg.HealthErrorPct = 50
	}
	cfg.HealthMinRequests = fc.Health.MinRequests
	if cfg.HealthMinRequests <= 0 {
		cfg.HealthMinRequests = 5
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.TrackedCities = fc.Metrics.TrackedCities

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

// envOr returns the lowercased env override, else the file value, else def.
func envOr(key, fileVal, def string) string {
	if v := strings.TrimSpace(strings.ToLower(os.Getenv(key))); v != "" {
		return v
	}
	if v := strings.TrimSpace(strings.ToLower(fileVal)); v != "" {
		return v
	}
	return def
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// RequestTimeout is raised above WeatherAPITimeout so the upstream deadline fires first.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.SessionBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("sessions.backend must be in_memory or memcached, got %q", cfg.SessionBackend)
	}
	switch cfg.AccountBackend {
	case "in_memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("accounts.backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("accounts.backend must be in_memory or postgres, got %q", cfg.AccountBackend)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("accounts.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if !models.ValidRefreshInterval(cfg.RefreshInterval) {
		return fmt.Errorf("dashboard.refresh_interval must be one of %v, got %v", models.RefreshIntervals, cfg.RefreshInterval)
	}
	return nil
}
