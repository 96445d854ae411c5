package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherx-dashboard/internal/account"
	"github.com/kjstillabower/weatherx-dashboard/internal/client"
	"github.com/kjstillabower/weatherx-dashboard/internal/config"
	"github.com/kjstillabower/weatherx-dashboard/internal/dashboard"
	httphandler "github.com/kjstillabower/weatherx-dashboard/internal/http"
	"github.com/kjstillabower/weatherx-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
	"github.com/kjstillabower/weatherx-dashboard/internal/service"
	"github.com/kjstillabower/weatherx-dashboard/internal/session"
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

	weatherClient, err := client.NewWeatherAPIClient(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.ForecastDays,
		client.BreakerSettings{
			Enabled:             cfg.CircuitBreakerEnabled,
			ConsecutiveFailures: cfg.CircuitBreakerFailures,
			Timeout:             cfg.CircuitBreakerTimeout,
			HalfOpenRequests:    1,
		},
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	if cfg.CircuitBreakerEnabled {
		logger.Info("circuit breaker enabled", zap.Uint32("consecutive_failures", cfg.CircuitBreakerFailures), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.WeatherAPITimeout)
	if err := weatherClient.ValidateAPIKey(startupCtx); err != nil {
		logger.Warn("weather API key check failed", zap.Error(err))
	}
	startupCancel()

	var sessions session.Store
	var memcached *session.MemcachedStore
	switch cfg.SessionBackend {
	case "memcached":
		memcached = session.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		sessions = session.NewInstrumented(memcached, "memcached")
		logger.Info("session backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		sessions = session.NewInstrumented(session.NewInMemoryStore(nil), "in_memory")
		logger.Info("session backend: in_memory")
	}

	var accountStore account.Store
	var postgres *account.PostgresStore
	switch cfg.AccountBackend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		postgres, err = account.NewPostgresStore(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("postgres account store", zap.Error(err))
		}
		accountStore = postgres
		logger.Info("account backend: postgres")
	default:
		accountStore = account.NewMemoryStore()
		logger.Info("account backend: in_memory")
	}
	accounts := account.NewService(accountStore, cfg.BcryptCost, nil, logger)

	refresher := service.NewRefresher(cfg.WeatherAPITimeout+time.Second, logger)
	dashboardService := service.NewDashboardService(
		weatherClient,
		accounts,
		sessions,
		dashboard.NewBuilder(nil, cfg.SunArcRadius),
		refresher,
		nil,
		service.Options{
			DefaultCity:      cfg.DefaultCity,
			FetchMinInterval: cfg.FetchMinInterval,
			RefreshInterval:  cfg.RefreshInterval,
			SessionTTL:       cfg.SessionTTL,
			FetchTimeout:     cfg.WeatherAPITimeout + time.Second,
		},
	)
	refresher.Start(dashboardService.Refresh)

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	healthConfig := &httphandler.HealthConfig{
		ErrorWindow:  cfg.HealthWindow,
		ErrorPct:     cfg.HealthErrorPct,
		MinRequests:  cfg.HealthMinRequests,
		BreakerState: weatherClient.BreakerState,
		Pings:        dashboardService.Ping,
		StartTime:    time.Now(),
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(dashboardService, accounts, healthConfig, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 2*time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	go func() {
		logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.Set(lifecycle.Serving)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Set(lifecycle.Draining)
	refresher.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()),
			zap.Any("routes", httphandler.InFlightRoutes()))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer flushCancel()
	if err := observability.FlushTelemetry(flushCtx, logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if postgres != nil {
		postgres.Close()
	}
	logger.Info("shutdown complete")
}
