package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherx-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
	"github.com/kjstillabower/weatherx-dashboard/internal/traffic"
)

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	ErrorWindow time.Duration
	ErrorPct    int
	MinRequests int
	// BreakerState reports the upstream breaker: "closed", "half-open", "open" or "disabled".
	BreakerState func() string
	// Pings are store probes by name (e.g. "sessions", "accounts").
	Pings     func(ctx context.Context) map[string]error
	StartTime time.Time
}

var (
	healthStatusMu   sync.Mutex
	healthStatusPrev string
)

type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	healthStatusMu.Lock()
	if healthStatusPrev != "" && healthStatusPrev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", healthStatusPrev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	healthStatusPrev = result.status
	healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.health != nil && !h.health.StartTime.IsZero() {
		resp["uptime"] = time.Since(h.health.StartTime).Round(time.Second).String()
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: lifecycle phase, unreachable stores, open
// breaker, then the upstream error rate. The first failing condition decides.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := map[string]string{}
	switch phase := lifecycle.Current(); phase {
	case lifecycle.Starting:
		return healthResult{phase.String(), http.StatusServiceUnavailable, "startup", checks}
	case lifecycle.Draining:
		return healthResult{phase.String(), http.StatusServiceUnavailable, "signal", checks}
	}
	if h.health == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	storesDown := false
	if h.health.Pings != nil {
		for name, err := range h.health.Pings(ctx) {
			if err != nil {
				checks[name] = "unhealthy"
				storesDown = true
				h.logger.Warn("health probe failed", zap.String("check", name), zap.Error(err))
			} else {
				checks[name] = "healthy"
			}
		}
	}

	breaker := "disabled"
	if h.health.BreakerState != nil {
		breaker = h.health.BreakerState()
	}
	checks["circuitBreaker"] = breaker

	degraded := h.health.ErrorWindow > 0 && h.health.ErrorPct > 0 &&
		traffic.Degraded(h.health.ErrorWindow, h.health.ErrorPct, h.health.MinRequests)
	if degraded || breaker == "open" {
		checks["weatherApi"] = "unhealthy"
	} else {
		checks["weatherApi"] = "healthy"
	}
	if h.health.ErrorWindow > 0 {
		errs, total := traffic.ErrorRate(h.health.ErrorWindow)
		checks["upstreamErrors"] = fmt.Sprintf("%d/%d", errs, total)
		checks["rateLimitDenials"] = strconv.Itoa(traffic.DenialCount(h.health.ErrorWindow))
	}

	switch {
	case storesDown:
		return healthResult{"unhealthy", http.StatusServiceUnavailable, "store_unreachable", checks}
	case breaker == "open":
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open", checks}
	case degraded:
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", checks}
	}
	return healthResult{"healthy", http.StatusOK, "", checks}
}
