package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
)

// NewRouter mounts every route. Upstream-facing routes get the rate limiter and the
// request timeout. Responses are gzip-compressed when the client accepts it.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) http.Handler {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	router.HandleFunc("/accounts", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/sessions", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/sessions", h.Logout).Methods(http.MethodDelete)
	router.HandleFunc("/password-reset", h.PasswordReset).Methods(http.MethodPost)
	router.HandleFunc("/preferences", h.GetPreferences).Methods(http.MethodGet)
	router.HandleFunc("/preferences", h.PutPreferences).Methods(http.MethodPut)

	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.Use(RateLimitMiddleware(limiter))
	if requestTimeout > 0 {
		dashboardRouter.Use(TimeoutMiddleware(requestTimeout))
	}
	dashboardRouter.HandleFunc("", h.GetDashboard).Methods(http.MethodGet)
	dashboardRouter.HandleFunc("/current", h.GetCurrentDashboard).Methods(http.MethodGet)

	return gzhttp.GzipHandler(router)
}
