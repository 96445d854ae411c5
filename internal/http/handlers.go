package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherx-dashboard/internal/account"
	"github.com/kjstillabower/weatherx-dashboard/internal/client"
	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/service"
	"github.com/kjstillabower/weatherx-dashboard/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 16

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard *service.DashboardService
	accounts  *account.Service
	health    *HealthConfig
	logger    *zap.Logger
}

// NewHandler returns a new Handler. health may be nil.
func NewHandler(dashboard *service.DashboardService, accounts *account.Service, health *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dashboard: dashboard, accounts: accounts, health: health, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	City  string `json:"city"`
}

// Register handles POST /accounts.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Login handles POST /sessions.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.dashboard.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loginResponse{Token: sess.Token, Email: sess.Email, City: sess.City})
}

// Logout handles DELETE /sessions.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, err := h.dashboard.Session(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.dashboard.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PasswordReset handles POST /password-reset. Nothing is sent; the response only
// says whether the account exists.
func (h *Handler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Password reset instructions would be sent to " + strings.TrimSpace(req.Email),
	})
}

// GetPreferences handles GET /preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.dashboard.Preferences(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// PutPreferences handles PUT /preferences. The body replaces all preferences.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if !decodeBody(w, r, &prefs) {
		return
	}
	saved, err := h.dashboard.UpdatePreferences(r.Context(), bearerToken(r), prefs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// GetDashboard handles GET /dashboard?q=.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.dashboard.Dashboard(r.Context(), bearerToken(r), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCurrentDashboard handles GET /dashboard/current.
func (h *Handler) GetCurrentDashboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.dashboard.Current(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// bearerToken returns the token from "Authorization: Bearer <token>", or "".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		corrID = v
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first errors.Is match wins. An empty message
// shows the error's own text.
var errorMappings = []errorMapping{
	{service.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Please log in again"},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{account.ErrDuplicateEmail, http.StatusConflict, "EMAIL_TAKEN", ""},
	{account.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "No account found with this email"},
	{validation.ErrInvalidEmail, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{validation.ErrPasswordTooWeak, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{validation.ErrPasswordTooLong, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{validation.ErrInvalidCity, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{service.ErrInvalidPreferences, http.StatusBadRequest, "INVALID_PREFERENCES", ""},
	{service.ErrInvalidQuery, http.StatusBadRequest, "INVALID_QUERY", "Please enter a valid city name or coordinates"},
	{client.ErrInvalidQuery, http.StatusBadRequest, "INVALID_QUERY", "Please enter a valid city name or coordinates"},
	{client.ErrLocationNotFound, http.StatusNotFound, "LOCATION_NOT_FOUND", "City not found. Please check the spelling and try again."},
	{service.ErrNoSnapshot, http.StatusNotFound, "NO_FORECAST", "No forecast loaded yet"},
	{service.ErrThrottled, http.StatusTooManyRequests, "FETCH_THROTTLED", "Please wait before refreshing again"},
}

// writeServiceError maps domain errors to status codes. Upstream failures become
// 503 UPSTREAM_UNAVAILABLE; anything unrecognised is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger, _ := r.Context().Value("logger").(*zap.Logger)
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			writeError(w, r, m.status, m.code, msg)
			return
		}
	}
	if client.CategorizeError(err) != client.ErrorCategoryUnknown {
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
		if logger != nil {
			logger.Debug("upstream error", zap.Error(err))
		}
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	if logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
}
