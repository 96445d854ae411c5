// Package service ties logins, sessions and forecast fetches together for the dashboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherx-dashboard/internal/account"
	"github.com/kjstillabower/weatherx-dashboard/internal/client"
	"github.com/kjstillabower/weatherx-dashboard/internal/dashboard"
	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
	"github.com/kjstillabower/weatherx-dashboard/internal/session"
	"github.com/kjstillabower/weatherx-dashboard/internal/traffic"
	"github.com/kjstillabower/weatherx-dashboard/internal/validation"
)

var (
	ErrUnauthorized       = errors.New("session expired or invalid")
	ErrNoSnapshot         = errors.New("no forecast loaded yet")
	ErrThrottled          = errors.New("fetch throttled")
	ErrInvalidQuery       = errors.New("invalid location query")
	ErrInvalidPreferences = errors.New("invalid preferences")
)

// Scheduler runs recurring refreshes per session token.
type Scheduler interface {
	Schedule(token string, every time.Duration) error
	Stop(token string)
}

// Options holds the dashboard tunables from config.
type Options struct {
	DefaultCity      string
	FetchMinInterval time.Duration
	RefreshInterval  time.Duration
	SessionTTL       time.Duration
	// FetchTimeout bounds a shared upstream call, which outlives any single caller.
	FetchTimeout time.Duration
}

// Result is one rendered dashboard.
type Result struct {
	View      dashboard.View `json:"view"`
	Query     string         `json:"query"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Throttled bool           `json:"throttled"`
}

// DashboardService owns the fetch throttle, the shared in-flight fetches and the
// per-session forecast snapshot.
type DashboardService struct {
	client    client.ForecastClient
	accounts  *account.Service
	sessions  session.Store
	builder   *dashboard.Builder
	scheduler Scheduler
	clock     clockwork.Clock
	opts      Options

	flight singleflight.Group

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	locks    map[string]*sync.Mutex
}

// NewDashboardService wires the service. scheduler may be nil, which disables auto-refresh.
func NewDashboardService(c client.ForecastClient, accounts *account.Service, sessions session.Store, builder *dashboard.Builder, scheduler Scheduler, clock clockwork.Clock, opts Options) *DashboardService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.FetchMinInterval <= 0 {
		opts.FetchMinInterval = 2 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &DashboardService{
		client:    c,
		accounts:  accounts,
		sessions:  sessions,
		builder:   builder,
		scheduler: scheduler,
		clock:     clock,
		opts:      opts,
		limiters:  make(map[string]*rate.Limiter),
		locks:     make(map[string]*sync.Mutex),
	}
}

// loggerFromContext extracts a zap.Logger from request context, or a no-op logger.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}

// Login checks credentials and opens a session with default preferences.
func (s *DashboardService) Login(ctx context.Context, email, password string) (session.Session, error) {
	a, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	sess := session.New(a.Email, a.City, models.DefaultPreferences(s.opts.RefreshInterval), s.clock.Now().UTC())
	if err := s.sessions.Put(ctx, sess, s.opts.SessionTTL); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	loggerFromContext(ctx).Info("session opened")
	return sess, nil
}

// Logout stops the session's auto-refresh and forgets it.
func (s *DashboardService) Logout(ctx context.Context, token string) error {
	if s.scheduler != nil {
		s.scheduler.Stop(token)
	}
	s.forget(token)
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Session returns the live session for token or ErrUnauthorized.
func (s *DashboardService) Session(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, ErrUnauthorized
	}
	sess, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		s.forget(token)
		return session.Session{}, ErrUnauthorized
	}
	return sess, nil
}

// Dashboard fetches the forecast for q and renders it. An empty q falls back to the
// session's last query, then the account city, then the configured default city.
// A trigger inside the throttle window is answered from the snapshot.
func (s *DashboardService) Dashboard(ctx context.Context, token, q string) (Result, error) {
	logger := loggerFromContext(ctx)
	sess, err := s.Session(ctx, token)
	if err != nil {
		return Result{}, err
	}

	query, err := s.resolveQuery(sess, q)
	if err != nil {
		return Result{}, err
	}

	if !s.limiter(token).AllowN(s.clock.Now(), 1) {
		observability.FetchThrottledTotal.Inc()
		logger.Debug("fetch throttled", zap.String("query", query))
		if sess.Snapshot == nil {
			return Result{}, ErrThrottled
		}
		res, err := s.render(sess)
		res.Throttled = true
		return res, err
	}

	observability.RecordDashboardQuery(query)
	payload, err := s.fetch(ctx, query)
	if err != nil {
		logger.Warn("forecast fetch failed", zap.String("query", query), zap.Error(err))
		return Result{}, err
	}

	sess, err = s.saveSnapshot(ctx, token, query, payload)
	if err != nil {
		return Result{}, err
	}
	return s.render(sess)
}

// Current re-renders the stored snapshot with the session's current preferences.
func (s *DashboardService) Current(ctx context.Context, token string) (Result, error) {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return Result{}, err
	}
	if sess.Snapshot == nil {
		return Result{}, ErrNoSnapshot
	}
	return s.render(sess)
}

// Refresh re-fetches the session's last query and replaces its snapshot. Sessions
// that never loaded a forecast are skipped. Used by the scheduler.
func (s *DashboardService) Refresh(ctx context.Context, token string) (bool, error) {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return false, err
	}
	if sess.Snapshot == nil || sess.LastQuery == "" {
		return false, nil
	}
	payload, err := s.fetch(ctx, sess.LastQuery)
	if err != nil {
		return false, err
	}
	if _, err := s.saveSnapshot(ctx, token, sess.LastQuery, payload); err != nil {
		return false, err
	}
	return true, nil
}

// Preferences returns the session's preferences.
func (s *DashboardService) Preferences(ctx context.Context, token string) (models.Preferences, error) {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return models.Preferences{}, err
	}
	return sess.Preferences, nil
}

// UpdatePreferences validates and stores p, then starts, reschedules or stops auto-refresh.
func (s *DashboardService) UpdatePreferences(ctx context.Context, token string, p models.Preferences) (models.Preferences, error) {
	if err := validation.Struct(p); err != nil {
		return models.Preferences{}, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}

	unlock := s.lock(token)
	sess, err := s.Session(ctx, token)
	if err != nil {
		unlock()
		return models.Preferences{}, err
	}
	sess.Preferences = p
	err = s.sessions.Put(ctx, sess, s.opts.SessionTTL)
	unlock()
	if err != nil {
		return models.Preferences{}, fmt.Errorf("save session: %w", err)
	}

	if s.scheduler != nil {
		if p.AutoRefresh {
			if err := s.scheduler.Schedule(token, p.RefreshInterval()); err != nil {
				return p, fmt.Errorf("schedule refresh: %w", err)
			}
		} else {
			s.scheduler.Stop(token)
		}
	}
	return p, nil
}

func (s *DashboardService) resolveQuery(sess session.Session, q string) (string, error) {
	for _, candidate := range []string{q, sess.LastQuery, sess.City, s.opts.DefaultCity} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		query, err := validation.ValidateQuery(candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return query, nil
	}
	return "", fmt.Errorf("%w: %w", ErrInvalidQuery, validation.ErrLocationEmpty)
}

// fetch shares one upstream call among concurrent fetches of the same query. The
// shared call runs detached from the caller that started it, so a caller that goes
// away only abandons its own wait.
func (s *DashboardService) fetch(ctx context.Context, query string) (models.ForecastPayload, error) {
	ch := s.flight.DoChan(validation.NormalizeQuery(query), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FetchTimeout)
		defer cancel()
		payload, err := s.client.GetForecast(callCtx, query)
		recordOutcome(err)
		return payload, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.ForecastPayload{}, fmt.Errorf("fetch forecast for %s: %w", query, res.Err)
		}
		return res.Val.(models.ForecastPayload), nil
	case <-ctx.Done():
		return models.ForecastPayload{}, fmt.Errorf("fetch forecast for %s: %w", query, ctx.Err())
	}
}

// recordOutcome feeds the health error rate once per upstream call. Unknown cities
// and malformed queries are answers, not faults.
func recordOutcome(err error) {
	if err == nil || client.IsCallerError(err) {
		traffic.RecordSuccess()
		return
	}
	traffic.RecordError()
}

// saveSnapshot re-reads the session under its lock so concurrent preference updates
// are not lost. The last response to arrive wins.
func (s *DashboardService) saveSnapshot(ctx context.Context, token, query string, payload models.ForecastPayload) (session.Session, error) {
	unlock := s.lock(token)
	defer unlock()

	sess, err := s.Session(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	sess.Snapshot = &payload
	sess.LastQuery = query
	sess.LastFetch = s.clock.Now().UTC()
	if err := s.sessions.Put(ctx, sess, s.opts.SessionTTL); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *DashboardService) render(sess session.Session) (Result, error) {
	view, err := s.builder.Build(*sess.Snapshot, sess.Preferences.Units())
	if err != nil {
		observability.DashboardBuildsTotal.WithLabelValues("invalid_payload").Inc()
		return Result{}, err
	}
	observability.DashboardBuildsTotal.WithLabelValues("ok").Inc()
	for _, in := range view.Insights {
		observability.InsightsEmittedTotal.WithLabelValues(in.Title).Inc()
	}
	return Result{View: view, Query: sess.LastQuery, FetchedAt: sess.LastFetch}, nil
}

func (s *DashboardService) limiter(token string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[token]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.opts.FetchMinInterval), 1)
		s.limiters[token] = l
	}
	return l
}

// forget drops the per-token throttle and lock once a session is gone.
func (s *DashboardService) forget(token string) {
	s.mu.Lock()
	delete(s.limiters, token)
	delete(s.locks, token)
	s.mu.Unlock()
}

func (s *DashboardService) lock(token string) func() {
	s.mu.Lock()
	m, ok := s.locks[token]
	if !ok {
		m = &sync.Mutex{}
		s.locks[token] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Ping checks the session and account stores.
func (s *DashboardService) Ping(ctx context.Context) map[string]error {
	return map[string]error{
		"sessions": s.sessions.Ping(ctx),
		"accounts": s.accounts.Ping(ctx),
	}
}
