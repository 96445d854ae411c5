// Package session keeps per-login state: the account summary, preferences, the last
// query and the most recent forecast payload shown to that login.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
)

// Session is what the server holds for one logged-in user.
type Session struct {
	Token       string                  `json:"token"`
	Email       string                  `json:"email"`
	City        string                  `json:"city"`
	Preferences models.Preferences      `json:"preferences"`
	LastQuery   string                  `json:"lastQuery,omitempty"`
	Snapshot    *models.ForecastPayload `json:"snapshot,omitempty"`
	LastFetch   time.Time               `json:"lastFetch,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// New starts a session with a fresh random token.
func New(email, city string, prefs models.Preferences, now time.Time) Session {
	return Session{
		Token:       uuid.NewString(),
		Email:       email,
		City:        city,
		Preferences: prefs,
		CreatedAt:   now,
	}
}

// Store persists sessions. Get returns false, nil on a miss.
type Store interface {
	Get(ctx context.Context, token string) (Session, bool, error)
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// InMemoryStore implements Store using a map with TTL-based expiration.
// Expired entries are removed on access. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.Mutex
	data  map[string]entry
	clock clockwork.Clock
}

type entry struct {
	value     Session
	expiresAt time.Time
}

// NewInMemoryStore creates a store; a nil clock uses real time.
func NewInMemoryStore(clock clockwork.Clock) *InMemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryStore{
		data:  make(map[string]entry),
		clock: clock,
	}
}

// Get returns the session if present and not expired.
func (s *InMemoryStore) Get(ctx context.Context, token string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[token]
	if !ok {
		return Session{}, false, nil
	}
	if s.clock.Now().After(e.expiresAt) {
		delete(s.data, token)
		return Session{}, false, nil
	}
	return e.value, true, nil
}

// Put stores the session and restarts its TTL.
func (s *InMemoryStore) Put(ctx context.Context, sess Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.Token] = entry{
		value:     sess,
		expiresAt: s.clock.Now().Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, token)
	return nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }

// Len reports how many entries are held, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
