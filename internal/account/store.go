// Package account stores registered users and checks their credentials.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Account is a stored user record. PasswordHash is a bcrypt hash, never the password.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	City         string    `json:"city"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists accounts keyed by lowercased email.
type Store interface {
	Create(ctx context.Context, a Account) error
	Get(ctx context.Context, email string) (Account, error)
	Ping(ctx context.Context) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore implements Store with a map. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (m *MemoryStore) Create(ctx context.Context, a Account) error {
	key := normalizeEmail(a.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[key]; exists {
		return ErrDuplicateEmail
	}
	a.Email = key
	m.accounts[key] = a
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
