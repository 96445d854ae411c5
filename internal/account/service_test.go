package account

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weatherx-dashboard/internal/validation"
)

var now = time.Date(2025, 9, 11, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, bcrypt.MinCost, clockwork.NewFakeClockAt(now), nil), store
}

func TestRegister_StoresHashedPassword(t *testing.T) {
	svc, store := newTestService()
	a, err := svc.Register(context.Background(), RegisterRequest{
		Email: " Ada@Example.com ", Password: "secret1", City: " London ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.Equal(t, "London", a.City)
	assert.Equal(t, now, a.CreatedAt)
	assert.NotEqual(t, "secret1", a.PasswordHash)

	stored, err := store.Get(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"bad email", RegisterRequest{"ada", "secret1", "London"}, validation.ErrInvalidEmail},
		{"short password", RegisterRequest{"ada@example.com", "12345", "London"}, validation.ErrPasswordTooWeak},
		{"password over bcrypt limit", RegisterRequest{"ada@example.com", strings.Repeat("p", 73), "London"}, validation.ErrPasswordTooLong},
		{"bad city", RegisterRequest{"ada@example.com", "secret1", "L0ndon"}, validation.ErrInvalidCity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.accounts)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{"ada@example.com", "secret1", "London"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{"ADA@example.com", "other12", "Paris"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{"ada@example.com", "secret1", "London"})
	require.NoError(t, err)

	a, err := svc.Authenticate(ctx, "Ada@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "London", a.City)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRequestPasswordReset(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{"ada@example.com", "secret1", "London"})
	require.NoError(t, err)

	assert.NoError(t, svc.RequestPasswordReset(ctx, "ada@example.com"))
	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "bob@example.com"), ErrAccountNotFound)
	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "bob"), validation.ErrInvalidEmail)
}
