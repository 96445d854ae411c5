//go:build integration
// +build integration

package account

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostgresStore_Integration needs DATABASE_URL pointing at a scratch database.
func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	email := uuid.NewString() + "@example.com"
	a := Account{Email: email, PasswordHash: "hash", City: "London", CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	require.NoError(t, store.Create(ctx, a))
	assert.ErrorIs(t, store.Create(ctx, a), ErrDuplicateEmail)

	got, err := store.Get(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "London", got.City)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	_, err = store.Get(ctx, "missing-"+email)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, store.Ping(ctx))
}
