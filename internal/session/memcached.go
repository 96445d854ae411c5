package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "session:"

// maxRelativeExp is memcached's limit for relative expirations (30 days).
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedStore implements Store using memcached with JSON-encoded values.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func key(token string) string {
	return keyPrefix + token
}

// Get implements Store.Get. Returns false, nil on a miss; false, err on error.
func (m *MemcachedStore) Get(ctx context.Context, token string) (Session, bool, error) {
	if ctx.Err() != nil {
		return Session{}, false, ctx.Err()
	}
	item, err := m.client.Get(key(token))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("memcached get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(item.Value, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return s, true, nil
}

// Put implements Store.Put.
func (m *MemcachedStore) Put(ctx context.Context, s Session, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.client.Set(&memcache.Item{
		Key:        key(s.Token),
		Value:      raw,
		Expiration: expiration(ttl),
	}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

// Delete implements Store.Delete. Deleting a missing key is not an error.
func (m *MemcachedStore) Delete(ctx context.Context, token string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := m.client.Delete(key(token)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcached delete: %w", err)
	}
	return nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (m *MemcachedStore) Ping(ctx context.Context) error {
	return m.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (m *MemcachedStore) Close() error {
	return m.client.Close()
}

// expiration converts a TTL to memcached seconds, clamped to the relative limit.
func expiration(ttl time.Duration) int32 {
	sec := int64(ttl / time.Second)
	if sec <= 0 {
		return 3600
	}
	if sec > maxRelativeExp {
		return maxRelativeExp
	}
	return int32(sec)
}
