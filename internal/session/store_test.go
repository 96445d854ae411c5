package session

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kjstillabower/weatherx-dashboard/internal/models"
	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
)

var start = time.Date(2025, 9, 11, 9, 0, 0, 0, time.UTC)

func testSession() Session {
	return New("ada@example.com", "London", models.DefaultPreferences(10*time.Minute), start)
}

func TestNew_AssignsUniqueTokens(t *testing.T) {
	a, b := testSession(), testSession()
	if a.Token == "" || a.Token == b.Token {
		t.Errorf("tokens %q and %q, want distinct non-empty", a.Token, b.Token)
	}
	if !a.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, start)
	}
}

// TestInMemoryStore_PutGet verifies that Put stores a session and Get returns it unchanged.
func TestInMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(clockwork.NewFakeClockAt(start))

	sess := testSession()
	sess.LastQuery = "Paris"
	sess.Snapshot = &models.ForecastPayload{Location: &models.Location{Name: "Paris"}}
	if err := s.Put(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := s.Get(ctx, sess.Token)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, want hit", ok, err)
	}
	if got.Email != sess.Email || got.LastQuery != "Paris" || got.Snapshot.Location.Name != "Paris" {
		t.Errorf("Get() = %+v, want %+v", got, sess)
	}
}

func TestInMemoryStore_Get_Miss(t *testing.T) {
	s := NewInMemoryStore(nil)
	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryStore_Get_Expired verifies that expired sessions read as misses and are evicted.
func TestInMemoryStore_Get_Expired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(start)
	s := NewInMemoryStore(clock)

	sess := testSession()
	_ = s.Put(ctx, sess, time.Minute)

	clock.Advance(59 * time.Second)
	if _, ok, _ := s.Get(ctx, sess.Token); !ok {
		t.Fatal("Get() ok = false before expiry")
	}

	clock.Advance(2 * time.Second)
	if _, ok, _ := s.Get(ctx, sess.Token); ok {
		t.Error("Get() ok = true, want false after expiry")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry evicted", s.Len())
	}
}

func TestInMemoryStore_PutRestartsTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(start)
	s := NewInMemoryStore(clock)

	sess := testSession()
	_ = s.Put(ctx, sess, time.Minute)
	clock.Advance(50 * time.Second)
	_ = s.Put(ctx, sess, time.Minute)
	clock.Advance(50 * time.Second)

	if _, ok, _ := s.Get(ctx, sess.Token); !ok {
		t.Error("Get() ok = false, want TTL restarted by second Put")
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(nil)
	sess := testSession()
	_ = s.Put(ctx, sess, time.Hour)

	if err := s.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, sess.Token); ok {
		t.Error("Get() ok = true after Delete")
	}
	if err := s.Delete(ctx, sess.Token); err != nil {
		t.Errorf("Delete() of missing token error = %v", err)
	}
}

func TestInstrumented_CountsOperations(t *testing.T) {
	ctx := context.Background()
	s := NewInstrumented(NewInMemoryStore(nil), "test_backend")
	counter := observability.SessionStoreOperationsTotal.WithLabelValues("test_backend", "get", "ok")
	before := testutil.ToFloat64(counter)

	_, _, _ = s.Get(ctx, "missing")
	_, _, _ = s.Get(ctx, "missing")

	if got := testutil.ToFloat64(counter); got != before+2 {
		t.Errorf("get ok count = %v, want %v", got, before+2)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 3600},
		{-time.Second, 3600},
		{90 * time.Second, 90},
		{24 * time.Hour, 86400},
		{60 * 24 * time.Hour, maxRelativeExp},
	}
	for _, tt := range tests {
		if got := expiration(tt.ttl); got != tt.want {
			t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" a:1, ,b:2 ")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("parseAddrs() = %v", got)
	}
}
