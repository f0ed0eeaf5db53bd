package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	clock := newFakeClock()
	limiter, err := New(NewMemoryStore(), 3, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	limiter.WithClock(clock.Now)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "client-a")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied within budget", i)
		}
		if res.Remaining != 3-(i+1) {
			t.Errorf("request %d: remaining = %d", i, res.Remaining)
		}
	}

	res, err := limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth request allowed over a budget of 3")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v", res.RetryAfter)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter, err := New(NewMemoryStore(), 1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	limiter.WithClock(clock.Now)

	ctx := context.Background()
	if res, _ := limiter.Allow(ctx, "client-a"); !res.Allowed {
		t.Fatal("client-a denied on first request")
	}
	if res, _ := limiter.Allow(ctx, "client-a"); res.Allowed {
		t.Fatal("client-a allowed over budget")
	}
	if res, _ := limiter.Allow(ctx, "client-b"); !res.Allowed {
		t.Fatal("client-b affected by client-a's budget")
	}
}

func TestLimiterWindowResets(t *testing.T) {
	clock := newFakeClock()
	limiter, err := New(NewMemoryStore(), 2, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	limiter.WithClock(clock.Now)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if res, _ := limiter.Allow(ctx, "client-a"); !res.Allowed {
			t.Fatalf("request %d denied", i)
		}
	}
	if res, _ := limiter.Allow(ctx, "client-a"); res.Allowed {
		t.Fatal("allowed over budget before reset")
	}

	clock.Advance(time.Minute)
	res, err := limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !res.Allowed {
		t.Fatal("denied after the window reset")
	}
	if res.Remaining != 1 {
		t.Errorf("remaining after reset = %d", res.Remaining)
	}
}

func TestLimiterRetryAfterShrinksWithinWindow(t *testing.T) {
	// Base the clock on a window boundary so the arithmetic is exact.
	clock := newFakeClock()
	clock.now = clock.now.Truncate(time.Minute)
	limiter, err := New(NewMemoryStore(), 1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	limiter.WithClock(clock.Now)

	ctx := context.Background()
	if _, err := limiter.Allow(ctx, "client-a"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	clock.Advance(40 * time.Second)
	res, err := limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("allowed over budget")
	}
	if res.RetryAfter != 20*time.Second {
		t.Errorf("RetryAfter = %v, want 20s", res.RetryAfter)
	}
}

type failingStore struct{}

func (failingStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("backend down")
}

func TestLimiterSurfacesStoreErrors(t *testing.T) {
	limiter, err := New(failingStore{}, 10, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := limiter.Allow(context.Background(), "client-a"); err == nil {
		t.Fatal("expected store failure to surface as an error")
	}
}

func TestNewValidation(t *testing.T) {
	store := NewMemoryStore()
	if _, err := New(nil, 10, time.Minute); err == nil {
		t.Error("nil store accepted")
	}
	if _, err := New(store, 0, time.Minute); err == nil {
		t.Error("zero limit accepted")
	}
	if _, err := New(store, 10, 0); err == nil {
		t.Error("zero window accepted")
	}
}

func TestPresets(t *testing.T) {
	store := NewMemoryStore()

	strict, err := NewStrict(store)
	if err != nil {
		t.Fatalf("NewStrict: %v", err)
	}
	if strict.Limit() != 10 || strict.Window() != 15*time.Minute {
		t.Errorf("strict preset = %d per %v", strict.Limit(), strict.Window())
	}

	lenient, err := NewLenient(store)
	if err != nil {
		t.Fatalf("NewLenient: %v", err)
	}
	if lenient.Limit() != 100 || lenient.Window() != time.Minute {
		t.Errorf("lenient preset = %d per %v", lenient.Limit(), lenient.Window())
	}
}

func TestRedisStoreCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "test:rate")

	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "client-a:100", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}

	// The counter dies with the window.
	mr.FastForward(2 * time.Minute)
	got, err := store.Incr(ctx, "client-a:100", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if got != 1 {
		t.Fatalf("count after expiry = %d, want 1", got)
	}
}

func TestLimiterWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	limiter, err := New(NewRedisStore(client, ""), 2, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	limiter.WithClock(clock.Now)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if res, err := limiter.Allow(ctx, "client-a"); err != nil || !res.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, res.Allowed, err)
		}
	}
	if res, err := limiter.Allow(ctx, "client-a"); err != nil || res.Allowed {
		t.Fatalf("over-budget request: allowed=%v err=%v", res.Allowed, err)
	}

	// A new window means a new slot key; no Redis TTL wait needed.
	clock.Advance(time.Minute)
	if res, err := limiter.Allow(ctx, "client-a"); err != nil || !res.Allowed {
		t.Fatalf("post-reset request: allowed=%v err=%v", res.Allowed, err)
	}
}
