package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock shared by a limiter and its test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
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

func TestNewRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	if rl.limit != 10 || rl.burst != 20 {
		t.Errorf("unexpected defaults: limit %v burst %d", rl.limit, rl.burst)
	}
	if rl.idleTTL != 10*time.Minute {
		t.Errorf("unexpected idle ttl %v", rl.idleTTL)
	}
}

func TestAllow_BurstThenRefill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(RateLimitConfig{RPS: 2, Burst: 3, Now: clock.Now})
	defer rl.Stop()

	for i, want := range []int{2, 1, 0} {
		allowed, remaining, _ := rl.Allow("user:1")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != want {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, want, remaining)
		}
	}

	allowed, _, retryAfter := rl.Allow("user:1")
	if allowed {
		t.Fatal("fourth request should be denied")
	}
	if retryAfter != 500*time.Millisecond {
		t.Errorf("expected retry after 500ms, got %v", retryAfter)
	}

	// a denied request does not consume the next token
	clock.Advance(500 * time.Millisecond)
	if allowed, _, _ := rl.Allow("user:1"); !allowed {
		t.Error("request should be allowed after refill")
	}
}

func TestAllow_SeparateKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, Now: clock.Now})
	defer rl.Stop()

	if allowed, _, _ := rl.Allow("user:1"); !allowed {
		t.Fatal("first key should be allowed")
	}
	if allowed, _, _ := rl.Allow("user:1"); allowed {
		t.Fatal("first key should be exhausted")
	}
	if allowed, _, _ := rl.Allow("user:2"); !allowed {
		t.Error("second key has its own bucket")
	}
	if rl.Len() != 2 {
		t.Errorf("expected 2 tracked clients, got %d", rl.Len())
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 50, Now: clock.Now})
	defer rl.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := rl.Allow("203.0.113.7"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly the burst to pass, got %d", allowed)
	}
}

func TestEvictIdle(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute, Now: clock.Now})
	defer rl.Stop()

	rl.Allow("old")
	clock.Advance(2 * time.Minute)
	rl.Allow("fresh")
	rl.evictIdle()

	if rl.Len() != 1 {
		t.Fatalf("expected 1 tracked client, got %d", rl.Len())
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Error("fresh client must be kept")
	}
}

func TestStop_Idempotent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{Cleanup: time.Millisecond})
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.5, Burst: 1, Now: clock.Now})
	defer rl.Stop()

	var calls int
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	send := func(remoteAddr, userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/participations/participation:1/locations", nil)
		req.RemoteAddr = remoteAddr
		if userID != "" {
			req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	rr := send("203.0.113.7:5000", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected headers %v", rr.Header())
	}

	// same IP, different port shares the bucket
	rr = send("203.0.113.7:6000", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After 2, got %q", rr.Header().Get("Retry-After"))
	}

	// an authenticated user is keyed by user ID
	if rr := send("203.0.113.7:7000", "user:1"); rr.Code != http.StatusOK {
		t.Errorf("expected status 200 for user key, got %d", rr.Code)
	}
	if calls != 2 {
		t.Errorf("expected 2 handler calls, got %d", calls)
	}
}
