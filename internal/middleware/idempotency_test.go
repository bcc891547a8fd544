package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newMemoryStore(t *testing.T) *MemoryIdempotencyStore {
	t.Helper()
	store := NewMemoryIdempotencyStore(IdempotencyConfig{TTL: time.Hour})
	t.Cleanup(store.Stop)
	return store
}

func paymentRequest(key, userID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/quests/quest:1/payments", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
	}
	return req
}

// countingHandler answers 201 with the call number
func countingHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"call":`+strconv.Itoa(int(n))+`}}`)
	})
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	base := generateKey("user:1", "key-1", http.MethodPost, "/v1/quests/quest:1/payments", []byte("{}"))
	if base != generateKey("user:1", "key-1", http.MethodPost, "/v1/quests/quest:1/payments", []byte("{}")) {
		t.Error("same inputs must give the same key")
	}

	variants := map[string]string{
		"user":   generateKey("user:2", "key-1", http.MethodPost, "/v1/quests/quest:1/payments", []byte("{}")),
		"key":    generateKey("user:1", "key-2", http.MethodPost, "/v1/quests/quest:1/payments", []byte("{}")),
		"path":   generateKey("user:1", "key-1", http.MethodPost, "/v1/quests/quest:2/payments", []byte("{}")),
		"body":   generateKey("user:1", "key-1", http.MethodPost, "/v1/quests/quest:1/payments", []byte(`{"a":1}`)),
		"concat": generateKey("user:1k", "ey-1", http.MethodPost, "/v1/quests/quest:1/payments", []byte("{}")),
	}
	for name, key := range variants {
		if key == base {
			t.Errorf("%s change must give a different key", name)
		}
	}
}

func TestIdempotency_PassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		key    string
	}{
		{"get", http.MethodGet, "key-1"},
		{"put", http.MethodPut, "key-1"},
		{"post without key", http.MethodPost, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			handler := Idempotency(newMemoryStore(t))(countingHandler(&calls))
			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(tt.method, "/v1/users/me/location", nil)
				if tt.key != "" {
					req.Header.Set("Idempotency-Key", tt.key)
				}
				rr := httptest.NewRecorder()
				handler.ServeHTTP(rr, req)
				if rr.Header().Get("X-Idempotency-Replayed") != "" {
					t.Error("request must not be replayed")
				}
			}
			if calls != 2 {
				t.Errorf("expected 2 calls, got %d", calls)
			}
		})
	}
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	t.Parallel()

	var calls int32
	handler := Idempotency(newMemoryStore(t))(countingHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, paymentRequest("pay-1", "user:1", `{}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, paymentRequest("pay-1", "user:1", `{}`))

	if calls != 1 {
		t.Fatalf("expected a single charge, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay header")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Error("expected original headers on replay")
	}

	// another user with the same key is a different request
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, paymentRequest("pay-1", "user:2", `{}`))
	if calls != 2 {
		t.Errorf("expected second user to be charged, got %d calls", calls)
	}
}

func TestIdempotency_ServerErrorIsNotStored(t *testing.T) {
	t.Parallel()

	var calls int32
	handler := Idempotency(newMemoryStore(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, paymentRequest("pay-1", "user:1", `{}`))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, paymentRequest("pay-1", "user:1", `{}`))
	if rr.Code != http.StatusCreated || calls != 2 {
		t.Errorf("retry should run the handler again: status %d calls %d", rr.Code, calls)
	}
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(t)
	panicking := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("gateway exploded")
	}))
	func() {
		defer func() { _ = recover() }()
		panicking.ServeHTTP(httptest.NewRecorder(), paymentRequest("pay-1", "user:1", `{}`))
	}()

	var calls int32
	rr := httptest.NewRecorder()
	Idempotency(store)(countingHandler(&calls)).ServeHTTP(rr, paymentRequest("pay-1", "user:1", `{}`))
	if calls != 1 {
		t.Errorf("key must be free after a panic, got %d calls", calls)
	}
}

func TestIdempotency_RestoresBody(t *testing.T) {
	t.Parallel()

	var got string
	handler := Idempotency(newMemoryStore(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), paymentRequest("join-1", "user:1", `{"payment_id":"payment:1"}`))

	if got != `{"payment_id":"payment:1"}` {
		t.Errorf("handler saw body %q", got)
	}
}

func TestIdempotency_ConcurrentDuplicateWaits(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	handler := Idempotency(newMemoryStore(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("joined"))
	}))

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(first, paymentRequest("join-1", "user:1", `{}`))
	}()
	<-started

	second := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(second, paymentRequest("join-1", "user:1", `{}`))
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected one execution, got %d", calls)
	}
	if second.Body.String() != "joined" || second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Errorf("waiting request should replay, got %q", second.Body.String())
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryIdempotencyStore(IdempotencyConfig{TTL: time.Minute, Now: clock.Now})
	defer store.Stop()
	ctx := context.Background()

	if resp, err := store.Acquire(ctx, "k"); resp != nil || err != nil {
		t.Fatalf("expected ownership, got %v %v", resp, err)
	}
	if err := store.Complete(ctx, "k", &CachedResponse{Status: http.StatusCreated}); err != nil {
		t.Fatal(err)
	}
	if resp, _ := store.Acquire(ctx, "k"); resp == nil || resp.Status != http.StatusCreated {
		t.Fatalf("expected stored response, got %v", resp)
	}

	clock.Advance(2 * time.Minute)
	store.cleanup()
	store.mu.Lock()
	n := len(store.entries)
	store.mu.Unlock()
	if n != 0 {
		t.Errorf("expired entry should be swept, %d left", n)
	}
	if resp, _ := store.Acquire(ctx, "k"); resp != nil {
		t.Error("expired key should be claimable again")
	}
}

func TestMemoryStore_AcquireHonoursContext(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(t)
	if _, err := store.Acquire(context.Background(), "k"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := store.Acquire(ctx, "k"); err == nil {
		t.Error("expected context error while key is held")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	t.Parallel()

	ctx := context.Background()
	store, err := NewRedisIdempotencyStore(ctx, RedisIdempotencyConfig{URL: url, TTL: time.Minute, LockTTL: 5 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = store.Close() }()

	key := uuid.NewString()
	defer store.client.Del(ctx, redisKeyPrefix+key)

	if resp, err := store.Acquire(ctx, key); resp != nil || err != nil {
		t.Fatalf("expected ownership, got %v %v", resp, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := store.Acquire(waitCtx, key); err == nil {
		t.Fatal("held key should block until the context ends")
	}

	if err := store.Release(ctx, key); err != nil {
		t.Fatal(err)
	}
	if resp, err := store.Acquire(ctx, key); resp != nil || err != nil {
		t.Fatalf("released key should be claimable, got %v %v", resp, err)
	}

	want := &CachedResponse{Status: http.StatusCreated, Header: http.Header{"Content-Type": {"application/json"}}, Body: []byte(`{"data":{}}`)}
	if err := store.Complete(ctx, key, want); err != nil {
		t.Fatal(err)
	}
	if err := store.Release(ctx, key); err != nil {
		t.Fatal(err)
	}
	got, err := store.Acquire(ctx, key)
	if err != nil || got == nil {
		t.Fatalf("expected stored response, got %v %v", got, err)
	}
	if got.Status != want.Status || !bytes.Equal(got.Body, want.Body) || got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected response %+v", got)
	}

	ttl, err := store.client.TTL(ctx, redisKeyPrefix+key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v (%v)", ttl, err)
	}
}
