package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// CachedResponse is a response stored for replay
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// IdempotencyStore coordinates requests that share an idempotency key.
//
// Acquire blocks while another request holds the key. It returns the stored
// response when one exists, or nil when the caller now owns the key and must
// call Complete or Release.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string) (*CachedResponse, error)
	Complete(ctx context.Context, key string, resp *CachedResponse) error
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps responses in process memory
type MemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	resp      *CachedResponse
	expiresAt time.Time
	done      chan struct{} // closed when the owner completes or releases
}

// IdempotencyConfig holds configuration for the idempotency stores
type IdempotencyConfig struct {
	TTL     time.Duration // how long to keep responses (default 24h)
	Cleanup time.Duration // sweep interval of the memory store (default 1h)
	Now     func() time.Time
}

// NewMemoryIdempotencyStore creates a memory store and starts its cleanup loop
func NewMemoryIdempotencyStore(cfg IdempotencyConfig) *MemoryIdempotencyStore {
	cfg = cfg.withDefaults()

	store := &MemoryIdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      cfg.Now,
		stopChan: make(chan struct{}),
	}
	go store.cleanupLoop(cfg.Cleanup)
	return store
}

func (c IdempotencyConfig) withDefaults() IdempotencyConfig {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Cleanup <= 0 {
		c.Cleanup = time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Stop stops the cleanup goroutine
func (s *MemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *MemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if entry.resp != nil && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// Acquire implements IdempotencyStore
func (s *MemoryIdempotencyStore) Acquire(ctx context.Context, key string) (*CachedResponse, error) {
	for {
		s.mu.Lock()
		entry, ok := s.entries[key]
		switch {
		case !ok, entry.resp != nil && !entry.expiresAt.After(s.now()):
			s.entries[key] = &idempotencyEntry{done: make(chan struct{})}
			s.mu.Unlock()
			return nil, nil
		case entry.resp != nil:
			s.mu.Unlock()
			return entry.resp, nil
		}
		done := entry.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Complete implements IdempotencyStore
func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, resp *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		entry = &idempotencyEntry{done: make(chan struct{})}
		s.entries[key] = entry
	} else if entry.resp != nil {
		return nil
	}
	entry.resp = resp
	entry.expiresAt = s.now().Add(s.ttl)
	close(entry.done)
	return nil
}

// Release implements IdempotencyStore
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.resp != nil {
		return nil
	}
	delete(s.entries, key)
	close(entry.done)
	return nil
}

// generateKey creates a unique key from user ID, idempotency key, and request fingerprint
func generateKey(userID, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(idempotencyKey))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *idempotencyResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Idempotency replays the stored response for POST requests that repeat an
// Idempotency-Key. Server errors are not stored so the client can retry.
func Idempotency(store IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			if userID == "" {
				userID = clientIP(r)
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(userID, idempotencyKey, r.Method, r.URL.Path, body)
			ctx := r.Context()

			cached, err := store.Acquire(ctx, key)
			if err != nil {
				slog.Warn("idempotency store unavailable", "error", err, "request_id", GetRequestID(ctx))
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				replay(w, cached)
				return
			}

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			completed := false
			defer func() {
				if !completed {
					_ = store.Release(context.WithoutCancel(ctx), key)
				}
			}()

			next.ServeHTTP(irw, r)

			if irw.status >= http.StatusInternalServerError {
				return
			}
			resp := &CachedResponse{
				Status: irw.status,
				Header: irw.Header().Clone(),
				Body:   bytes.Clone(irw.body.Bytes()),
			}
			if err := store.Complete(context.WithoutCancel(ctx), key, resp); err != nil {
				slog.Warn("failed to store idempotent response", "error", err)
				return
			}
			completed = true
		})
	}
}

func replay(w http.ResponseWriter, resp *CachedResponse) {
	for k, v := range resp.Header {
		// the replay keeps its own request ID
		if http.CanonicalHeaderKey(k) == "X-Request-Id" {
			continue
		}
		w.Header()[k] = append([]string(nil), v...)
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
