package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return m.allow, m.retry, m.err
}

type recordingLimiter struct {
	allow   bool
	lastKey string
}

func (l *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	l.lastKey = key
	return l.allow, 0, nil
}

func serveThroughLimiter(rl *RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDistributedRateLimiterFailOpen(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{err: errors.New("redis down")}, 10, time.Minute, FailOpen, "api")
	rr := serveThroughLimiter(rl, "10.0.0.1:1111")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open to pass, got %d", rr.Code)
	}
}

func TestDistributedRateLimiterFailClosed(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{err: errors.New("redis down")}, 10, time.Minute, FailClosed, "auth")
	rr := serveThroughLimiter(rl, "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when failing closed, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}
}

func TestDistributedRateLimiterDenySetsHeaders(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: false, retry: 12 * time.Second}, 3, time.Minute, FailOpen, "auth")
	rr := serveThroughLimiter(rl, "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "12" {
		t.Fatalf("expected Retry-After=12, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "3" {
		t.Fatalf("expected X-RateLimit-Limit=3, got %q", got)
	}
}

func TestDistributedRateLimiterAllowOmitsRetryAfter(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: true}, 3, time.Minute, FailClosed, "api")
	rr := serveThroughLimiter(rl, "10.0.0.1:1111")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("did not expect Retry-After on allowed response, got %q", got)
	}
}

func TestRateLimiterKeysAreScopedPerClient(t *testing.T) {
	limiter := &recordingLimiter{allow: true}
	rl := NewDistributedRateLimiter(limiter, 10, time.Minute, FailClosed, "auth")
	serveThroughLimiter(rl, "10.0.0.7:4444")
	if limiter.lastKey != "auth:10.0.0.7" {
		t.Fatalf("expected scoped ip key, got %q", limiter.lastKey)
	}

	rl.WithKeyFunc(func(r *http.Request) (string, string) { return "fixed", "custom" })
	serveThroughLimiter(rl, "10.0.0.7:4444")
	if limiter.lastKey != "auth:fixed" {
		t.Fatalf("expected custom key, got %q", limiter.lastKey)
	}
}

func TestLocalFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	limiter := NewLocalFixedWindowLimiter().(*localFixedWindowLimiter)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _, _ := limiter.Allow(ctx, "k", 2, time.Minute); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	now = now.Add(20 * time.Second)
	ok, retry, err := limiter.Allow(ctx, "k", 2, time.Minute)
	if err != nil || ok {
		t.Fatalf("expected deny, ok=%v err=%v", ok, err)
	}
	if retry != 40*time.Second {
		t.Fatalf("expected 40s retry, got %v", retry)
	}

	now = now.Add(40 * time.Second)
	if ok, _, _ := limiter.Allow(ctx, "k", 2, time.Minute); !ok {
		t.Fatal("expected new window to allow")
	}
}

func TestRateLimiterLocalIntegration(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	if rr := serveThroughLimiter(rl, "10.0.0.9:1"); rr.Code != http.StatusOK {
		t.Fatalf("first request: %d", rr.Code)
	}
	if rr := serveThroughLimiter(rl, "10.0.0.9:2"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same ip: %d", rr.Code)
	}
	if rr := serveThroughLimiter(rl, "10.0.0.10:1"); rr.Code != http.StatusOK {
		t.Fatalf("other ip: %d", rr.Code)
	}
}
