package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testAbusePolicy() AuthAbusePolicy {
	return AuthAbusePolicy{
		FreeAttempts: 2,
		BaseDelay:    time.Second,
		Multiplier:   2,
		MaxDelay:     5 * time.Second,
		ResetWindow:  time.Minute,
	}
}

func TestAuthAbusePolicyDelayFor(t *testing.T) {
	p := normalizeAuthAbusePolicy(testAbusePolicy())
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{2, 0},
		{3, time.Second},
		{4, 2 * time.Second},
		{5, 4 * time.Second},
		{6, 5 * time.Second},
		{60, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := p.delayFor(tc.failures); got != tc.want {
			t.Fatalf("delayFor(%d)=%v want %v", tc.failures, got, tc.want)
		}
	}
}

func TestInMemoryAuthAbuseGuardCooldownAndReset(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	guard := NewInMemoryAuthAbuseGuard(testAbusePolicy())
	guard.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "alice", "10.0.0.1"); d != 0 {
			t.Fatalf("free attempt %d produced delay %v", i, d)
		}
	}
	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "alice", "10.0.0.1"); d != time.Second {
		t.Fatalf("expected 1s delay after free attempts, got %v", d)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "ALICE", "10.0.0.9"); d != time.Second {
		t.Fatalf("identity dimension should be case-insensitive, got %v", d)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "bob", "10.0.0.1"); d != time.Second {
		t.Fatalf("ip dimension should apply to other identities, got %v", d)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeCodeRequest, "alice", "10.0.0.1"); d != 0 {
		t.Fatalf("scopes must be isolated, got %v", d)
	}

	clock.Advance(time.Second)
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "alice", "10.0.0.9"); d != 0 {
		t.Fatalf("cooldown should end exactly at its deadline, got %v", d)
	}

	if err := guard.Reset(ctx, AuthAbuseScopeLogin, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "alice", "10.0.0.9"); d != 0 {
		t.Fatalf("reset identity should start again from free attempts, got %v", d)
	}

	clock.Advance(2 * time.Minute)
	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "carol", "10.0.0.1"); d != 0 {
		t.Fatalf("ip history should expire after the reset window, got %v", d)
	}
}

func TestRedisAuthAbuseGuardSharedCounters(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &testClock{now: time.Now().UTC()}
	first := NewRedisAuthAbuseGuard(client, "abuse_test", testAbusePolicy())
	first.now = clock.Now
	second := NewRedisAuthAbuseGuard(client, "abuse_test", testAbusePolicy())
	second.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := first.RegisterFailure(ctx, AuthAbuseScopeLogin, "dave@example.com", "10.0.0.5"); err != nil {
			t.Fatalf("register failure %d: %v", i, err)
		}
	}
	d, err := second.Check(ctx, AuthAbuseScopeLogin, "dave@example.com", "10.0.0.6")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d != time.Second {
		t.Fatalf("expected shared 1s cooldown, got %v", d)
	}
	for _, key := range m.Keys() {
		if key == "abuse_test:login:id:dave@example.com" {
			t.Fatal("identity must be hashed in redis keys")
		}
	}

	if err := second.Reset(ctx, AuthAbuseScopeLogin, "dave@example.com", "10.0.0.5"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d, _ := first.Check(ctx, AuthAbuseScopeLogin, "dave@example.com", "10.0.0.6"); d != 0 {
		t.Fatalf("expected identity cooldown cleared, got %v", d)
	}
	if d, _ := first.Check(ctx, AuthAbuseScopeLogin, "erin@example.com", "10.0.0.5"); d != time.Second {
		t.Fatalf("expected ip cooldown to survive identity reset, got %v", d)
	}
}

func TestParseAuthAbuseRedisInt64(t *testing.T) {
	if v, err := parseAuthAbuseRedisInt64("1500"); err != nil || v != 1500 {
		t.Fatalf("string parse mismatch v=%d err=%v", v, err)
	}
	if _, err := parseAuthAbuseRedisInt64(3.5); err == nil {
		t.Fatal("expected type error")
	}
}
