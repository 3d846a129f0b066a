package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

type AuthAbuseScope string

const (
	AuthAbuseScopeLogin AuthAbuseScope = "login"
	// AuthAbuseScopeCodeRequest throttles verification and reset mail. Every
	// request counts, successful or not.
	AuthAbuseScopeCodeRequest AuthAbuseScope = "code_request"
)

// AuthAbusePolicy grants FreeAttempts without delay, then backs off
// exponentially from BaseDelay up to MaxDelay. Counters reset after
// ResetWindow without a failure.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// AuthAbuseGuard tracks failures per identity and per client IP. The larger
// of the two cooldowns applies.
type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

type NoopAuthAbuseGuard struct{}

func NewNoopAuthAbuseGuard() *NoopAuthAbuseGuard {
	return &NoopAuthAbuseGuard{}
}

func (g *NoopAuthAbuseGuard) Check(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopAuthAbuseGuard) RegisterFailure(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopAuthAbuseGuard) Reset(context.Context, AuthAbuseScope, string, string) error {
	return nil
}

type abuseCounter struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

// InMemoryAuthAbuseGuard is process-local. Use the Redis guard when more
// than one replica serves traffic.
type InMemoryAuthAbuseGuard struct {
	mu       sync.Mutex
	policy   AuthAbusePolicy
	counters map[string]abuseCounter
	now      func() time.Time
}

func NewInMemoryAuthAbuseGuard(policy AuthAbusePolicy) *InMemoryAuthAbuseGuard {
	return &InMemoryAuthAbuseGuard{
		policy:   normalizeAuthAbusePolicy(policy),
		counters: make(map[string]abuseCounter),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *InMemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	return max(
		g.cooldownLocked(now, abuseKey(scope, "id", normalizeAuthIdentity(identity))),
		g.cooldownLocked(now, abuseKey(scope, "ip", normalizeAuthIP(ip))),
	), nil
}

func (g *InMemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	return max(
		g.bumpLocked(now, abuseKey(scope, "id", normalizeAuthIdentity(identity))),
		g.bumpLocked(now, abuseKey(scope, "ip", normalizeAuthIP(ip))),
	), nil
}

// Reset clears the identity counter only; the IP keeps its history so one
// successful login does not unlock spraying from the same address.
func (g *InMemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.counters, abuseKey(scope, "id", normalizeAuthIdentity(identity)))
	return nil
}

func (g *InMemoryAuthAbuseGuard) bumpLocked(now time.Time, key string) time.Duration {
	c := g.counters[key]
	if c.lastFailure.IsZero() || now.Sub(c.lastFailure) > g.policy.ResetWindow {
		c.failures = 0
	}
	c.failures++
	c.lastFailure = now
	delay := g.policy.delayFor(c.failures)
	c.cooldownUntil = now.Add(delay)
	g.counters[key] = c
	return delay
}

func (g *InMemoryAuthAbuseGuard) cooldownLocked(now time.Time, key string) time.Duration {
	c, ok := g.counters[key]
	if !ok {
		return 0
	}
	if now.Sub(c.lastFailure) > g.policy.ResetWindow {
		delete(g.counters, key)
		return 0
	}
	if !now.Before(c.cooldownUntil) {
		return 0
	}
	return c.cooldownUntil.Sub(now)
}

func (p AuthAbusePolicy) delayFor(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	power := math.Pow(p.Multiplier, float64(failures-p.FreeAttempts-1))
	delay := time.Duration(float64(p.BaseDelay) * power)
	if delay > p.MaxDelay || delay < 0 {
		return p.MaxDelay
	}
	return delay
}

func abuseKey(scope AuthAbuseScope, dim, value string) string {
	return fmt.Sprintf("%s:%s:%s", scope, dim, value)
}

func normalizeAuthIdentity(identity string) string {
	v := strings.TrimSpace(strings.ToLower(identity))
	if v == "" {
		return "anonymous"
	}
	return v
}

func normalizeAuthIP(ip string) string {
	v := strings.TrimSpace(strings.ToLower(ip))
	if v == "" {
		return "unknown"
	}
	return v
}

func normalizeAuthAbusePolicy(policy AuthAbusePolicy) AuthAbusePolicy {
	if policy.FreeAttempts < 0 {
		policy.FreeAttempts = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 30 * time.Minute
	}
	return policy
}
