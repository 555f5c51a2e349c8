package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
)

// Rule bounds how often one user may perform an action.
type Rule struct {
	Max    int
	Window time.Duration
}

// DefaultRules are the per-user action limits. The counters are best-effort
// abuse tracking, not correctness-critical state.
var DefaultRules = map[string]Rule{
	"send_message":    {Max: 30, Window: 60 * time.Second},
	"join_giveaway":   {Max: 5, Window: 300 * time.Second},
	"create_giveaway": {Max: 2, Window: 3600 * time.Second},
}

// Limiter enforces sliding-window rate limits keyed by (user, action).
type Limiter interface {
	// Allow records one attempt and returns a rate-limit error when the
	// window is already full. Actions without a rule are never limited.
	Allow(ctx context.Context, userID int64, action string) error
}

type memoryLimiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	events  map[string][]time.Time
	nowFunc func() time.Time
}

// NewMemoryLimiter builds an in-process limiter. Suitable for a single
// instance; multi-instance deployments share counters through Redis.
func NewMemoryLimiter(rules map[string]Rule) Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &memoryLimiter{
		rules:   rules,
		events:  make(map[string][]time.Time),
		nowFunc: time.Now,
	}
}

func (l *memoryLimiter) Allow(ctx context.Context, userID int64, action string) error {
	rule, ok := l.rules[action]
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	key := fmt.Sprintf("%d:%s", userID, action)
	windowStart := now.Add(-rule.Window)

	kept := l.events[key][:0]
	for _, ts := range l.events[key] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rule.Max {
		retryAfter := kept[0].Add(rule.Window).Sub(now)
		l.events[key] = append([]time.Time(nil), kept...)
		return apperrors.NewRateLimitError(action, retryAfter).WithUserID(userID)
	}

	kept = append(kept, now)
	l.events[key] = append([]time.Time(nil), kept...)
	return nil
}

// Cleanup drops users with no events inside any rule window. Call
// periodically to bound memory.
func (l *memoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var maxWindow time.Duration
	for _, rule := range l.rules {
		if rule.Window > maxWindow {
			maxWindow = rule.Window
		}
	}

	cutoff := l.nowFunc().Add(-maxWindow)
	for key, events := range l.events {
		stale := true
		for _, ts := range events {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.events, key)
		}
	}
}
