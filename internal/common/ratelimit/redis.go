package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
)

type redisLimiter struct {
	client *redis.Client
	rules  map[string]Rule
}

// NewRedisLimiter builds a limiter whose sliding windows live in a shared
// Redis sorted set per (user, action), so multiple instances see the same
// counters. Redis failures fail open: the limiter is best-effort.
func NewRedisLimiter(client *redis.Client, rules map[string]Rule) Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &redisLimiter{client: client, rules: rules}
}

func (l *redisLimiter) Allow(ctx context.Context, userID int64, action string) error {
	rule, ok := l.rules[action]
	if !ok {
		return nil
	}

	key := fmt.Sprintf("ratelimit:%d:%s", userID, action)
	now := time.Now()
	windowStart := now.Add(-rule.Window)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn().Err(err).Str("action", action).Msg("Rate limiter unavailable, allowing request")
		return nil
	}

	if int(countCmd.Val()) >= rule.Max {
		// Remove the event we just over-counted so a retry after the window
		// is not penalized for this rejected attempt.
		l.client.ZRem(ctx, key, member)
		return apperrors.NewRateLimitError(action, rule.Window).WithUserID(userID)
	}

	return nil
}
