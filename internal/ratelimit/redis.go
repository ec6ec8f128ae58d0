package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in fixed windows shared across
// processes. INCR is atomic on the server, so concurrent instances
// never lose counts. Bucket keys carry the window start, making the
// count reset implicit when the window rolls over.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
	perHour   int
	now       func() time.Time
}

func NewRedisLimiter(redisURL string, perMinute, perHour int) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisLimiter{
		client:    client,
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
	}, nil
}

func (l *RedisLimiter) Admit(ctx context.Context, identity string) (Decision, error) {
	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, l.perMinute},
		{time.Hour, l.perHour},
	}

	now := l.now()
	for _, w := range windows {
		windowStart := now.Truncate(w.duration)
		key := fmt.Sprintf("ratelimit:%s:%d:%d", identity, int(w.duration.Seconds()), windowStart.Unix())

		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("increment bucket: %w", err)
		}
		if count == 1 {
			// Keep the bucket one extra window so a clock skew between
			// instances cannot drop it early.
			l.client.Expire(ctx, key, 2*w.duration)
		}

		if count > int64(w.limit) {
			retryAfter := windowStart.Add(w.duration).Sub(now)
			return Decision{RetryAfter: retryAfter}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

func (l *RedisLimiter) Stop() {
	l.client.Close()
}
