// Package redis counts OTP verification attempts so a single email cannot
// brute-force its code.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/videotube-api/internal/config"
	"go.uber.org/zap"
)

// AttemptLimiter bounds guesses per key within a window.
type AttemptLimiter interface {
	// Allow records an attempt and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the counter after a successful verification.
	Reset(ctx context.Context, key string) error
}

type limiter struct {
	rdb    *goredis.Client
	max    int64
	window time.Duration
}

// NewClient connects to Redis and pings it. An empty address yields (nil, nil).
func NewClient(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewAttemptLimiter returns a limiter backed by rdb, or one that always allows
// when rdb is nil.
func NewAttemptLimiter(rdb *goredis.Client, cfg *config.Config, log *zap.Logger) AttemptLimiter {
	if rdb == nil {
		log.Info("redis not configured, OTP attempt limiting disabled")
		return unlimited{}
	}
	return &limiter{rdb: rdb, max: int64(cfg.OTPMaxAttempts), window: cfg.OTPWindow}
}

func (l *limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "otp:attempts:" + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.max, nil
}

func (l *limiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, "otp:attempts:"+key).Err()
}

type unlimited struct{}

func (unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
func (unlimited) Reset(context.Context, string) error         { return nil }
