package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLinkRateLimited        = errors.New("link rate limited")
	ErrLinkLimiterUnavailable = errors.New("link limiter unavailable")
)

type LinkConfig struct {
	Prefix              string
	MaxInitiateAttempts int
	MaxConfirmAttempts  int
	Window              time.Duration
}

// LinkLimiter throttles initiate and confirm calls per local account with
// fixed-window Redis counters.
type LinkLimiter struct {
	redis  redis.UniversalClient
	config LinkConfig
}

func NewLinkLimiter(redisClient redis.UniversalClient, cfg LinkConfig) *LinkLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "gl"
	}
	return &LinkLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *LinkLimiter) CheckInitiate(ctx context.Context, account string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	return l.enforceFixedWindow(ctx, l.initiateKey(account), l.config.MaxInitiateAttempts)
}

func (l *LinkLimiter) CheckConfirm(ctx context.Context, account string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	return l.enforceFixedWindow(ctx, l.confirmKey(account), l.config.MaxConfirmAttempts)
}

func (l *LinkLimiter) enforceFixedWindow(ctx context.Context, key string, max int) error {
	if max <= 0 {
		return nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLinkLimiterUnavailable, err)
		}
	}

	if count > int64(max) {
		return ErrLinkRateLimited
	}

	return nil
}

func (l *LinkLimiter) initiateKey(account string) string {
	return l.config.Prefix + "i:" + account
}

func (l *LinkLimiter) confirmKey(account string) string {
	return l.config.Prefix + "c:" + account
}
