package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds sign-in throttle tuning.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
	ByIP        bool
}

// Limiter counts failed password sign-ins per email and, optionally, per
// client IP in fixed Redis windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":rl:e:" + email
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":rl:ip:" + ip
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.ByIP && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

// Check returns ErrRateLimited when email or ip has used up its window.
// A nil Limiter never limits.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		if err := l.checkCounter(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Fail records one failed attempt. It returns ErrRateLimited when this
// attempt exhausted a window.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	var limited bool
	for _, key := range l.keys(email, ip) {
		count, err := l.incrementWithTTL(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the email counter after a successful sign-in. The IP
// counter keeps running until its window ends.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count for email in the current window.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
