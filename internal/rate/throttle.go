package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	KeyPrefix        string
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// Throttle counts failed login attempts per identifier and, optionally, per IP.
type Throttle struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Throttle] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Throttle {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "af"
	}
	return &Throttle{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports ErrRateLimited when the identifier or IP has exhausted the
// window. It does not count the attempt.
func (t *Throttle) Check(ctx context.Context, identifier, ip string) error {
	if err := t.checkCounter(ctx, t.identifierKey(identifier)); err != nil {
		return err
	}
	if t.config.EnableIPThrottle && ip != "" {
		if err := t.checkCounter(ctx, t.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// RecordFailure counts one failed attempt.
func (t *Throttle) RecordFailure(ctx context.Context, identifier, ip string) error {
	if _, err := t.incrementWithTTL(ctx, t.identifierKey(identifier)); err != nil {
		return err
	}
	if t.config.EnableIPThrottle && ip != "" {
		if _, err := t.incrementWithTTL(ctx, t.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the identifier counter after a successful login. The IP
// counter is left alone so one good account cannot launder a sprayed IP.
func (t *Throttle) Reset(ctx context.Context, identifier string) error {
	if err := t.redis.Del(ctx, t.identifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count for an identifier.
func (t *Throttle) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := t.redis.Get(ctx, t.identifierKey(identifier)).Int64()
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

func (t *Throttle) identifierKey(identifier string) string {
	return t.config.KeyPrefix + ":lt:" + strings.ToLower(strings.TrimSpace(identifier))
}

func (t *Throttle) ipKey(ip string) string {
	return t.config.KeyPrefix + ":lti:" + ip
}

func (t *Throttle) checkCounter(ctx context.Context, key string) error {
	count, err := t.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(t.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (t *Throttle) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := t.redis.Expire(ctx, key, t.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
