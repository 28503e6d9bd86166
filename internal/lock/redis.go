package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrTimeout = errors.New("lock: timed out waiting for lock")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a best-effort mutual exclusion lock shared by all API
// instances. The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

type Config struct {
	Prefix  string
	TTL     time.Duration
	Wait    time.Duration
	Backoff time.Duration
}

func NewRedisLocker(rdb *redis.Client, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 25 * time.Millisecond
	}
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = "advisorbooking:lock"
	}
	return &RedisLocker{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.TTL, wait: cfg.Wait, backoff: cfg.Backoff}
}

// Acquire blocks until key is held, the wait budget runs out or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := l.prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: setnx %s: %w", full, err)
		}
		if ok {
			return func() { l.release(full, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
