// Package lock provides a Redis-backed mutual exclusion primitive shared by
// API instances.
package lock

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = time.Minute

// ErrNotHeld is returned by a release func when the key expired or was taken
// over by another holder before release.
var ErrNotHeld = errors.New("lock: not held")

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Option customises a RedisLocker.
type Option func(*RedisLocker)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(l *RedisLocker) {
		l.prefix = strings.TrimSpace(prefix)
	}
}

// WithTokenSource overrides the holder token generator.
func WithTokenSource(fn func() string) Option {
	return func(l *RedisLocker) {
		if fn != nil {
			l.token = fn
		}
	}
}

// Client is the go-redis surface the locker needs. *redis.Client satisfies it.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker acquires keys with SET NX PX and releases them with a
// compare-and-delete script.
type RedisLocker struct {
	client Client
	prefix string
	token  func() string
}

// NewRedisLocker wraps a go-redis client.
func NewRedisLocker(client Client, opts ...Option) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("lock: redis client is required")
	}
	l := &RedisLocker{
		client: client,
		prefix: "cardify:lock:",
		token:  newToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// NewClient builds a go-redis client from address, password and db index.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Acquire tries to take key for ttl. ok is false when another holder owns it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("lock: key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	full := l.prefix + key
	token := l.token()

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{full}, token).Int64()
		if err != nil {
			return fmt.Errorf("lock: release %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return release, true, nil
}

func newToken() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
