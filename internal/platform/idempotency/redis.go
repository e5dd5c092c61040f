package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cardify:idem:"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps records as JSON values that expire with their TTL.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore returns a store writing under prefix. An empty prefix uses
// "cardify:idem:".
func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	pending := Record{Key: key, Fingerprint: fingerprint, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	raw, err := json.Marshal(pending)
	if err != nil {
		return Reservation{}, err
	}
	ok, err := s.client.SetNX(ctx, s.redisKey(key), raw, ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: reserve: %w", err)
	}
	if ok {
		return Reservation{State: ReservationStateNew, Record: pending}, nil
	}

	existing, found, err := s.load(ctx, key)
	if err != nil {
		return Reservation{}, err
	}
	if !found {
		// Expired between SetNX and Get; try once more.
		return s.Reserve(ctx, key, fingerprint, now, ttl)
	}
	if existing.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if existing.Status == StatusCompleted {
		return Reservation{State: ReservationStateCompleted, Record: existing}, nil
	}
	return Reservation{State: ReservationStatePending, Record: existing}, nil
}

func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	existing, found, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	created := now
	if found {
		if existing.Fingerprint != fingerprint {
			return ErrFingerprintMismatch
		}
		created = existing.CreatedAt
	}
	raw, err := json.Marshal(Record{
		Key:             key,
		Fingerprint:     fingerprint,
		Status:          StatusCompleted,
		ResponseStatus:  resp.Status,
		ResponseHeaders: sanitizeHeaders(resp.Headers),
		ResponseBody:    resp.Body,
		CreatedAt:       created,
		UpdatedAt:       now,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: save: %w", err)
	}
	return nil
}

// Release drops a pending reservation so the client may retry.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	existing, found, err := s.load(ctx, key)
	if err != nil || !found {
		return err
	}
	if existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency: load: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + sha256Hex([]byte(strings.TrimSpace(key)))
}
