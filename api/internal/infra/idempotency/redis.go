package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you-humble/printq/api/internal/domain"
)

// reservationTTL bounds how long a crashed holder keeps a key claimed.
const reservationTTL = 10 * time.Minute

type redisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *redisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{rdb: rdb, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, key string) (domain.Submission, bool, error) {
	data, err := s.rdb.Get(ctx, idempKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("redis get idempotency: %w", err)
	}

	var sub domain.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return domain.Submission{}, false, fmt.Errorf("decode stored submission: %w", err)
	}
	return sub, true, nil
}

func (s *redisStore) Put(ctx context.Context, key string, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	if err := s.rdb.Set(ctx, idempKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency: %w", err)
	}
	return nil
}

func (s *redisStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(key), "pending", reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx idempotency lock: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, lockKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del idempotency lock: %w", err)
	}
	return nil
}

func idempKey(k string) string {
	return "orders:idemp:" + k
}

func lockKey(k string) string {
	return "orders:idemp:" + k + ":lock"
}
