package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pagecount:sha256:"

type pageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPageCache(rdb *redis.Client, ttl time.Duration) *pageCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &pageCache{rdb: rdb, ttl: ttl}
}

func (c *pageCache) Get(ctx context.Context, sum string) (int, bool, error) {
	v, err := c.rdb.Get(ctx, keyPrefix+sum).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get page count: %w", err)
	}

	pages, err := strconv.Atoi(v)
	if err != nil || pages < 1 {
		return 0, false, fmt.Errorf("redis page count %q is invalid", v)
	}
	return pages, true, nil
}

func (c *pageCache) Set(ctx context.Context, sum string, pages int) error {
	if err := c.rdb.Set(ctx, keyPrefix+sum, pages, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set page count: %w", err)
	}
	return nil
}
