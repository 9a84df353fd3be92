package orderstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/you-humble/printq/api/internal/domain"
)

type redisOrderStore struct {
	rdb redis.Cmdable
}

func NewRedisOrderStore(rdb redis.Cmdable) *redisOrderStore {
	return &redisOrderStore{rdb: rdb}
}

func (s *redisOrderStore) Create(ctx context.Context, rec domain.OrderRecord) (string, error) {
	id := uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	pipe := s.rdb.TxPipeline()

	pipe.HSet(ctx, orderKey(id), map[string]any{
		"id":             id,
		"file_name":      rec.FileName,
		"storage_path":   rec.StoragePath,
		"pages":          rec.Pages,
		"paper_size":     string(rec.PaperSize),
		"color_mode":     string(rec.ColorMode),
		"print_type":     rec.PrintType,
		"cost_cents":     int64(rec.Cost),
		"customer_name":  rec.Customer.Name,
		"customer_email": rec.Customer.Email,
		"status":         string(rec.Status),
		"created_at":     rec.CreatedAt.UnixNano(),
	})

	pipe.ZAdd(ctx, ordersByCreatedKey(), redis.Z{
		Score:  float64(rec.CreatedAt.Unix()),
		Member: id,
	})

	if rec.Customer.Email != "" {
		pipe.SAdd(ctx, customerKey(rec.Customer.Email), id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis pipeline create order: %w", err)
	}

	return id, nil
}

func orderKey(id string) string {
	return "order:" + id
}

func customerKey(email string) string {
	return "orders:by_customer:" + email
}

func ordersByCreatedKey() string {
	return "orders:by_created"
}
