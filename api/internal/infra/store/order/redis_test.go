package orderstore

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/pricing"
)

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	if !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisOrderStore(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	s := NewRedisOrderStore(rdb)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.OrderRecord{
		FileName:    "thesis.docx",
		StoragePath: "s3://orders/orders/2026/03/01/x_thesis.docx",
		Pages:       3,
		PaperSize:   pricing.PaperA4,
		ColorMode:   pricing.ColorModeBW,
		PrintType:   "bw",
		Cost:        600,
		Customer:    domain.Customer{Name: "Ann", Email: "ann@example.com"},
		Status:      domain.StatusPending,
		CreatedAt:   created,
	}

	id1, err := s.Create(ctx, rec)
	require.NoError(t, err)
	id2, err := s.Create(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	h, err := rdb.HGetAll(ctx, orderKey(id1)).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id":             id1,
		"file_name":      "thesis.docx",
		"storage_path":   "s3://orders/orders/2026/03/01/x_thesis.docx",
		"pages":          "3",
		"paper_size":     "A4",
		"color_mode":     "bw",
		"print_type":     "bw",
		"cost_cents":     "600",
		"customer_name":  "Ann",
		"customer_email": "ann@example.com",
		"status":         string(domain.StatusPending),
		"created_at":     strconv.FormatInt(created.UnixNano(), 10),
	}, h)

	ids, err := rdb.SMembers(ctx, customerKey("ann@example.com")).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{id1, id2}, ids)

	n, err := rdb.ZCard(ctx, ordersByCreatedKey()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
