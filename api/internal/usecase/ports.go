package usecase

import (
	"context"
	"io"

	"github.com/you-humble/printq/api/internal/domain"
)

// FileStore puts order bytes into durable storage and returns the stored path.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

type OrderStore interface {
	Create(ctx context.Context, rec domain.OrderRecord) (string, error)
}

type Notifier interface {
	Send(ctx context.Context, msg domain.Message) error
}

// EventDispatcher hands events to a background publisher. Dispatch never
// blocks and reports whether the event was accepted.
type EventDispatcher interface {
	Dispatch(ev domain.OrderCreated) bool
}

// IdempotencyStore remembers finished submissions by key. Reserve claims a
// key for one in-flight submission and reports false while another holder
// has it; Release gives the claim back.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (domain.Submission, bool, error)
	Reserve(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, s domain.Submission) error
	Release(ctx context.Context, key string) error
}

type PageConverter interface {
	CountPages(ctx context.Context, name string, data []byte) (domain.CountPagesResponse, error)
}
