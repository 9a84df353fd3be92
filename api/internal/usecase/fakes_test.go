package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/you-humble/printq/api/internal/domain"
)

type memFileStore struct {
	mu       sync.Mutex
	blobs    map[string]string
	failures map[string]int // file name -> failures left, -1 forever
	deleted  []string
	saves    int
}

func newMemFileStore() *memFileStore {
	return &memFileStore{blobs: map[string]string{}, failures: map[string]int{}}
}

func (s *memFileStore) Save(ctx context.Context, key string, r io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	for name, left := range s.failures {
		if !strings.HasSuffix(key, "_"+name) || left == 0 {
			continue
		}
		if left > 0 {
			s.failures[name] = left - 1
		}
		return "", errors.New("bucket unreachable")
	}
	s.blobs[key] = string(data)
	return "mem://" + key, nil
}

func (s *memFileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type memOrderStore struct {
	mu      sync.Mutex
	records map[string]domain.OrderRecord
	failFor map[string]bool
	seq     int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{records: map[string]domain.OrderRecord{}, failFor: map[string]bool{}}
}

func (s *memOrderStore) Create(_ context.Context, rec domain.OrderRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[rec.FileName] {
		return "", errors.New("record store down")
	}
	s.seq++
	id := fmt.Sprintf("order-%d", s.seq)
	rec.ID = id
	s.records[id] = rec
	return id, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.OrderCreated
}

func (d *recordingDispatcher) Dispatch(ev domain.OrderCreated) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return true
}

type memIdempotency struct {
	mu    sync.Mutex
	subs  map[string]domain.Submission
	locks map[string]bool
	// onReserve runs with mu held right after a claim succeeds.
	onReserve func(key string)
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{subs: map[string]domain.Submission{}, locks: map[string]bool{}}
}

func (m *memIdempotency) Get(_ context.Context, key string) (domain.Submission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[key]
	return s, ok, nil
}

func (m *memIdempotency) Reserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	if m.onReserve != nil {
		m.onReserve(key)
	}
	return true, nil
}

func (m *memIdempotency) Put(_ context.Context, key string, s domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[key] = s
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *memIdempotency) held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[key]
}

// gatedFileStore blocks every Save until release is closed and signals the
// first one on entered.
type gatedFileStore struct {
	FileStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedFileStore(inner FileStore) *gatedFileStore {
	return &gatedFileStore{FileStore: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFileStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.FileStore.Save(ctx, key, r, size)
}
