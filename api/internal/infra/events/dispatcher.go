package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/you-humble/printq/api/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.OrderCreated) error
}

const retryBackoff = 200 * time.Millisecond

type job struct {
	event   domain.OrderCreated
	retries int
}

// Dispatcher publishes order.created events off the request path.
type Dispatcher struct {
	pub Publisher

	queue      chan job
	workerNum  int
	maxRetries int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewDispatcher(pub Publisher, queueSize, workerNum, maxRetries int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workerNum <= 0 {
		workerNum = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		pub:        pub,
		queue:      make(chan job, queueSize),
		workerNum:  workerNum,
		maxRetries: maxRetries,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.closed || d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.cancel()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.wg.Add(d.workerNum)
	for range d.workerNum {
		go d.worker()
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		d.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	case <-doneCh:
	}

	d.cancel()
	slog.Info("event dispatcher stopped")
	return nil
}

// Dispatch never blocks. It reports false when the event was dropped.
func (d *Dispatcher) Dispatch(ev domain.OrderCreated) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- job{event: ev}:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.queue {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	l := slog.With(
		slog.String("order_id", j.event.OrderID),
		slog.Int("retries", j.retries),
	)

	for {
		err := d.pub.Publish(d.ctx, j.event)
		if err == nil {
			l.Debug("order.created published")
			return
		}

		if j.retries >= d.maxRetries || d.ctx.Err() != nil {
			l.Error("order.created publish failed, giving up",
				slog.String("error", err.Error()),
			)
			return
		}

		j.retries++
		l.Warn("order.created publish failed, retrying",
			slog.String("error", err.Error()),
			slog.Int("next_retry", j.retries),
		)

		select {
		case <-d.ctx.Done():
		case <-time.After(retryBackoff * time.Duration(j.retries)):
		}
	}
}
