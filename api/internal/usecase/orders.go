package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/filename"
	"github.com/you-humble/printq/core/metrics"
	"github.com/you-humble/printq/core/pricing"
)

type FileInput struct {
	Name    string
	Pages   int
	Size    int64
	Content io.ReadSeeker
}

type SubmitParams struct {
	Customer       domain.Customer
	PaperSize      string
	PrintType      string
	Files          []FileInput
	IdempotencyKey string
}

type OrderOptions struct {
	MaxParallel       int
	SaveAttempts      int
	SaveBackoff       time.Duration
	CompensateOrphans bool
}

type OrderService struct {
	files    FileStore
	orders   OrderStore
	notifier *NotificationService
	events   EventDispatcher
	idem     IdempotencyStore
	metrics  *metrics.OrderMetrics
	opts     OrderOptions

	now func() time.Time
}

// NewOrderService wires the order pipeline. events and idem may be nil.
func NewOrderService(
	files FileStore,
	orders OrderStore,
	notifier *NotificationService,
	events EventDispatcher,
	idem IdempotencyStore,
	m *metrics.OrderMetrics,
	opts OrderOptions,
) *OrderService {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if opts.SaveAttempts <= 0 {
		opts.SaveAttempts = 3
	}
	if opts.SaveBackoff <= 0 {
		opts.SaveBackoff = 500 * time.Millisecond
	}

	return &OrderService{
		files:    files,
		orders:   orders,
		notifier: notifier,
		events:   events,
		idem:     idem,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
	}
}

type order struct {
	customer  domain.Customer
	paper     pricing.PaperSize
	printType pricing.PrintType
}

// SubmitOrders stores every file and records one pending order per stored
// file. One file failing never stops the others. When no order could be
// created ErrAllOrdersFailed is returned with the per-file result and no
// confirmation is sent. When the confirmation fails the result is returned
// together with a *domain.NotificationError.
//
// A request carrying an idempotency key replays the stored result of an
// earlier submission, or fails with ErrSubmissionInProgress while another
// request with the same key is still running.
func (s *OrderService) SubmitOrders(ctx context.Context, p SubmitParams) (domain.BatchResult, error) {
	o, err := validate(p)
	if err != nil {
		return domain.BatchResult{}, err
	}

	l := slog.With(
		slog.String("customer", o.customer.Email),
		slog.Int("files", len(p.Files)),
	)

	if sub, ok := s.replay(ctx, l, p.IdempotencyKey); ok {
		return replayed(sub)
	}
	if p.IdempotencyKey != "" && s.idem != nil {
		release, err := s.reserve(ctx, l, p.IdempotencyKey)
		if err != nil {
			return domain.BatchResult{}, err
		}
		defer release()

		// The holder may have finished between the lookup and the claim.
		if sub, ok := s.replay(ctx, l, p.IdempotencyKey); ok {
			return replayed(sub)
		}
	}

	entries := make([]domain.FileOutcome, len(p.Files))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.MaxParallel)
	for i, f := range p.Files {
		g.Go(func() error {
			entries[i] = s.placeOne(ctx, o, f)
			return nil
		})
	}
	_ = g.Wait()

	res := domain.NewBatchResult(entries)
	succeeded := len(res.Successful())
	l.Info("orders placed",
		slog.Int("succeeded", succeeded),
		slog.Int("failed", res.FailedCount()),
		slog.String("total", res.Total),
	)

	if succeeded == 0 {
		return res, domain.ErrAllOrdersFailed
	}

	sub := domain.Submission{Result: res, Notification: domain.NotificationStatus{Delivered: true}}

	err = s.notifier.Confirm(ctx, o.customer, res)
	if err != nil {
		s.metrics.Notifications.WithLabelValues("failed").Inc()
		l.Error("orders exist but confirmation was not delivered",
			slog.String("error", err.Error()),
		)
		sub.Notification = domain.NotificationStatus{
			Delivered: false,
			Code:      apperr.CodeOf(err),
			Message:   err.Error(),
		}
		err = domain.NewNotificationError(sub.Notification, err)
	} else {
		s.metrics.Notifications.WithLabelValues("delivered").Inc()
	}

	s.remember(ctx, l, p.IdempotencyKey, sub)
	return res, err
}

func (s *OrderService) replay(ctx context.Context, l *slog.Logger, key string) (domain.Submission, bool) {
	if key == "" || s.idem == nil {
		return domain.Submission{}, false
	}

	sub, ok, err := s.idem.Get(ctx, key)
	if err != nil {
		l.Warn("idempotency lookup", slog.String("key", key), slog.String("error", err.Error()))
		return domain.Submission{}, false
	}
	if ok {
		l.Info("replaying submission", slog.String("key", key))
	}
	return sub, ok
}

func replayed(sub domain.Submission) (domain.BatchResult, error) {
	res := sub.Result
	res.Replayed = true
	if !sub.Notification.Delivered {
		return res, domain.NewNotificationError(sub.Notification, nil)
	}
	return res, nil
}

// reserve claims key and returns the func that gives it back. A store error
// is logged and the submission proceeds unguarded.
func (s *OrderService) reserve(ctx context.Context, l *slog.Logger, key string) (func(), error) {
	ok, err := s.idem.Reserve(ctx, key)
	if err != nil {
		l.Warn("idempotency reserve", slog.String("key", key), slog.String("error", err.Error()))
		return func() {}, nil
	}
	if !ok {
		l.Info("submission already in progress", slog.String("key", key))
		return nil, domain.ErrSubmissionInProgress
	}

	return func() {
		if err := s.idem.Release(context.WithoutCancel(ctx), key); err != nil {
			l.Warn("idempotency release", slog.String("key", key), slog.String("error", err.Error()))
		}
	}, nil
}

func (s *OrderService) remember(ctx context.Context, l *slog.Logger, key string, sub domain.Submission) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Put(context.WithoutCancel(ctx), key, sub); err != nil {
		l.Warn("idempotency store", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *OrderService) placeOne(ctx context.Context, o order, f FileInput) domain.FileOutcome {
	out := domain.FileOutcome{
		FileName: f.Name,
		Pages:    f.Pages,
		Cost:     pricing.CostForFile(f.Pages, o.printType),
	}

	key := s.storageKey(f.Name)
	l := slog.With(slog.String("file_name", f.Name), slog.String("key", key))

	stored, err := s.save(ctx, key, f)
	if err != nil {
		s.metrics.Files.WithLabelValues("upload_failed").Inc()
		l.Error("upload failed", slog.String("error", err.Error()))
		out.FailureReason = failureReason("storage upload failed", err)
		return out
	}

	now := s.now().UTC()
	id, err := s.orders.Create(ctx, domain.OrderRecord{
		FileName:    f.Name,
		StoragePath: stored,
		Pages:       f.Pages,
		PaperSize:   o.paper,
		ColorMode:   o.printType.ColorMode,
		PrintType:   o.printType.ID,
		Cost:        out.Cost,
		Customer:    o.customer,
		Status:      domain.StatusPending,
		CreatedAt:   now,
	})
	if err != nil {
		s.metrics.Files.WithLabelValues("record_failed").Inc()
		l.Error("order record failed, blob left in storage",
			slog.String("storage_path", stored),
			slog.String("error", err.Error()),
		)
		s.compensate(ctx, l, key)
		out.FailureReason = failureReason("order record failed", err)
		return out
	}

	out.OrderID = id
	out.StoragePath = stored
	s.metrics.Files.WithLabelValues("ok").Inc()

	if s.events != nil {
		accepted := s.events.Dispatch(domain.OrderCreated{
			OrderID:     id,
			FileName:    f.Name,
			StoragePath: stored,
			Pages:       f.Pages,
			Cost:        out.Cost,
			Email:       o.customer.Email,
			CreatedAt:   now,
		})
		if !accepted {
			l.Warn("order.created event dropped", slog.String("order_id", id))
		}
	}

	return out
}

func (s *OrderService) save(ctx context.Context, key string, f FileInput) (string, error) {
	backoff := s.opts.SaveBackoff

	var lastErr error
	for attempt := 1; attempt <= s.opts.SaveAttempts; attempt++ {
		if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind %s: %w", f.Name, err)
		}

		stored, err := s.files.Save(ctx, key, f.Content, f.Size)
		if err == nil {
			return stored, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == s.opts.SaveAttempts {
			break
		}

		slog.Warn("upload attempt failed",
			slog.String("key", key),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", backoff),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("abandoned: %w", ctx.Err())
	}
	return "", lastErr
}

func (s *OrderService) compensate(ctx context.Context, l *slog.Logger, key string) {
	if !s.opts.CompensateOrphans {
		return
	}
	if err := s.files.Delete(context.WithoutCancel(ctx), key); err != nil {
		l.Warn("orphan blob delete failed", slog.String("error", err.Error()))
		return
	}
	l.Info("orphan blob deleted")
}

func (s *OrderService) storageKey(name string) string {
	return path.Join("orders", s.now().UTC().Format("2006/01/02"), uuid.NewString()+"_"+filename.Sanitize(name))
}

func failureReason(what string, err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return what + ": abandoned"
	}
	return what + ": " + err.Error()
}

func validate(p SubmitParams) (order, error) {
	var problems []string

	name := strings.TrimSpace(p.Customer.Name)
	if name == "" {
		problems = append(problems, "customer name is required")
	}

	email := strings.TrimSpace(p.Customer.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		problems = append(problems, "customer email is invalid")
	}

	paper, ok := pricing.ParsePaperSize(p.PaperSize)
	if !ok {
		problems = append(problems, fmt.Sprintf("unknown paper size %q", p.PaperSize))
	}

	pt, ok := pricing.Option(p.PrintType)
	if !ok {
		problems = append(problems, fmt.Sprintf("unknown print type %q", p.PrintType))
	}

	if len(p.Files) == 0 {
		problems = append(problems, "at least one file is required")
	}
	for i, f := range p.Files {
		switch {
		case strings.TrimSpace(f.Name) == "":
			problems = append(problems, fmt.Sprintf("file %d has no name", i+1))
		case f.Pages < 1:
			problems = append(problems, fmt.Sprintf("file %q must have at least one page", f.Name))
		case f.Content == nil:
			problems = append(problems, fmt.Sprintf("file %q has no content", f.Name))
		}
	}

	if len(problems) > 0 {
		return order{}, domain.ErrInvalidOrder.WithDetail(strings.Join(problems, "; "))
	}

	return order{
		customer:  domain.Customer{Name: name, Email: email},
		paper:     paper,
		printType: pt,
	}, nil
}
