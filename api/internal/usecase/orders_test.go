package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/metrics"
	"github.com/you-humble/printq/core/pricing"
)

type fixture struct {
	files    *memFileStore
	orders   *memOrderStore
	notifier *recordingNotifier
	events   *recordingDispatcher
	idem     *memIdempotency
	metrics  *metrics.OrderMetrics
	svc      *OrderService
}

func newFixture(t *testing.T, opts OrderOptions) *fixture {
	t.Helper()
	if opts.SaveBackoff == 0 {
		opts.SaveBackoff = time.Millisecond
	}

	f := &fixture{
		files:    newMemFileStore(),
		orders:   newMemOrderStore(),
		notifier: &recordingNotifier{},
		events:   &recordingDispatcher{},
		idem:     newMemIdempotency(),
		metrics:  metrics.NewOrderMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewOrderService(
		f.files,
		f.orders,
		NewNotificationService(f.notifier, ""),
		f.events,
		f.idem,
		f.metrics,
		opts,
	)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return f
}

func file(name string, pages int) FileInput {
	content := "content of " + name
	return FileInput{Name: name, Pages: pages, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func params(files ...FileInput) SubmitParams {
	return SubmitParams{
		Customer:  domain.Customer{Name: "Ann Lee", Email: "ann@example.com"},
		PaperSize: "A4",
		PrintType: "bw",
		Files:     files,
	}
}

func TestSubmitOrdersConfirmationTotals(t *testing.T) {
	f := newFixture(t, OrderOptions{})

	res, err := f.svc.SubmitOrders(context.Background(), params(
		file("a.pdf", 3), file("b.docx", 2), file("c.png", 1),
	))
	require.NoError(t, err)

	assert.Equal(t, pricing.Money(1200), res.TotalCost)
	assert.Equal(t, "12.00", res.Total)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, []string{"a.pdf", "b.docx", "c.png"}, []string{res.Entries[0].FileName, res.Entries[1].FileName, res.Entries[2].FileName})

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Contains(t, msg.Body, "- a.pdf: 3 pages, 6.00\n")
	assert.Contains(t, msg.Body, "- b.docx: 2 pages, 4.00\n")
	assert.Contains(t, msg.Body, "- c.png: 1 page, 2.00\n")
	assert.Contains(t, msg.Body, "Total: 12.00")
	assert.Len(t, regexp.MustCompile(`(?m)^- `).FindAllString(msg.Body, -1), 3)

	assert.Len(t, f.orders.records, 3)
	for _, rec := range f.orders.records {
		assert.Equal(t, domain.StatusPending, rec.Status)
		assert.Equal(t, pricing.PaperA4, rec.PaperSize)
		assert.Equal(t, pricing.ColorModeBW, rec.ColorMode)
		assert.True(t, strings.HasPrefix(rec.StoragePath, "mem://orders/2026/05/04/"), rec.StoragePath)
	}
	assert.Len(t, f.events.events, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.Files.WithLabelValues("ok")))
}

func TestSubmitOrdersPartialFailure(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.files.failures["b.pdf"] = -1

	res, err := f.svc.SubmitOrders(context.Background(), params(
		file("a.pdf", 3), file("b.pdf", 5), file("c.pdf", 1),
	))
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.True(t, res.Entries[0].Succeeded())
	assert.False(t, res.Entries[1].Succeeded())
	assert.Contains(t, res.Entries[1].FailureReason, "storage upload failed")
	assert.True(t, res.Entries[2].Succeeded())
	assert.Equal(t, pricing.Money(800), res.TotalCost)
	assert.Len(t, res.Successful(), 2)
	assert.Equal(t, 1, res.FailedCount())

	require.Len(t, f.notifier.sent, 1)
	assert.NotContains(t, f.notifier.sent[0].Body, "b.pdf")
	assert.Contains(t, f.notifier.sent[0].Body, "Total: 8.00")
	assert.Len(t, f.events.events, 2)
}

func TestSubmitOrdersAllFailed(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.files.failures["a.pdf"] = -1
	f.files.failures["b.pdf"] = -1

	res, err := f.svc.SubmitOrders(context.Background(), params(file("a.pdf", 1), file("b.pdf", 2)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllOrdersFailed)

	assert.Len(t, res.Entries, 2)
	assert.Zero(t, res.TotalCost)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.orders.records)
}

func TestSubmitOrdersUploadRetries(t *testing.T) {
	f := newFixture(t, OrderOptions{SaveAttempts: 3})
	f.files.failures["a.pdf"] = 2

	res, err := f.svc.SubmitOrders(context.Background(), params(file("a.pdf", 4)))
	require.NoError(t, err)

	assert.True(t, res.Entries[0].Succeeded())
	assert.Equal(t, 3, f.files.saves)
	for _, blob := range f.files.blobs {
		assert.Equal(t, "content of a.pdf", blob)
	}
}

func TestSubmitOrdersRecordFailure(t *testing.T) {
	tests := []struct {
		name       string
		compensate bool
		wantBlobs  int
	}{
		{"orphan kept", false, 2},
		{"orphan deleted", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, OrderOptions{CompensateOrphans: tt.compensate})
			f.orders.failFor["b.pdf"] = true

			res, err := f.svc.SubmitOrders(context.Background(), params(file("a.pdf", 1), file("b.pdf", 1)))
			require.NoError(t, err)

			assert.Contains(t, res.Entries[1].FailureReason, "order record failed")
			assert.Len(t, f.files.blobs, tt.wantBlobs)
			if tt.compensate {
				require.Len(t, f.files.deleted, 1)
				assert.True(t, strings.HasSuffix(f.files.deleted[0], "_b.pdf"))
			} else {
				assert.Empty(t, f.files.deleted)
			}
		})
	}
}

func TestSubmitOrdersNotificationFailure(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.notifier.err = domain.ErrNotificationFailed.WithDetail("smtp 554")

	res, err := f.svc.SubmitOrders(context.Background(), params(file("a.pdf", 2)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)

	assert.Len(t, res.Successful(), 1)
	assert.Len(t, f.orders.records, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("failed")))
}

func TestSubmitOrdersIdempotentReplay(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	p := params(file("a.pdf", 2), file("b.pdf", 1))
	p.IdempotencyKey = "req-42"

	first, err := f.svc.SubmitOrders(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	p.Files = []FileInput{file("a.pdf", 2), file("b.pdf", 1)}
	second, err := f.svc.SubmitOrders(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.TotalCost, second.TotalCost)
	assert.Len(t, f.orders.records, 2)
	assert.Len(t, f.notifier.sent, 1)
}

func TestSubmitOrdersReplayKeepsNotificationFailure(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.notifier.err = errors.New("connection reset")
	p := params(file("a.pdf", 2))
	p.IdempotencyKey = "req-7"

	_, err := f.svc.SubmitOrders(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrNotificationFailed)

	p.Files = []FileInput{file("a.pdf", 2)}
	res, err := f.svc.SubmitOrders(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrNotificationFailed)
	assert.True(t, res.Replayed)
	assert.Len(t, f.orders.records, 1)
}

func TestSubmitOrdersNotificationKeepsCauseCode(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.notifier.err = domain.ErrNotifierUnconfigured
	p := params(file("a.pdf", 2))
	p.IdempotencyKey = "req-8"

	_, err := f.svc.SubmitOrders(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrNotificationFailed)
	var live *domain.NotificationError
	require.ErrorAs(t, err, &live)
	assert.False(t, live.Status.Delivered)
	assert.Equal(t, "notifier_unconfigured", live.Status.Code)

	p.Files = []FileInput{file("a.pdf", 2)}
	_, err = f.svc.SubmitOrders(context.Background(), p)
	var replay *domain.NotificationError
	require.ErrorAs(t, err, &replay)
	assert.Equal(t, live.Status, replay.Status)
}

func TestSubmitOrdersKeyInProgress(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ok, err := f.idem.Reserve(context.Background(), "req-9")
	require.NoError(t, err)
	require.True(t, ok)

	p := params(file("a.pdf", 2))
	p.IdempotencyKey = "req-9"
	_, err = f.svc.SubmitOrders(context.Background(), p)

	require.ErrorIs(t, err, domain.ErrSubmissionInProgress)
	assert.Empty(t, f.orders.records)
	assert.Zero(t, f.files.saves)
	assert.True(t, f.idem.held("req-9"), "claim belongs to the other request")
}

func TestSubmitOrdersConcurrentSameKey(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	gated := newGatedFileStore(f.files)
	svc := NewOrderService(gated, f.orders, NewNotificationService(f.notifier, ""), f.events, f.idem, f.metrics,
		OrderOptions{SaveBackoff: time.Millisecond})

	request := func() SubmitParams {
		p := params(file("a.pdf", 2))
		p.IdempotencyKey = "req-10"
		return p
	}

	type outcome struct {
		res domain.BatchResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := svc.SubmitOrders(context.Background(), request())
		first <- outcome{res, err}
	}()
	<-gated.entered

	_, err := svc.SubmitOrders(context.Background(), request())
	require.ErrorIs(t, err, domain.ErrSubmissionInProgress)

	close(gated.release)
	got := <-first
	require.NoError(t, got.err)
	assert.False(t, got.res.Replayed)
	assert.False(t, f.idem.held("req-10"))

	again, err := svc.SubmitOrders(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Len(t, f.orders.records, 1)
	assert.Len(t, f.notifier.sent, 1)
}

func TestSubmitOrdersReplaysResultStoredBeforeClaim(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	stored := domain.Submission{
		Result:       domain.NewBatchResult([]domain.FileOutcome{{FileName: "a.pdf", Pages: 2, Cost: 400, OrderID: "earlier"}}),
		Notification: domain.NotificationStatus{Delivered: true},
	}
	f.idem.onReserve = func(key string) { f.idem.subs[key] = stored }

	p := params(file("a.pdf", 2))
	p.IdempotencyKey = "req-11"
	res, err := f.svc.SubmitOrders(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, "earlier", res.Entries[0].OrderID)
	assert.Empty(t, f.orders.records)
	assert.False(t, f.idem.held("req-11"))
}

func TestSubmitOrdersAllFailedReleasesKey(t *testing.T) {
	f := newFixture(t, OrderOptions{SaveAttempts: 1})
	f.files.failures["a.pdf"] = 1
	p := params(file("a.pdf", 2))
	p.IdempotencyKey = "req-12"

	_, err := f.svc.SubmitOrders(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrAllOrdersFailed)
	assert.False(t, f.idem.held("req-12"))

	p.Files = []FileInput{file("a.pdf", 2)}
	res, err := f.svc.SubmitOrders(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Len(t, f.orders.records, 1)
}

func TestSubmitOrdersCanceled(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.SubmitOrders(ctx, params(file("a.pdf", 1)))
	require.ErrorIs(t, err, domain.ErrAllOrdersFailed)
	assert.Equal(t, "storage upload failed: abandoned", res.Entries[0].FailureReason)
}

func TestSubmitOrdersValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitParams)
		want   string
	}{
		{"no files", func(p *SubmitParams) { p.Files = nil }, "at least one file"},
		{"bad email", func(p *SubmitParams) { p.Customer.Email = "ann@" }, "email"},
		{"display name email", func(p *SubmitParams) { p.Customer.Email = "Ann <ann@example.com>" }, "email"},
		{"no name", func(p *SubmitParams) { p.Customer.Name = "  " }, "name"},
		{"paper", func(p *SubmitParams) { p.PaperSize = "B5" }, "paper size"},
		{"print type", func(p *SubmitParams) { p.PrintType = "laser" }, "print type"},
		{"zero pages", func(p *SubmitParams) { p.Files[0].Pages = 0 }, "at least one page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, OrderOptions{})
			p := params(file("a.pdf", 1))
			tt.mutate(&p)

			_, err := f.svc.SubmitOrders(context.Background(), p)
			require.ErrorIs(t, err, domain.ErrInvalidOrder)
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, f.files.saves)
		})
	}
}
