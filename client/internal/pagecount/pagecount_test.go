package pagecount

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/printq/client/internal/intake"
	"github.com/you-humble/printq/core/pdfpages/pdftest"
)

type converterFunc func(ctx context.Context, name string, data []byte) (int, error)

func (f converterFunc) CountPages(ctx context.Context, name string, data []byte) (int, error) {
	return f(ctx, name, data)
}

func candidate(name string, kind intake.Kind, data []byte) intake.Candidate {
	return intake.Candidate{
		Name: name,
		Size: int64(len(data)),
		Kind: kind,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func TestResolvePDF(t *testing.T) {
	r := NewResolver(nil, 0, 0)

	res := r.Resolve(context.Background(), candidate("a.pdf", intake.KindPDF, pdftest.Build(3)))
	assert.Equal(t, Result{Pages: 3, Status: intake.StatusResolved}, res)

	res = r.Resolve(context.Background(), candidate("broken.pdf", intake.KindPDF, []byte("not a pdf")))
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, intake.StatusDefaultedAfterFailure, res.Status)
	assert.NotEmpty(t, res.Reason)
}

func TestResolveImageNeverReads(t *testing.T) {
	r := NewResolver(nil, 0, 0)
	c := intake.Candidate{
		Name: "scan.png",
		Kind: intake.KindImage,
		Open: func() (io.ReadCloser, error) { t.Fatal("image content read"); return nil, nil },
	}

	assert.Equal(t, Result{Pages: 1, Status: intake.StatusResolved}, r.Resolve(context.Background(), c))
}

func TestResolveWord(t *testing.T) {
	tests := []struct {
		name       string
		conv       Converter
		wantPages  int
		wantStatus intake.Status
	}{
		{"converted", converterFunc(func(context.Context, string, []byte) (int, error) { return 2, nil }), 2, intake.StatusResolved},
		{"transport error", converterFunc(func(context.Context, string, []byte) (int, error) { return 0, errors.New("503") }), 1, intake.StatusDefaultedAfterFailure},
		{"zero pages", converterFunc(func(context.Context, string, []byte) (int, error) { return 0, nil }), 1, intake.StatusDefaultedAfterFailure},
		{"no converter", nil, 1, intake.StatusDefaultedAfterFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.conv, time.Second, 1)
			res := r.Resolve(context.Background(), candidate("b.docx", intake.KindWord, []byte("PK")))
			assert.Equal(t, tt.wantPages, res.Pages)
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestResolveWordTimeoutDefaults(t *testing.T) {
	conv := converterFunc(func(ctx context.Context, _ string, _ []byte) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	r := NewResolver(conv, 30*time.Millisecond, 1)

	start := time.Now()
	res := r.Resolve(context.Background(), candidate("b.docx", intake.KindWord, []byte("PK")))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, intake.StatusDefaultedAfterFailure, res.Status)
	assert.Contains(t, res.Reason, "deadline exceeded")
}

func TestResolveAllIndexAlignedAndBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	conv := converterFunc(func(_ context.Context, name string, _ []byte) (int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return len(name), nil
	})
	r := NewResolver(conv, time.Second, 2)

	names := []string{"a.doc", "bb.doc", "ccc.doc", "dddd.doc", "eeeee.doc"}
	cands := make([]intake.Candidate, len(names))
	for i, n := range names {
		cands[i] = candidate(n, intake.KindWord, []byte("x"))
	}

	results := r.ResolveAll(context.Background(), cands)
	require.Len(t, results, len(names))
	for i, n := range names {
		assert.Equal(t, len(n), results[i].Pages, n)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
