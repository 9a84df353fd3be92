package converter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/you-humble/printq/converter/internal/infra/scratch"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/filename"
	"github.com/you-humble/printq/core/grpc/converterpb"
	"github.com/you-humble/printq/core/metrics"
	"github.com/you-humble/printq/core/pdfpages"
)

// Runner turns input inside jobDir into <base>.pdf next to it.
type Runner interface {
	Run(ctx context.Context, jobDir, input string) error
}

type PageCounter interface {
	CountPages(path string) (int, error)
}

type PageCounterFunc func(path string) (int, error)

func (f PageCounterFunc) CountPages(path string) (int, error) { return f(path) }

// PDFCounter counts artifact pages with pdfcpu.
var PDFCounter PageCounter = PageCounterFunc(pdfpages.CountFile)

type Cache interface {
	Get(ctx context.Context, sum string) (int, bool, error)
	Set(ctx context.Context, sum string, pages int) error
}

type Result struct {
	Pages  int
	Cached bool
}

type Converter struct {
	workspace *scratch.Workspace
	runner    Runner
	counter   PageCounter
	cache     Cache
	metrics   *metrics.ConversionMetrics

	sem chan struct{}
}

// New returns a Converter running at most maxParallel subprocesses at once.
// cache may be nil.
func New(
	workspace *scratch.Workspace,
	runner Runner,
	counter PageCounter,
	cache Cache,
	m *metrics.ConversionMetrics,
	maxParallel int,
) *Converter {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	if counter == nil {
		counter = PDFCounter
	}

	return &Converter{
		workspace: workspace,
		runner:    runner,
		counter:   counter,
		cache:     cache,
		metrics:   m,
		sem:       make(chan struct{}, maxParallel),
	}
}

// Convert waits for a subprocess slot, writes data into a fresh job
// directory, converts it and returns the page count of the produced PDF.
// The job directory is always removed before Convert returns.
func (c *Converter) Convert(ctx context.Context, data []byte, originalName string) (Result, error) {
	res, err := c.convert(ctx, data, originalName)
	if err != nil {
		c.metrics.Conversions.WithLabelValues(apperr.CodeOf(err)).Inc()
		return Result{}, err
	}

	outcome := "ok"
	if res.Cached {
		outcome = "cached"
	}
	c.metrics.Conversions.WithLabelValues(outcome).Inc()
	return res, nil
}

func (c *Converter) convert(ctx context.Context, data []byte, originalName string) (Result, error) {
	if len(data) == 0 {
		return Result{}, converterpb.ErrNoFileProvided
	}

	name := filename.Sanitize(originalName)
	digest := sha256.Sum256(data)
	sum := hex.EncodeToString(digest[:])

	l := slog.With(
		slog.String("file_name", name),
		slog.String("sha256", sum),
	)

	if pages, ok := c.lookup(ctx, l, sum); ok {
		l.Info("page count served from cache", slog.Int("pages", pages))
		return Result{Pages: pages, Cached: true}, nil
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return Result{}, converterpb.ErrConverterUnavailable.
			WithKind(apperr.KindTimeout).
			WithDetail("converter busy").
			Wrap(ctx.Err())
	}

	// The job directory only exists while a slot is held, so its age stays
	// within the run timeout the sweeper is tuned against.
	job, err := c.workspace.NewJob()
	if err != nil {
		return Result{}, apperr.Internal("scratch_unavailable", "cannot create scratch job", err)
	}
	defer func() {
		if err := job.Remove(); err != nil {
			l.Warn("cleanup scratch job", slog.String("error", err.Error()))
		}
	}()

	input, _, err := job.Write(ctx, bytes.NewReader(data), uuid.NewString()+"_"+name)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, apperr.Timeout("canceled", "request canceled", ctx.Err())
		}
		return Result{}, apperr.Internal("scratch_write_failed", "cannot write scratch file", err)
	}
	l = l.With(slog.String("job_dir", job.Dir()))

	start := time.Now()
	c.metrics.InFlight.Inc()
	err = c.runner.Run(ctx, job.Dir(), input)
	c.metrics.InFlight.Dec()
	c.metrics.DurationSec.Observe(time.Since(start).Seconds())
	if err != nil {
		l.Warn("converter run failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	artifact := strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
	if _, err := os.Stat(artifact); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, converterpb.ErrConversionFailed.WithDetail("artifact missing")
		}
		return Result{}, converterpb.ErrArtifactUnreadable.Wrap(err)
	}

	pages, err := c.counter.CountPages(artifact)
	if err != nil {
		return Result{}, converterpb.ErrArtifactUnreadable.Wrap(err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, sum, pages); err != nil {
			l.Warn("page count cache set", slog.String("error", err.Error()))
		}
	}

	l.Info("converted",
		slog.Int("pages", pages),
		slog.Duration("duration", time.Since(start)),
	)
	return Result{Pages: pages}, nil
}

func (c *Converter) lookup(ctx context.Context, l *slog.Logger, sum string) (int, bool) {
	if c.cache == nil {
		return 0, false
	}

	pages, ok, err := c.cache.Get(ctx, sum)
	if err != nil {
		l.Warn("page count cache get", slog.String("error", err.Error()))
		return 0, false
	}
	return pages, ok
}
