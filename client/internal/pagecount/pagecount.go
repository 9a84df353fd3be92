// Package pagecount determines the billable page count of queued documents.
// Every path ends in a count of at least one page.
package pagecount

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/you-humble/printq/client/internal/intake"
	"github.com/you-humble/printq/core/pdfpages"
)

const (
	DefaultWordTimeout = 75 * time.Second
	DefaultParallel    = 4
)

// Converter counts the pages of a word-processor document remotely.
type Converter interface {
	CountPages(ctx context.Context, name string, data []byte) (int, error)
}

type Result struct {
	Pages  int
	Status intake.Status
	Reason string
}

func resolved(pages int) Result {
	return Result{Pages: pages, Status: intake.StatusResolved}
}

func defaulted(reason string) Result {
	return Result{Pages: 1, Status: intake.StatusDefaultedAfterFailure, Reason: reason}
}

type Resolver struct {
	conv        Converter
	wordTimeout time.Duration
	parallel    int
}

// NewResolver returns a resolver delegating word documents to conv. A nil
// conv defaults every word document to one page.
func NewResolver(conv Converter, wordTimeout time.Duration, parallel int) *Resolver {
	if wordTimeout <= 0 {
		wordTimeout = DefaultWordTimeout
	}
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	return &Resolver{conv: conv, wordTimeout: wordTimeout, parallel: parallel}
}

func (r *Resolver) Resolve(ctx context.Context, c intake.Candidate) Result {
	l := slog.With(slog.String("file_name", c.Name), slog.String("kind", string(c.Kind)))

	var res Result
	switch c.Kind {
	case intake.KindImage:
		return resolved(1)
	case intake.KindPDF:
		res = r.pdf(c)
	case intake.KindWord:
		res = r.word(ctx, c)
	default:
		res = defaulted(fmt.Sprintf("unsupported kind %q", c.Kind))
	}

	if res.Status == intake.StatusDefaultedAfterFailure {
		l.Warn("page count defaulted", slog.String("reason", res.Reason))
	}
	return res
}

// ResolveAll resolves cands concurrently. Results are index-aligned with cands.
func (r *Resolver) ResolveAll(ctx context.Context, cands []intake.Candidate) []Result {
	results := make([]Result, len(cands))

	g := new(errgroup.Group)
	g.SetLimit(r.parallel)
	for i, c := range cands {
		g.Go(func() error {
			results[i] = r.Resolve(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Resolver) pdf(c intake.Candidate) Result {
	data, err := readAll(c)
	if err != nil {
		return defaulted(err.Error())
	}

	n, err := pdfpages.Count(bytes.NewReader(data))
	if err != nil {
		return defaulted(err.Error())
	}
	return resolved(n)
}

func (r *Resolver) word(ctx context.Context, c intake.Candidate) Result {
	if r.conv == nil {
		return defaulted("converter not configured")
	}

	data, err := readAll(c)
	if err != nil {
		return defaulted(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.wordTimeout)
	defer cancel()

	n, err := r.conv.CountPages(ctx, c.Name, data)
	if err != nil {
		return defaulted(fmt.Sprintf("conversion: %v", err))
	}
	if n < 1 {
		return defaulted(fmt.Sprintf("converter reported %d pages", n))
	}
	return resolved(n)
}

func readAll(c intake.Candidate) ([]byte, error) {
	if c.Open == nil {
		return nil, fmt.Errorf("%s has no content", c.Name)
	}
	rc, err := c.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Name, err)
	}
	return data, nil
}
