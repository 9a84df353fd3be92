// Package submission gates order submission for one client session: the
// pending queue, its quote and the in-flight submission.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/you-humble/printq/client/internal/intake"
	"github.com/you-humble/printq/client/internal/pagecount"
	"github.com/you-humble/printq/core/pricing"
)

var ErrUnknownPrintType = errors.New("unknown print type")

type SubmitInput struct {
	Name      string
	Email     string
	PaperSize string
}

type Order struct {
	SubmitInput
	PrintType      string
	Files          []intake.QueuedFile
	IdempotencyKey string
}

type Outcome struct {
	Succeeded             int
	Failed                int
	Total                 string
	NotificationDelivered bool
	Replayed              bool
}

type Submitter interface {
	SubmitOrder(ctx context.Context, o Order) (Outcome, error)
}

type QuoteLine struct {
	Name   string
	Pages  int
	Status intake.Status
	Cost   pricing.Money
}

type Quote struct {
	PrintType  pricing.PrintType
	Lines      []QuoteLine
	TotalPages int
	Total      pricing.Money
}

type Session struct {
	queue     *intake.Queue
	resolver  *pagecount.Resolver
	machine   *Machine
	printType pricing.PrintType

	// pendingKey is reused across retries of the same queue contents so a
	// resubmission after a lost response replays instead of duplicating.
	pendingKey string
}

func NewSession(resolver *pagecount.Resolver, obs Observer) *Session {
	pt, _ := pricing.Option(pricing.DefaultPrintType)
	return &Session{
		queue:     intake.NewQueue(),
		resolver:  resolver,
		machine:   NewMachine(obs),
		printType: pt,
	}
}

func (s *Session) State() State { return s.machine.State() }

func (s *Session) Files() []intake.QueuedFile { return s.queue.Files() }

// AddFiles filters cands, resolves their page counts and queues them.
func (s *Session) AddFiles(ctx context.Context, cands []intake.Candidate) ([]intake.QueuedFile, error) {
	if s.machine.State() == StateProcessing {
		return nil, ErrInFlight
	}

	accepted := intake.Filter(s.queue, cands)
	results := s.resolver.ResolveAll(ctx, accepted)

	added := make([]intake.QueuedFile, 0, len(accepted))
	for i, c := range accepted {
		f := intake.QueuedFile{
			Candidate: c,
			Pages:     results[i].Pages,
			Status:    results[i].Status,
			Reason:    results[i].Reason,
		}
		ok, err := s.queue.Add(f)
		if err != nil {
			return added, err
		}
		if ok {
			added = append(added, f)
		}
	}

	if len(added) > 0 {
		s.pendingKey = ""
	}
	s.machine.Sync(s.queue)
	return added, nil
}

func (s *Session) Remove(k intake.Key) (bool, error) {
	removed, err := s.queue.Remove(k)
	if err != nil {
		return false, err
	}
	if removed {
		s.pendingKey = ""
	}
	s.machine.Sync(s.queue)
	return removed, nil
}

func (s *Session) SetPrintType(id string) error {
	pt, ok := pricing.Option(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrintType, id)
	}
	if pt.ID != s.printType.ID {
		s.pendingKey = ""
	}
	s.printType = pt
	return nil
}

func (s *Session) Quote() Quote {
	files := s.queue.Files()

	q := Quote{PrintType: s.printType, Lines: make([]QuoteLine, 0, len(files))}
	pages := make([]int, 0, len(files))
	for _, f := range files {
		q.Lines = append(q.Lines, QuoteLine{
			Name:   f.Name,
			Pages:  f.Pages,
			Status: f.Status,
			Cost:   pricing.CostForFile(f.Pages, s.printType),
		})
		pages = append(pages, f.Pages)
	}
	q.TotalPages = pricing.TotalPages(pages)
	q.Total = pricing.TotalCost(pages, s.printType)
	return q
}

// Submit hands the frozen queue to sub. On failure the queue is kept and the
// session returns to Active. On success the queue is cleared.
func (s *Session) Submit(ctx context.Context, sub Submitter, in SubmitInput) (Outcome, error) {
	if err := s.machine.Begin(); err != nil {
		return Outcome{}, err
	}
	s.queue.Freeze()

	if s.pendingKey == "" {
		s.pendingKey = uuid.NewString()
	}

	out, err := sub.SubmitOrder(ctx, Order{
		SubmitInput:    in,
		PrintType:      s.printType.ID,
		Files:          s.queue.Files(),
		IdempotencyKey: s.pendingKey,
	})
	if err != nil {
		s.queue.Unfreeze()
		s.machine.Fail()
		slog.Warn("submission failed", slog.String("error", err.Error()))
		return Outcome{}, err
	}

	s.pendingKey = ""
	if err := s.machine.Succeed(s.queue); err != nil {
		return out, err
	}
	return out, nil
}
