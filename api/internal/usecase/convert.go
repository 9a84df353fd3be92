package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/grpc/converterpb"
)

type ConversionService struct {
	conv    PageConverter
	timeout time.Duration
}

func NewConversionService(conv PageConverter, timeout time.Duration) *ConversionService {
	if timeout <= 0 {
		timeout = 75 * time.Second
	}
	return &ConversionService{conv: conv, timeout: timeout}
}

// CountPages asks the converter service for the page count of a word
// document. The call is bounded by the service timeout.
func (s *ConversionService) CountPages(ctx context.Context, name string, data []byte) (domain.CountPagesResponse, error) {
	if len(data) == 0 {
		return domain.CountPagesResponse{}, converterpb.ErrNoFileProvided
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.conv.CountPages(ctx, name, data)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && apperr.KindOf(err) != apperr.KindTimeout {
			err = apperr.Timeout("timeout", "converter did not answer in time", err)
		}
		return domain.CountPagesResponse{}, err
	}

	slog.Debug("pages counted",
		slog.String("file_name", name),
		slog.Int("pages", resp.Pages),
		slog.Bool("cached", resp.Cached),
		slog.Duration("took", time.Since(start)),
	)
	return resp, nil
}
