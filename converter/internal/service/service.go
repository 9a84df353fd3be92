package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/you-humble/printq/converter/internal/converter"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/grpc/converterpb"
)

type Converter interface {
	Convert(ctx context.Context, data []byte, originalName string) (converter.Result, error)
}

type ConverterService struct {
	converter Converter
	maxBytes  int64
	converterpb.UnimplementedConverterServiceServer
}

func NewConverterService(c Converter, maxBytes int64) *ConverterService {
	return &ConverterService{converter: c, maxBytes: maxBytes}
}

func (s *ConverterService) CountPages(ctx context.Context, req *converterpb.CountPagesRequest) (*converterpb.CountPagesResponse, error) {
	name, content := req.GetFileName(), req.GetContent()

	if err := s.validate(name, content); err != nil {
		slog.Warn("count pages rejected",
			slog.String("file_name", name),
			slog.Int("size", len(content)),
			slog.String("error", err.Error()),
		)
		return nil, apperr.GRPCStatus(err)
	}

	res, err := s.converter.Convert(ctx, content, name)
	if err != nil {
		slog.Error("count pages failed",
			slog.String("file_name", name),
			slog.String("code", apperr.CodeOf(err)),
			slog.String("error", err.Error()),
		)
		return nil, apperr.GRPCStatus(err)
	}

	slog.Info("count pages success",
		slog.String("file_name", name),
		slog.Int("pages", res.Pages),
		slog.Bool("cached", res.Cached),
	)

	return &converterpb.CountPagesResponse{
		Pages:  int32(res.Pages),
		Cached: res.Cached,
	}, nil
}

func (s *ConverterService) validate(name string, content []byte) error {
	if len(content) == 0 {
		return converterpb.ErrNoFileProvided
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return converterpb.ErrPayloadTooLarge.WithDetail(
			fmt.Sprintf("file is %d bytes, limit is %d", len(content), s.maxBytes),
		)
	}
	if !converter.IsWordDocument(name) {
		return converterpb.ErrUnsupportedMediaType.WithDetail("only .doc, .docx, .odt and .rtf are converted")
	}
	return converter.CheckContent(name, content)
}
