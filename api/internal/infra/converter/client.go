package converter

import (
	"context"

	"google.golang.org/grpc"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/grpc/converterpb"
)

type client struct {
	rpc converterpb.ConverterServiceClient
}

func NewClient(conn grpc.ClientConnInterface) *client {
	return &client{rpc: converterpb.NewConverterServiceClient(conn)}
}

// CountPages forwards the document to the converter service and rebuilds the
// service's error codes from the gRPC status.
func (c *client) CountPages(ctx context.Context, name string, data []byte) (domain.CountPagesResponse, error) {
	resp, err := c.rpc.CountPages(ctx, &converterpb.CountPagesRequest{
		FileName: name,
		Content:  data,
	})
	if err != nil {
		return domain.CountPagesResponse{}, translate(err)
	}

	return domain.CountPagesResponse{
		Pages:  int(resp.GetPages()),
		Cached: resp.GetCached(),
	}, nil
}

func translate(err error) error {
	err = apperr.FromGRPC(err)
	if apperr.CodeOf(err) == "dependency_unavailable" {
		return converterpb.ErrConverterUnavailable.Wrap(err)
	}
	return err
}
