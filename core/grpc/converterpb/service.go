package converterpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName          = "printq.converter.v1.ConverterService"
	CountPagesFullMethod = "/" + ServiceName + "/CountPages"
	countPagesMethodName = "CountPages"
)

type ConverterServiceServer interface {
	CountPages(context.Context, *CountPagesRequest) (*CountPagesResponse, error)
}

type UnimplementedConverterServiceServer struct{}

func (UnimplementedConverterServiceServer) CountPages(context.Context, *CountPagesRequest) (*CountPagesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CountPages not implemented")
}

func RegisterConverterServiceServer(s grpc.ServiceRegistrar, srv ConverterServiceServer) {
	s.RegisterService(&ConverterService_ServiceDesc, srv)
}

func _ConverterService_CountPages_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CountPagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConverterServiceServer).CountPages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CountPagesFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConverterServiceServer).CountPages(ctx, req.(*CountPagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var ConverterService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConverterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: countPagesMethodName,
			Handler:    _ConverterService_CountPages_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "printq/converter/v1/converter.proto",
}

type ConverterServiceClient interface {
	CountPages(ctx context.Context, in *CountPagesRequest, opts ...grpc.CallOption) (*CountPagesResponse, error)
}

type converterServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewConverterServiceClient(cc grpc.ClientConnInterface) ConverterServiceClient {
	return &converterServiceClient{cc: cc}
}

func (c *converterServiceClient) CountPages(ctx context.Context, in *CountPagesRequest, opts ...grpc.CallOption) (*CountPagesResponse, error) {
	out := new(CountPagesResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, CountPagesFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
