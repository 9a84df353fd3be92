package apperr

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const grpcDomain = "printq"

var codeHTTPStatus = map[string]int{
	"payload_too_large":      http.StatusRequestEntityTooLarge,
	"unsupported_media_type": http.StatusUnsupportedMediaType,
	"method_not_allowed":     http.StatusMethodNotAllowed,
	"submission_in_progress": http.StatusConflict,
}

var kindHTTPStatus = map[Kind]int{
	KindValidation:  http.StatusBadRequest,
	KindUnavailable: http.StatusServiceUnavailable,
	KindExternal:    http.StatusBadGateway,
	KindTimeout:     http.StatusGatewayTimeout,
	KindInternal:    http.StatusInternalServerError,
}

// HTTPStatus maps err to the status code the HTTP edge should answer with.
func HTTPStatus(err error) int {
	ae, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if s, ok := codeHTTPStatus[ae.Code]; ok {
		return s
	}
	if s, ok := kindHTTPStatus[ae.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

var kindGRPCCode = map[Kind]codes.Code{
	KindValidation:  codes.InvalidArgument,
	KindUnavailable: codes.Unavailable,
	KindExternal:    codes.Aborted,
	KindTimeout:     codes.DeadlineExceeded,
	KindInternal:    codes.Internal,
}

// GRPCStatus converts err into a gRPC status error that keeps the code and
// kind in an ErrorInfo detail so FromGRPC can rebuild it on the client.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isApp(err) {
		return err
	}

	ae, ok := As(err)
	if !ok {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			ae = Timeout("timeout", "deadline exceeded", err)
		case errors.Is(err, context.Canceled):
			return status.Error(codes.Canceled, err.Error())
		default:
			ae = Internal("internal", "internal error", err)
		}
	}

	c, ok := kindGRPCCode[ae.Kind]
	if !ok {
		c = codes.Internal
	}

	st := status.New(c, ae.Message)
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   ae.Code,
		Domain:   grpcDomain,
		Metadata: map[string]string{"kind": string(ae.Kind)},
	})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// FromGRPC rebuilds an *Error from a gRPC status error. Statuses without a
// printq ErrorInfo are classified by their gRPC code.
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != grpcDomain {
			continue
		}
		kind := Kind(info.GetMetadata()["kind"])
		if kind == "" {
			kind = KindInternal
		}
		return New(kind, info.GetReason(), st.Message(), nil)
	}

	switch st.Code() {
	case codes.Unavailable:
		return Unavailable("dependency_unavailable", st.Message(), err)
	case codes.DeadlineExceeded:
		return Timeout("timeout", st.Message(), err)
	case codes.Canceled:
		return Timeout("canceled", st.Message(), err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return Validation("invalid_request", st.Message(), err)
	case codes.ResourceExhausted:
		return Validation("payload_too_large", st.Message(), err)
	default:
		return Internal("internal", st.Message(), err)
	}
}

func isApp(err error) bool {
	_, ok := As(err)
	return ok
}
