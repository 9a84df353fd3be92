package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/api/internal/usecase"
	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/grpc/converterpb"
)

type Converter interface {
	CountPages(ctx context.Context, name string, data []byte) (domain.CountPagesResponse, error)
}

type Orders interface {
	SubmitOrders(ctx context.Context, p usecase.SubmitParams) (domain.BatchResult, error)
}

type Notifier interface {
	Send(ctx context.Context, msg domain.Message) error
}

const multipartMemory = 32 << 20

var (
	errMethodNotAllowed = apperr.Validation("method_not_allowed", "method not allowed", nil)
	errInvalidRequest   = apperr.Validation("invalid_request", "invalid request", nil)
)

type handler struct {
	maxUploadBytes int64
	maxOrderBytes  int64
	converter      Converter
	orders         Orders
	notifier       Notifier
}

func NewHandler(maxUploadMB, maxOrderMB int64, conv Converter, orders Orders, notifier Notifier) *handler {
	return &handler{
		maxUploadBytes: maxUploadMB << 20,
		maxOrderBytes:  maxOrderMB << 20,
		converter:      conv,
		orders:         orders,
		notifier:       notifier,
	}
}

func requestLogger(r *http.Request, name string) *slog.Logger {
	return slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", name),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func (h *handler) convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errMethodNotAllowed)
		return
	}

	logger := requestLogger(r, "convert")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Warn("ParseMultipartForm", slog.String("error", err.Error()))
		writeError(w, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("missing file field")
		writeError(w, converterpb.ErrNoFileProvided.WithDetail("field `file` is required"))
		return
	}
	defer file.Close()

	logger = logger.With(slog.String("file_name", header.Filename))

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("read upload", slog.String("error", err.Error()))
		writeError(w, errInvalidRequest.WithDetail("cannot read uploaded file"))
		return
	}

	resp, err := h.converter.CountPages(r.Context(), header.Filename, data)
	if err != nil {
		logger.Error("CountPages", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) submitOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errMethodNotAllowed)
		return
	}

	logger := requestLogger(r, "orders")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxOrderBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Warn("ParseMultipartForm", slog.String("error", err.Error()))
		writeError(w, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["file"]

	// pages[i] is the page count of the i-th file part.
	var pages []int
	if raw := r.FormValue("pages"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pages); err != nil {
			writeError(w, domain.ErrInvalidOrder.WithDetail("field `pages` must be a JSON array of page counts in file order"))
			return
		}
		if len(pages) != len(parts) {
			writeError(w, domain.ErrInvalidOrder.WithDetail(
				fmt.Sprintf("field `pages` has %d entries for %d files", len(pages), len(parts))))
			return
		}
	}

	files, closeFiles, err := openParts(parts, pages)
	defer closeFiles()
	if err != nil {
		logger.Error("open parts", slog.String("error", err.Error()))
		writeError(w, errInvalidRequest.WithDetail("cannot read uploaded files"))
		return
	}

	params := usecase.SubmitParams{
		Customer: domain.Customer{
			Name:  r.FormValue("name"),
			Email: r.FormValue("email"),
		},
		PaperSize:      r.FormValue("paper_size"),
		PrintType:      r.FormValue("print_type"),
		Files:          files,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if params.IdempotencyKey != "" {
		logger = logger.With(slog.String("idempotency_key", params.IdempotencyKey))
	}

	res, err := h.orders.SubmitOrders(r.Context(), params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, domain.OrdersResponse{
			Result:       res,
			Notification: domain.NotificationStatus{Delivered: true},
		})
	case errors.Is(err, domain.ErrNotificationFailed):
		logger.Warn("orders created without confirmation", slog.String("error", err.Error()))
		status := domain.NotificationStatus{Code: domain.ErrNotificationFailed.Code, Message: err.Error()}
		var ne *domain.NotificationError
		if errors.As(err, &ne) {
			status = ne.Status
		}
		writeJSON(w, http.StatusOK, domain.OrdersResponse{Result: res, Notification: status})
	case errors.Is(err, domain.ErrAllOrdersFailed):
		logger.Error("SubmitOrders", slog.String("error", err.Error()))
		writeErrorWithResult(w, err, &res)
	default:
		logger.Warn("SubmitOrders", slog.String("error", err.Error()))
		writeError(w, err)
	}
}

func openParts(headers []*multipart.FileHeader, pages []int) ([]usecase.FileInput, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]usecase.FileInput, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open part %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)

		var n int
		if i < len(pages) {
			n = pages[i]
		}
		files = append(files, usecase.FileInput{
			Name:    fh.Filename,
			Pages:   n,
			Size:    fh.Size,
			Content: f,
		})
	}
	return files, closeAll, nil
}

type notifyRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *handler) notify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errMethodNotAllowed)
		return
	}

	logger := requestLogger(r, "notify")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("decode body", slog.String("error", err.Error()))
		writeError(w, errInvalidRequest.WithDetail("body must be a JSON object with to, subject and body"))
		return
	}

	err := h.notifier.Send(r.Context(), domain.Message{To: req.To, Subject: req.Subject, Body: req.Body})
	if err != nil {
		logger.Error("Send", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.NotifyResponse{Delivered: true})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, errMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, domain.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return converterpb.ErrPayloadTooLarge.WithDetail(
			fmt.Sprintf("request body exceeds %d MB", tooLarge.Limit>>20))
	}
	return errInvalidRequest.WithDetail("unable to parse multipart form")
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWithResult(w, err, nil)
}

func writeErrorWithResult(w http.ResponseWriter, err error, res *domain.BatchResult) {
	status := apperr.HTTPStatus(err)
	resp := domain.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    apperr.CodeOf(err),
		Message: http.StatusText(status),
		Result:  res,
	}
	if ae, ok := apperr.As(err); ok {
		resp.Message = ae.Message
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
