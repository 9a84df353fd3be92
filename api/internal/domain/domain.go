package domain

import (
	"time"

	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/pricing"
)

type OrderStatus string

const StatusPending OrderStatus = "pending"

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderRecord is persisted once per file whose bytes reached storage.
type OrderRecord struct {
	ID          string            `json:"id" firestore:"-"`
	FileName    string            `json:"file_name" firestore:"file_name"`
	StoragePath string            `json:"storage_path" firestore:"storage_path"`
	Pages       int               `json:"pages" firestore:"pages"`
	PaperSize   pricing.PaperSize `json:"paper_size" firestore:"paper_size"`
	ColorMode   pricing.ColorMode `json:"color_mode" firestore:"color_mode"`
	PrintType   string            `json:"print_type" firestore:"print_type"`
	Cost        pricing.Money     `json:"cost_cents" firestore:"cost_cents"`
	Customer    Customer          `json:"customer" firestore:"customer"`
	Status      OrderStatus       `json:"status" firestore:"status"`
	CreatedAt   time.Time         `json:"created_at" firestore:"created_at"`
}

// FileOutcome is one file's entry in a batch. OrderID is empty when the
// file failed.
type FileOutcome struct {
	FileName      string        `json:"file_name"`
	Pages         int           `json:"pages"`
	Cost          pricing.Money `json:"cost_cents"`
	OrderID       string        `json:"order_id,omitempty"`
	StoragePath   string        `json:"storage_path,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

func (o FileOutcome) Succeeded() bool { return o.OrderID != "" }

type BatchResult struct {
	Entries   []FileOutcome `json:"entries"`
	TotalCost pricing.Money `json:"total_cost_cents"`
	Total     string        `json:"total_cost"`
	Replayed  bool          `json:"replayed,omitempty"`
}

// NewBatchResult totals the cost of the successful entries only.
func NewBatchResult(entries []FileOutcome) BatchResult {
	var total pricing.Money
	for _, e := range entries {
		if e.Succeeded() {
			total += e.Cost
		}
	}
	return BatchResult{Entries: entries, TotalCost: total, Total: total.String()}
}

func (b BatchResult) Successful() []FileOutcome {
	var out []FileOutcome
	for _, e := range b.Entries {
		if e.Succeeded() {
			out = append(out, e)
		}
	}
	return out
}

func (b BatchResult) FailedCount() int {
	return len(b.Entries) - len(b.Successful())
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type NotificationStatus struct {
	Delivered bool   `json:"delivered"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NotificationError is returned when orders exist but their confirmation
// was not delivered. Status is what the caller is told. Err matches
// ErrNotificationFailed.
type NotificationError struct {
	Status NotificationStatus
	Err    error
}

func NewNotificationError(status NotificationStatus, cause error) *NotificationError {
	status.Delivered = false
	if status.Code == "" {
		status.Code = ErrNotificationFailed.Code
	}
	if status.Message == "" {
		status.Message = ErrNotificationFailed.Message
	}
	return &NotificationError{Status: status, Err: ErrNotificationFailed.Wrap(cause)}
}

func (e *NotificationError) Error() string { return e.Err.Error() }

func (e *NotificationError) Unwrap() error { return e.Err }

// Submission is what an idempotency key replays.
type Submission struct {
	Result       BatchResult        `json:"result"`
	Notification NotificationStatus `json:"notification"`
}

type OrdersResponse struct {
	Result       BatchResult        `json:"result"`
	Notification NotificationStatus `json:"notification"`
}

type NotifyResponse struct {
	Delivered bool `json:"delivered"`
}

type OrderCreated struct {
	OrderID     string        `json:"order_id"`
	FileName    string        `json:"file_name"`
	StoragePath string        `json:"storage_path"`
	Pages       int           `json:"pages"`
	Cost        pricing.Money `json:"cost_cents"`
	Email       string        `json:"email"`
	CreatedAt   time.Time     `json:"created_at"`
}

type CountPagesResponse struct {
	Pages  int  `json:"pages"`
	Cached bool `json:"cached"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Result  *BatchResult `json:"result,omitempty"`
}

var (
	ErrInvalidOrder         = apperr.Validation("invalid_order", "invalid order", nil)
	ErrAllOrdersFailed      = apperr.External("all_orders_failed", "no order could be created", nil)
	ErrNotificationFailed   = apperr.External("notification_failed", "confirmation could not be delivered", nil)
	ErrInvalidRecipient     = apperr.Validation("invalid_recipient", "invalid recipient", nil)
	ErrInvalidMessage       = apperr.Validation("invalid_message", "invalid message", nil)
	ErrNotifierUnconfigured = apperr.Unavailable("notifier_unconfigured", "email transport is not configured", nil)
	ErrSubmissionInProgress = apperr.Unavailable("submission_in_progress", "a submission with this idempotency key is still in progress", nil)
)
