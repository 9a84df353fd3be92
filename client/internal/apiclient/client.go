// Package apiclient talks to the printq HTTP api.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/you-humble/printq/client/internal/submission"
)

// APIError is a structured error answered by the api.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Result  *batch `json:"result"`
}

type entry struct {
	FileName      string `json:"file_name"`
	OrderID       string `json:"order_id"`
	FailureReason string `json:"failure_reason"`
}

type batch struct {
	Entries  []entry `json:"entries"`
	Total    string  `json:"total_cost"`
	Replayed bool    `json:"replayed"`
}

type ordersBody struct {
	Result       batch `json:"result"`
	Notification struct {
		Delivered bool   `json:"delivered"`
		Code      string `json:"code"`
		Message   string `json:"message"`
	} `json:"notification"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CountPages uploads one word document to /convert.
func (c *Client) CountPages(ctx context.Context, name string, data []byte) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return 0, fmt.Errorf("multipart: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return 0, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("multipart: %w", err)
	}

	var resp struct {
		Pages  int  `json:"pages"`
		Cached bool `json:"cached"`
	}
	if err := c.post(ctx, "/convert", mw.FormDataContentType(), &buf, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Pages, nil
}

// SubmitOrder streams the queued files to /orders.
func (c *Client) SubmitOrder(ctx context.Context, o submission.Order) (submission.Outcome, error) {
	// One count per file part, in part order. Names may repeat.
	pages := make([]int, len(o.Files))
	for i, f := range o.Files {
		pages[i] = f.Pages
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return submission.Outcome{}, fmt.Errorf("encode pages: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeOrder(mw, o, pagesJSON))
	}()

	headers := http.Header{}
	if o.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", o.IdempotencyKey)
	}

	var body ordersBody
	err = c.post(ctx, "/orders", mw.FormDataContentType(), pr, headers, &body)
	_ = pr.Close()
	if err != nil {
		return submission.Outcome{}, err
	}

	out := submission.Outcome{
		Total:                 body.Result.Total,
		NotificationDelivered: body.Notification.Delivered,
		Replayed:              body.Result.Replayed,
	}
	for _, e := range body.Result.Entries {
		if e.OrderID != "" {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

func writeOrder(mw *multipart.Writer, o submission.Order, pagesJSON []byte) error {
	fields := [][2]string{
		{"name", o.Name},
		{"email", o.Email},
		{"paper_size", o.PaperSize},
		{"print_type", o.PrintType},
		{"pages", string(pagesJSON)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	for _, f := range o.Files {
		if err := copyPart(mw, f.Name, f.Open); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyPart(mw *multipart.Writer, name string, open func() (io.ReadCloser, error)) error {
	if open == nil {
		return fmt.Errorf("%s has no content", name)
	}
	rc, err := open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, headers http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if body.Result != nil {
			var reasons []string
			for _, e := range body.Result.Entries {
				if e.FailureReason != "" {
					reasons = append(reasons, e.FileName+": "+e.FailureReason)
				}
			}
			if len(reasons) > 0 {
				apiErr.Message += " (" + strings.Join(reasons, "; ") + ")"
			}
		}
	}
	return apiErr
}

// CodeOf returns the api error code of err, or "" when err did not come from
// the api.
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
