package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/printq/client/internal/intake"
	"github.com/you-humble/printq/client/internal/submission"
)

func TestCountPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/convert", r.URL.Path)
		f, h, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "b.docx", h.Filename)
		assert.Equal(t, "PK", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pages":4,"cached":false}`))
	}))
	defer srv.Close()

	n, err := New(srv.URL, 0).CountPages(context.Background(), "b.docx", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCountPagesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Service Unavailable","code":"converter_unavailable","message":"converter unavailable"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).CountPages(context.Background(), "b.docx", []byte("PK"))
	require.Error(t, err)
	assert.Equal(t, "converter_unavailable", CodeOf(err))
}

func file(name, content string, pages int) intake.QueuedFile {
	return intake.QueuedFile{
		Candidate: intake.Candidate{
			Name: name,
			Size: int64(len(content)),
			Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader([]byte(content))), nil },
		},
		Pages: pages,
	}
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Ann", r.FormValue("name"))
		assert.Equal(t, "A4", r.FormValue("paper_size"))
		assert.Equal(t, "bw", r.FormValue("print_type"))

		var pages []int
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("pages")), &pages))
		assert.Equal(t, []int{3, 1}, pages)
		assert.Len(t, r.MultipartForm.File["file"], 2)

		_, _ = w.Write([]byte(`{"result":{"entries":[{"file_name":"a.pdf","order_id":"1"},{"file_name":"b.png","failure_reason":"storage upload failed"}],"total_cost":"6.00"},"notification":{"delivered":true}}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL, 0).SubmitOrder(context.Background(), submission.Order{
		SubmitInput:    submission.SubmitInput{Name: "Ann", Email: "ann@example.com", PaperSize: "A4"},
		PrintType:      "bw",
		Files:          []intake.QueuedFile{file("a.pdf", "aaa", 3), file("b.png", "b", 1)},
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.Outcome{Succeeded: 1, Failed: 1, Total: "6.00", NotificationDelivered: true}, out)
}

func TestSubmitOrderSameNameKeepsPerFilePages(t *testing.T) {
	q := intake.NewQueue()
	for _, f := range []intake.QueuedFile{
		file("doc.pdf", strings.Repeat("a", 100), 10),
		file("doc.pdf", strings.Repeat("b", 200), 1),
	} {
		ok, err := q.Add(f)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 11, q.TotalPages())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		parts := r.MultipartForm.File["file"]
		require.Len(t, parts, 2)
		var pages []int
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("pages")), &pages))
		require.Len(t, pages, 2)

		got := map[int64]int{}
		total := 0
		for i, fh := range parts {
			assert.Equal(t, "doc.pdf", fh.Filename)
			got[fh.Size] = pages[i]
			total += pages[i]
		}
		assert.Equal(t, map[int64]int{100: 10, 200: 1}, got)
		assert.Equal(t, 11, total)

		_, _ = w.Write([]byte(`{"result":{"entries":[],"total_cost":"22.00"},"notification":{"delivered":true}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).SubmitOrder(context.Background(), submission.Order{
		SubmitInput: submission.SubmitInput{Name: "Ann", Email: "ann@example.com", PaperSize: "A4"},
		PrintType:   "bw",
		Files:       q.Files(),
	})
	require.NoError(t, err)
}

func TestSubmitOrderAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"Bad Gateway","code":"all_orders_failed","message":"no order could be created","result":{"entries":[{"file_name":"a.pdf","failure_reason":"storage upload failed"}]}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).SubmitOrder(context.Background(), submission.Order{
		Files: []intake.QueuedFile{file("a.pdf", "aaa", 3)},
	})
	require.Error(t, err)
	assert.Equal(t, "all_orders_failed", CodeOf(err))
	assert.Contains(t, err.Error(), "a.pdf: storage upload failed")
}
