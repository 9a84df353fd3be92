package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/printq/api/internal/domain"
)

func TestCompose(t *testing.T) {
	s := NewNotificationService(&recordingNotifier{}, "Pick up at desk 3.")
	entries := []domain.FileOutcome{
		{FileName: "a.pdf", Pages: 3, Cost: 600, OrderID: "1"},
		{FileName: "b.pdf", Pages: 1, Cost: 200, OrderID: "2"},
	}

	msg, err := s.Compose(domain.Customer{Name: "Ann", Email: "ann@example.com"}, entries, 800)
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Print order confirmation: 2 file(s), total 8.00", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "Hello Ann,"))
	assert.Contains(t, msg.Body, "- a.pdf: 3 pages, 6.00\n- b.pdf: 1 page, 2.00\n")
	assert.Contains(t, msg.Body, "Total: 8.00")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg.Body), "Pick up at desk 3."))
}

func TestComposeDefaultFooter(t *testing.T) {
	s := NewNotificationService(&recordingNotifier{}, " ")

	msg, err := s.Compose(domain.Customer{Name: "Ann", Email: "ann@example.com"}, nil, 0)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, DefaultFooter)
}

func TestSendValidates(t *testing.T) {
	n := &recordingNotifier{}
	s := NewNotificationService(n, "")

	err := s.Send(context.Background(), domain.Message{To: "not-an-address", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)

	err = s.Send(context.Background(), domain.Message{To: "ann@example.com", Subject: "", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)

	require.NoError(t, s.Send(context.Background(), domain.Message{To: " ann@example.com ", Subject: "s", Body: "b"}))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "ann@example.com", n.sent[0].To)
}

func TestSendPassesTransportErrors(t *testing.T) {
	s := NewNotificationService(&recordingNotifier{err: domain.ErrNotifierUnconfigured}, "")

	err := s.Send(context.Background(), domain.Message{To: "ann@example.com", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrNotifierUnconfigured)
}
