package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/you-humble/printq/api/internal/domain"
)

type natsPublisher struct {
	js      nats.JetStreamContext
	subject string
}

func NewNATSPublisher(js nats.JetStreamContext, subject string) *natsPublisher {
	return &natsPublisher{js: js, subject: subject}
}

func (p *natsPublisher) Publish(ctx context.Context, ev domain.OrderCreated) error {
	if ev.OrderID == "" {
		return fmt.Errorf("empty order id")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order.created: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(nats.MsgIdHdr, ev.OrderID)

	ack, err := p.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish order %s: %w", ev.OrderID, err)
	}

	slog.Debug("order event published",
		slog.String("order_id", ev.OrderID),
		slog.String("subject", p.subject),
		slog.String("stream", ack.Stream),
		slog.Uint64("seq", ack.Sequence),
	)
	return nil
}
