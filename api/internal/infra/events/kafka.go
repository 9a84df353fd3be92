package events

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/you-humble/printq/api/internal/domain"
	kafkaq "github.com/you-humble/printq/core/libs/kafka"
)

type kafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *kafkaPublisher {
	return &kafkaPublisher{w: w}
}

func (p *kafkaPublisher) Publish(ctx context.Context, ev domain.OrderCreated) error {
	return kafkaq.PublishJSON(ctx, p.w, ev.OrderID, ev)
}
