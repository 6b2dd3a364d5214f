package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"hlopg/internal/app/services/notifications"
)

// EventSink receives decoded CloudEvents.
type EventSink interface {
	Handle(ctx context.Context, ev notifications.Event) error
}

// CloudEventHandler decodes the JSON envelope written by the outbox worker.
type CloudEventHandler struct {
	Sink EventSink
}

type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h CloudEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("kafka: decode cloudevent at offset %d: %w", msg.Offset, err)
	}
	if env.ID == "" || env.Type == "" {
		return fmt.Errorf("kafka: cloudevent at offset %d missing id or type", msg.Offset)
	}
	return h.Sink.Handle(ctx, notifications.Event{ID: env.ID, Type: env.Type, Data: env.Data})
}

var _ MessageHandler = CloudEventHandler{}
