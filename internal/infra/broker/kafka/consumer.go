package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer feeds one consumer group into a MessageHandler.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger

	// Attempts bounds deliveries of one message before it is logged and skipped.
	Attempts int
	// RetryDelay is multiplied by the attempt number between deliveries.
	RetryDelay time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = NewConfig(groupID)
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: consumer group %s: %w", groupID, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		group:      group,
		handler:    handler,
		logger:     logger.With("group", groupID),
		Attempts:   3,
		RetryDelay: time.Second,
	}, nil
}

// Run consumes topics until ctx ends or the group is closed. Consume returns on every
// rebalance, so it is called in a loop.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for ctx.Err() == nil {
		if err := c.group.Consume(ctx, topics, groupHandler{c}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
	}
	return ctx.Err()
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

// deliver retries msg until the handler accepts it or attempts run out. It returns false
// only when ctx ended first; such a message stays unmarked and is redelivered later.
func (c *Consumer) deliver(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	attempts := max(c.Attempts, 1)
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= attempts {
			c.logger.Error("kafka message skipped", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "attempts", attempt, "err", err)
			return true
		}
		c.logger.Warn("kafka message failed", "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.RetryDelay):
		}
	}
}

type groupHandler struct {
	c *Consumer
}

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.c.deliver(sess.Context(), msg) {
				return nil
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}
