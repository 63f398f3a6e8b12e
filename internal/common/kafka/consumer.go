package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A returned error triggers a bounded retry.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

const (
	maxHandleAttempts = 3
	retryBackoff      = 500 * time.Millisecond
)

// Consumer reads a single topic as part of a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	logger *zap.Logger
}

// NewConsumer creates a group consumer for topic. Instances sharing groupID split the
// partitions between them and resume from the group's committed offsets.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(brokers, groupID, topic, logger)
}

// NewReplayConsumer creates a consumer under a group id unique to this process, starting
// from the first offset. Every instance reads every partition from the beginning on each
// start, which is what an in-memory read model needs to rebuild itself.
func NewReplayConsumer(brokers []string, groupPrefix, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(brokers, groupPrefix+uuid.NewString(), topic, logger)
}

func newConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			StartOffset:    kafkago.FirstOffset,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		logger: logger.With(zap.String("topic", topic), zap.String("group_id", groupID)),
	}
}

// GroupID returns the consumer group the reader joined.
func (c *Consumer) GroupID() string {
	return c.reader.Config().GroupID
}

// Consume fetches and handles messages until ctx is cancelled. Messages are committed
// after they are handled, or after the last failed attempt so a poison message cannot
// stall the partition.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			continue
		}

		c.handleWithRetry(ctx, handler, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafkago.Message) {
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return
		}
		c.logger.Warn("message handler failed",
			zap.Int("attempt", attempt),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		if attempt == maxHandleAttempts {
			c.logger.Error("dropping message after repeated failures", zap.Int64("offset", msg.Offset))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
