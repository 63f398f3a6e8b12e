package events

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	"github.com/rentfleet/service-rental-booking/internal/common/kafka"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

// Directory event types published by the customer and vehicle master-data services.
const (
	CustomerUpserted = "rental.directory.customer.upserted"
	CustomerArchived = "rental.directory.customer.archived"
	VehicleUpserted  = "rental.directory.vehicle.upserted"
	VehicleArchived  = "rental.directory.vehicle.archived"
)

// DirectoryRecordEvent is the payload of every directory event. Name is empty for
// archive events.
type DirectoryRecordEvent struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DirectoryWriter applies directory changes. *application.DirectoryService satisfies it.
type DirectoryWriter interface {
	Upsert(ctx context.Context, kind directory.Kind, id, name string) error
	Archive(ctx context.Context, kind directory.Kind, id string) error
}

// DirectoryEventConsumer keeps the local Reference Directory in sync with customer and
// vehicle master-record events.
type DirectoryEventConsumer struct {
	consumer *kafka.Consumer
	writer   DirectoryWriter
	logger   *zap.Logger
}

// NewDirectoryEventConsumer creates a DirectoryEventConsumer in a shared consumer group.
// Use it when the directory is persisted, so committed offsets match stored records.
func NewDirectoryEventConsumer(
	brokers []string,
	groupID string,
	topic string,
	writer DirectoryWriter,
	logger *zap.Logger,
) *DirectoryEventConsumer {
	return &DirectoryEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		writer:   writer,
		logger:   logger,
	}
}

// NewReplayingDirectoryEventConsumer creates a DirectoryEventConsumer that replays the
// whole topic on every start. Use it when the directory lives in process memory.
func NewReplayingDirectoryEventConsumer(
	brokers []string,
	groupPrefix string,
	topic string,
	writer DirectoryWriter,
	logger *zap.Logger,
) *DirectoryEventConsumer {
	return &DirectoryEventConsumer{
		consumer: kafka.NewReplayConsumer(brokers, groupPrefix, topic, logger),
		writer:   writer,
		logger:   logger,
	}
}

// Start begins consuming directory events. This blocks until the context is cancelled.
func (c *DirectoryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// GroupID returns the consumer group the consumer joined.
func (c *DirectoryEventConsumer) GroupID() string {
	return c.consumer.GroupID()
}

// Close closes the underlying Kafka consumer.
func (c *DirectoryEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DirectoryEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from directory topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	var (
		kind    directory.Kind
		archive bool
	)
	switch cloudEvent.Type {
	case CustomerUpserted:
		kind = directory.KindCustomer
	case VehicleUpserted:
		kind = directory.KindVehicle
	case CustomerArchived:
		kind, archive = directory.KindCustomer, true
	case VehicleArchived:
		kind, archive = directory.KindVehicle, true
	default:
		c.logger.Debug("ignoring unhandled directory event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var evt DirectoryRecordEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse directory event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	if archive {
		err = c.writer.Archive(ctx, kind, evt.ID)
	} else {
		err = c.writer.Upsert(ctx, kind, evt.ID, evt.Name)
	}
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.logger.Warn("dropping invalid directory event",
				zap.String("type", cloudEvent.Type),
				zap.String("id", evt.ID),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to apply directory event",
			zap.String("type", cloudEvent.Type),
			zap.String("id", evt.ID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("directory record synced",
		zap.String("type", cloudEvent.Type),
		zap.String("id", evt.ID),
	)
	return nil
}
