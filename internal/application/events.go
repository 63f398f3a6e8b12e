package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/kafka"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// EventSource is the CloudEvents source of every event this service emits.
const EventSource = "service-rental-booking"

// Booking lifecycle event types.
const (
	EventBookingCreated   = "rental.booking.created"
	EventBookingCancelled = "rental.booking.cancelled"
	EventBookingExpired   = "rental.booking.expired"
)

// EventPublisher publishes CloudEvents. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// BookingEvent is the payload of every booking lifecycle event.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	Name       string    `json:"name"`
	CustomerID string    `json:"customer_id"`
	VehicleID  string    `json:"vehicle_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Status     string    `json:"status"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// eventEmitter publishes booking events. A nil publisher disables publishing.
type eventEmitter struct {
	publisher EventPublisher
	topic     string
	logger    *zap.Logger
}

func (e *eventEmitter) emit(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	if e == nil || e.publisher == nil {
		return
	}

	evt := BookingEvent{
		BookingID:  bk.ID().String(),
		Name:       bk.Name(),
		CustomerID: bk.CustomerID(),
		VehicleID:  bk.VehicleID(),
		StartDate:  bk.StartDate().String(),
		EndDate:    bk.EndDate().String(),
		Status:     string(bk.Status()),
		Version:    bk.Version(),
		OccurredAt: bk.UpdatedAt(),
	}
	cloudEvent, err := kafka.NewCloudEvent(EventSource, eventType, evt.BookingID, evt)
	if err != nil {
		e.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := e.publisher.PublishEvent(ctx, e.topic, cloudEvent); err != nil {
		e.logger.Error("failed to publish event",
			zap.String("topic", e.topic),
			zap.String("event_type", eventType),
			zap.String("booking_id", evt.BookingID),
			zap.Error(err),
		)
	}
}
