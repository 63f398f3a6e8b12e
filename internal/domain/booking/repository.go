package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
//
// Implementations wrap infrastructure failures in domain.UnavailableError and report
// unknown ids with domain.NotFoundError.
type BookingRepository interface {
	// Insert persists a new booking.
	Insert(ctx context.Context, booking *Booking) error

	// Get retrieves a booking by its unique identifier.
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListAll retrieves every booking, oldest first.
	ListAll(ctx context.Context) ([]*Booking, error)

	// FindByNameContains retrieves bookings whose name contains term, ignoring case.
	FindByNameContains(ctx context.Context, term string) ([]*Booking, error)

	// FindOverdue retrieves active bookings whose end date is strictly before asOf.
	FindOverdue(ctx context.Context, asOf Date) ([]*Booking, error)

	// TransitionStatus atomically moves a booking from expected to next and returns the
	// updated booking. It fails with domain.PreconditionFailedError when the stored
	// status is not expected.
	TransitionStatus(ctx context.Context, id uuid.UUID, expected, next BookingStatus) (*Booking, error)
}
