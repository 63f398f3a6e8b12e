package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
)

// MissingFieldsMessage is the page-level message returned when a create request omits
// any of its required fields.
const MissingFieldsMessage = "missing fields: please fill in all fields before submitting"

// Booking is the aggregate root for a vehicle rental reservation.
type Booking struct {
	id         uuid.UUID
	name       string
	customerID string
	vehicleID  string
	startDate  Date
	endDate    Date
	status     BookingStatus

	cancelledAt *time.Time
	expiredAt   *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking validates the raw create fields and returns an Active booking.
//
// All five fields are checked for presence first and reported together as a single
// page-level error. Date parsing and ordering are then reported per field.
func NewBooking(name, customerID, vehicleID, startDate, endDate string, now time.Time) (*Booking, error) {
	name = strings.TrimSpace(name)
	customerID = strings.TrimSpace(customerID)
	vehicleID = strings.TrimSpace(vehicleID)
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	if name == "" || customerID == "" || vehicleID == "" || startDate == "" || endDate == "" {
		return nil, domain.NewValidationError(MissingFieldsMessage)
	}

	verr := domain.NewFieldValidationError("invalid booking")
	start, err := ParseDate(startDate)
	if err != nil {
		verr.AddFieldError("start_date", "start date must be a valid date (YYYY-MM-DD)")
	}
	end, err := ParseDate(endDate)
	if err != nil {
		verr.AddFieldError("end_date", "end date must be a valid date (YYYY-MM-DD)")
	}
	if verr.HasErrors() {
		return nil, verr
	}
	if end.Before(start) {
		verr.AddFieldError("end_date", "end date must be on or after start date")
		return nil, verr
	}

	now = now.UTC()
	return &Booking{
		id:         uuid.New(),
		name:       name,
		customerID: customerID,
		vehicleID:  vehicleID,
		startDate:  start,
		endDate:    end,
		status:     StatusActive,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	name string,
	customerID string,
	vehicleID string,
	startDate Date,
	endDate Date,
	status BookingStatus,
	cancelledAt *time.Time,
	expiredAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:          id,
		name:        name,
		customerID:  customerID,
		vehicleID:   vehicleID,
		startDate:   startDate,
		endDate:     endDate,
		status:      status,
		cancelledAt: cancelledAt,
		expiredAt:   expiredAt,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// Name returns the human-readable booking label.
func (b *Booking) Name() string { return b.name }

// CustomerID returns the referenced customer identifier.
func (b *Booking) CustomerID() string { return b.customerID }

// VehicleID returns the referenced vehicle identifier.
func (b *Booking) VehicleID() string { return b.vehicleID }

// StartDate returns the first day of the rental.
func (b *Booking) StartDate() Date { return b.startDate }

// EndDate returns the last day of the rental.
func (b *Booking) EndDate() Date { return b.endDate }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// CancelledAt returns the time the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// ExpiredAt returns the time the booking was expired, or nil.
func (b *Booking) ExpiredAt() *time.Time { return b.expiredAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// IsOverdue reports whether the booking is still active although its end date lies
// strictly before asOf.
func (b *Booking) IsOverdue(asOf Date) bool {
	return b.status == StatusActive && b.endDate.Before(asOf)
}

// MatchesName reports whether term is a case-insensitive substring of the booking name.
// An empty term matches every booking.
func (b *Booking) MatchesName(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.name), strings.ToLower(term))
}

// TransitionTo moves the booking to target, stamping the matching timestamp.
func (b *Booking) TransitionTo(target BookingStatus, at time.Time) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	at = at.UTC()
	switch target {
	case StatusCancelled:
		b.cancelledAt = &at
	case StatusExpired:
		b.expiredAt = &at
	}
	b.status = target
	b.version++
	b.updatedAt = at
	return nil
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.cancelledAt != nil {
		t := *b.cancelledAt
		c.cancelledAt = &t
	}
	if b.expiredAt != nil {
		t := *b.expiredAt
		c.expiredAt = &t
	}
	return &c
}
