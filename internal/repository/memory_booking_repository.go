package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// MemoryBookingRepository keeps bookings in process memory. It is used by the memory
// store backend and by tests.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	now      func() time.Time
}

// NewMemoryBookingRepository creates an empty MemoryBookingRepository.
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[uuid.UUID]*bookingDomain.Booking),
		now:      time.Now,
	}
}

// Insert persists a new booking.
func (r *MemoryBookingRepository) Insert(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[bk.ID()]; exists {
		return domain.NewConflictError("booking " + bk.ID().String() + " already exists")
	}
	r.bookings[bk.ID()] = bk.Clone()
	return nil
}

// Get retrieves a booking by its unique identifier.
func (r *MemoryBookingRepository) Get(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk.Clone(), nil
}

// ListAll retrieves every booking, oldest first.
func (r *MemoryBookingRepository) ListAll(_ context.Context) ([]*bookingDomain.Booking, error) {
	return r.filter(func(*bookingDomain.Booking) bool { return true }), nil
}

// FindByNameContains retrieves bookings whose name contains term, ignoring case.
func (r *MemoryBookingRepository) FindByNameContains(_ context.Context, term string) ([]*bookingDomain.Booking, error) {
	term = strings.TrimSpace(term)
	return r.filter(func(bk *bookingDomain.Booking) bool { return bk.MatchesName(term) }), nil
}

// FindOverdue retrieves active bookings whose end date is strictly before asOf.
func (r *MemoryBookingRepository) FindOverdue(_ context.Context, asOf bookingDomain.Date) ([]*bookingDomain.Booking, error) {
	return r.filter(func(bk *bookingDomain.Booking) bool { return bk.IsOverdue(asOf) }), nil
}

// TransitionStatus atomically moves a booking from expected to next.
func (r *MemoryBookingRepository) TransitionStatus(_ context.Context, id uuid.UUID, expected, next bookingDomain.BookingStatus) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	if stored.Status() != expected {
		return nil, domain.NewPreconditionFailedError(id.String(), string(expected), string(stored.Status()))
	}

	updated := stored.Clone()
	if err := updated.TransitionTo(next, r.now()); err != nil {
		return nil, err
	}
	r.bookings[id] = updated
	return updated.Clone(), nil
}

func (r *MemoryBookingRepository) filter(keep func(*bookingDomain.Booking) bool) []*bookingDomain.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*bookingDomain.Booking, 0, len(r.bookings))
	for _, bk := range r.bookings {
		if keep(bk) {
			out = append(out, bk.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}
