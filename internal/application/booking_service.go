package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

// CreateBookingRequest holds the data needed to create a new booking. Presence is checked
// by the domain so that missing fields are reported as a single page-level error.
type CreateBookingRequest struct {
	Name       string `json:"name"`
	CustomerID string `json:"customer_id"`
	VehicleID  string `json:"vehicle_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// BookingDTO is the response representation of a booking, enriched with display names.
type BookingDTO struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	CustomerID   string             `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	VehicleID    string             `json:"vehicle_id"`
	VehicleName  string             `json:"vehicle_name"`
	StartDate    bookingDomain.Date `json:"start_date"`
	EndDate      bookingDomain.Date `json:"end_date"`
	Status       string             `json:"status"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	ExpiredAt    *time.Time         `json:"expired_at,omitempty"`
	Version      int64              `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// BookingListDTO is the result of a list or search. Degraded is set when the store could
// not be read and the empty result is a fallback.
type BookingListDTO struct {
	Bookings []BookingDTO `json:"bookings"`
	Total    int          `json:"total"`
	Degraded bool         `json:"degraded"`
}

// BookingServiceOptions tunes BookingService behavior.
type BookingServiceOptions struct {
	// RequireKnownReferences rejects creates whose customer or vehicle is not in the directory.
	RequireKnownReferences bool
	// ReconcileOnRead expires overdue bookings before list and search.
	ReconcileOnRead bool
	// EventTopic is the topic lifecycle events are published to.
	EventTopic string
}

// BookingService is the application service orchestrating booking use cases. It is the
// only writer of booking status apart from the Reconciler.
type BookingService struct {
	repo       bookingDomain.BookingRepository
	dir        directory.Directory
	reconciler *Reconciler
	events     *eventEmitter
	opts       BookingServiceOptions
	now        func() time.Time
	logger     *zap.Logger
}

// NewBookingService creates a new BookingService. publisher may be nil.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	dir directory.Directory,
	reconciler *Reconciler,
	publisher EventPublisher,
	opts BookingServiceOptions,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:       repo,
		dir:        dir,
		reconciler: reconciler,
		events:     &eventEmitter{publisher: publisher, topic: opts.EventTopic, logger: logger},
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// CreateBooking validates and persists a new Active booking.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	bk, err := bookingDomain.NewBooking(req.Name, req.CustomerID, req.VehicleID, req.StartDate, req.EndDate, s.now())
	if err != nil {
		return nil, err
	}

	if s.opts.RequireKnownReferences {
		if _, err := s.dir.ResolveCustomerName(ctx, bk.CustomerID()); err != nil {
			return nil, err
		}
		if _, err := s.dir.ResolveVehicleName(ctx, bk.VehicleID()); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Insert(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("vehicle_id", bk.VehicleID()),
	)
	s.events.emit(ctx, EventBookingCreated, bk)

	result := s.toBookingDTO(ctx, newNameResolver(s.dir, s.logger), bk)
	return &result, nil
}

// CancelBooking moves an Active booking to Cancelled. A booking that is already Cancelled
// or Expired, including one that lost a race with the Reconciler, yields
// AlreadyTerminalError.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status().IsTerminal() {
		return nil, domain.NewAlreadyTerminalError(bookingID.String(), string(bk.Status()))
	}

	cancelled, err := s.repo.TransitionStatus(ctx, bookingID, bookingDomain.StatusActive, bookingDomain.StatusCancelled)
	if err != nil {
		var pf *domain.PreconditionFailedError
		if errors.As(err, &pf) {
			return nil, domain.NewAlreadyTerminalError(bookingID.String(), pf.Actual)
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.logger.Info("booking cancelled", zap.String("booking_id", bookingID.String()))
	s.events.emit(ctx, EventBookingCancelled, cancelled)

	result := s.toBookingDTO(ctx, newNameResolver(s.dir, s.logger), cancelled)
	return &result, nil
}

// GetBooking retrieves a single enriched booking.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := s.toBookingDTO(ctx, newNameResolver(s.dir, s.logger), bk)
	return &result, nil
}

// ListBookings returns every booking, enriched. Store failures degrade to an empty list.
func (s *BookingService) ListBookings(ctx context.Context) *BookingListDTO {
	s.reconcileBeforeRead(ctx)

	bookings, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list bookings, returning degraded result", zap.Error(err))
		return degradedList()
	}
	return s.toBookingList(ctx, bookings)
}

// SearchBookings returns bookings whose name contains term, ignoring case. An empty term
// matches every booking. Store failures degrade to an empty list.
func (s *BookingService) SearchBookings(ctx context.Context, term string) *BookingListDTO {
	s.reconcileBeforeRead(ctx)

	bookings, err := s.repo.FindByNameContains(ctx, term)
	if err != nil {
		s.logger.Error("failed to search bookings, returning degraded result",
			zap.String("term", term),
			zap.Error(err),
		)
		return degradedList()
	}
	return s.toBookingList(ctx, bookings)
}

func (s *BookingService) reconcileBeforeRead(ctx context.Context) {
	if s.opts.ReconcileOnRead {
		s.reconciler.bestEffort(ctx)
	}
}

// --- Helpers ---

func degradedList() *BookingListDTO {
	return &BookingListDTO{Bookings: []BookingDTO{}, Degraded: true}
}

func (s *BookingService) toBookingList(ctx context.Context, bookings []*bookingDomain.Booking) *BookingListDTO {
	names := newNameResolver(s.dir, s.logger)
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = s.toBookingDTO(ctx, names, bk)
	}
	return &BookingListDTO{Bookings: dtos, Total: len(dtos)}
}

func (s *BookingService) toBookingDTO(ctx context.Context, names *nameResolver, bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:           bk.ID(),
		Name:         bk.Name(),
		CustomerID:   bk.CustomerID(),
		CustomerName: names.customer(ctx, bk.CustomerID()),
		VehicleID:    bk.VehicleID(),
		VehicleName:  names.vehicle(ctx, bk.VehicleID()),
		StartDate:    bk.StartDate(),
		EndDate:      bk.EndDate(),
		Status:       string(bk.Status()),
		CancelledAt:  bk.CancelledAt(),
		ExpiredAt:    bk.ExpiredAt(),
		Version:      bk.Version(),
		CreatedAt:    bk.CreatedAt(),
		UpdatedAt:    bk.UpdatedAt(),
	}
}
