package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"not null;size:255"`
	CustomerID  string     `gorm:"not null;size:64"`
	VehicleID   string     `gorm:"not null;size:64;index"`
	StartDate   time.Time  `gorm:"type:date;not null"`
	EndDate     time.Time  `gorm:"type:date;not null"`
	Status      string     `gorm:"not null;size:20;index"`
	CancelledAt *time.Time `gorm:""`
	ExpiredAt   *time.Time `gorm:""`
	Version     int64      `gorm:"not null;default:1"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db, now: time.Now}
}

// Insert persists a new booking.
func (r *GormBookingRepository) Insert(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return domain.NewUnavailableError("insert booking", err)
	}
	return nil
}

// Get retrieves a booking by its unique identifier.
func (r *GormBookingRepository) Get(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, domain.NewUnavailableError("get booking", err)
	}
	return toDomainBooking(&model)
}

// ListAll retrieves every booking, oldest first.
func (r *GormBookingRepository) ListAll(ctx context.Context) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewUnavailableError("list bookings", err)
	}
	return toDomainBookings(models)
}

// FindByNameContains retrieves bookings whose name contains term, ignoring case.
func (r *GormBookingRepository) FindByNameContains(ctx context.Context, term string) ([]*bookingDomain.Booking, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.ListAll(ctx)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where(`name ILIKE ? ESCAPE '\'`, "%"+escapeLike(term)+"%").
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewUnavailableError("search bookings", err)
	}
	return toDomainBookings(models)
}

// FindOverdue retrieves active bookings whose end date is strictly before asOf.
func (r *GormBookingRepository) FindOverdue(ctx context.Context, asOf bookingDomain.Date) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", string(bookingDomain.StatusActive), asOf.String()).
		Order("end_date ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewUnavailableError("find overdue bookings", err)
	}
	return toDomainBookings(models)
}

// TransitionStatus moves a booking from expected to next in a single conditional UPDATE
// that returns the updated row. The row is only re-read when no row matched.
func (r *GormBookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next bookingDomain.BookingStatus) (*bookingDomain.Booking, error) {
	if !expected.CanTransitionTo(next) {
		return nil, domain.NewInvalidStateError(string(expected), string(next))
	}

	at := r.now().UTC()
	updates := map[string]interface{}{
		"status":     string(next),
		"version":    gorm.Expr("version + 1"),
		"updated_at": at,
	}
	switch next {
	case bookingDomain.StatusCancelled:
		updates["cancelled_at"] = at
	case bookingDomain.StatusExpired:
		updates["expired_at"] = at
	}

	var updated BookingModel
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if result.Error != nil {
		return nil, domain.NewUnavailableError("transition booking", result.Error)
	}

	if result.RowsAffected == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, domain.NewPreconditionFailedError(id.String(), string(expected), string(current.Status()))
	}
	return toDomainBooking(&updated)
}

// escapeLike escapes LIKE wildcards so term is matched literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:          bk.ID(),
		Name:        bk.Name(),
		CustomerID:  bk.CustomerID(),
		VehicleID:   bk.VehicleID(),
		StartDate:   bk.StartDate().Time(),
		EndDate:     bk.EndDate().Time(),
		Status:      string(bk.Status()),
		CancelledAt: bk.CancelledAt(),
		ExpiredAt:   bk.ExpiredAt(),
		Version:     bk.Version(),
		CreatedAt:   bk.CreatedAt(),
		UpdatedAt:   bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.Name,
		m.CustomerID,
		m.VehicleID,
		bookingDomain.DateOf(m.StartDate),
		bookingDomain.DateOf(m.EndDate),
		status,
		m.CancelledAt,
		m.ExpiredAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
