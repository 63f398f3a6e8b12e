package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// Reconciler transitions Active bookings whose end date has passed to Expired.
type Reconciler struct {
	repo     bookingDomain.BookingRepository
	events   *eventEmitter
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewReconciler creates a Reconciler. "Today" is evaluated in location.
func NewReconciler(
	repo bookingDomain.BookingRepository,
	publisher EventPublisher,
	topic string,
	location *time.Location,
	logger *zap.Logger,
) *Reconciler {
	if location == nil {
		location = time.UTC
	}
	return &Reconciler{
		repo:     repo,
		events:   &eventEmitter{publisher: publisher, topic: topic, logger: logger},
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Today returns the current calendar date in the reconciler's location.
func (r *Reconciler) Today() bookingDomain.Date {
	return bookingDomain.DateOf(r.now().In(r.location))
}

// ReconcileExpired expires every Active booking with an end date strictly before asOf and
// returns how many it transitioned. Bookings that another caller moved to a terminal
// status in the meantime are skipped. Per-booking failures do not stop the scan; they are
// returned joined after it completes.
func (r *Reconciler) ReconcileExpired(ctx context.Context, asOf bookingDomain.Date) (int, error) {
	overdue, err := r.repo.FindOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue bookings: %w", err)
	}

	var (
		transitioned int
		errs         []error
	)
	for _, bk := range overdue {
		expired, err := r.repo.TransitionStatus(ctx, bk.ID(), bookingDomain.StatusActive, bookingDomain.StatusExpired)
		if err != nil {
			if domain.IsPreconditionFailed(err) || domain.IsNotFound(err) {
				r.logger.Debug("booking already left active status",
					zap.String("booking_id", bk.ID().String()),
					zap.Error(err),
				)
				continue
			}
			errs = append(errs, err)
			continue
		}
		transitioned++
		r.events.emit(ctx, EventBookingExpired, expired)
	}

	if transitioned > 0 {
		r.logger.Info("expired overdue bookings",
			zap.String("as_of", asOf.String()),
			zap.Int("transitioned", transitioned),
		)
	}
	return transitioned, errors.Join(errs...)
}

// ReconcileToday runs ReconcileExpired as of today.
func (r *Reconciler) ReconcileToday(ctx context.Context) (int, error) {
	return r.ReconcileExpired(ctx, r.Today())
}

// bestEffort reconciles as of today and only logs failures, so read paths are never blocked.
func (r *Reconciler) bestEffort(ctx context.Context) {
	if r == nil {
		return
	}
	if _, err := r.ReconcileToday(ctx); err != nil {
		r.logger.Warn("reconciliation before read failed", zap.Error(err))
	}
}
