package application

import (
	"context"

	"go.uber.org/zap"

	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

// VehicleStatDTO is the booking count of one vehicle.
type VehicleStatDTO struct {
	VehicleID   string `json:"vehicle_id"`
	VehicleName string `json:"vehicle_name"`
	Count       int64  `json:"count"`
}

// StatsDTO is the response representation of booking statistics.
type StatsDTO struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	VehicleStats []VehicleStatDTO `json:"vehicle_stats"`
	Degraded     bool             `json:"degraded"`
}

// StatsService computes booking statistics from the current store state.
type StatsService struct {
	repo            bookingDomain.BookingRepository
	dir             directory.Directory
	reconciler      *Reconciler
	reconcileOnRead bool
	logger          *zap.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	repo bookingDomain.BookingRepository,
	dir directory.Directory,
	reconciler *Reconciler,
	reconcileOnRead bool,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		repo:            repo,
		dir:             dir,
		reconciler:      reconciler,
		reconcileOnRead: reconcileOnRead,
		logger:          logger,
	}
}

// GetStats counts every booking regardless of status, per status and per vehicle. Store
// failures degrade to zero counts.
func (s *StatsService) GetStats(ctx context.Context) *StatsDTO {
	if s.reconcileOnRead {
		s.reconciler.bestEffort(ctx)
	}

	bookings, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to load bookings for stats, returning degraded result", zap.Error(err))
		return &StatsDTO{
			ByStatus:     map[string]int64{},
			VehicleStats: []VehicleStatDTO{},
			Degraded:     true,
		}
	}

	stats := bookingDomain.Aggregate(bookings)
	names := newNameResolver(s.dir, s.logger)

	result := &StatsDTO{
		Total:        stats.Total,
		ByStatus:     make(map[string]int64, len(stats.ByStatus)),
		VehicleStats: make([]VehicleStatDTO, len(stats.Vehicles)),
	}
	for status, count := range stats.ByStatus {
		result.ByStatus[string(status)] = count
	}
	for i, v := range stats.Vehicles {
		result.VehicleStats[i] = VehicleStatDTO{
			VehicleID:   v.VehicleID,
			VehicleName: names.vehicle(ctx, v.VehicleID),
			Count:       v.Count,
		}
	}
	return result
}
