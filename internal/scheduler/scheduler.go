package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiryReconciler interface {
	ReconcileToday(ctx context.Context) (int, error)
}

// Scheduler periodically expires overdue bookings. It complements, and does not replace,
// reconciliation on read.
type Scheduler struct {
	reconciler expiryReconciler
	interval   time.Duration
	logger     *zap.Logger
}

// New creates a Scheduler that reconciles every interval.
func New(
	reconciler expiryReconciler,
	interval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reconcile scheduler started",
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconcile scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.reconciler.ReconcileToday(ctx)
	if err != nil {
		s.logger.Error("scheduled reconciliation failed",
			zap.Int("transitioned", n),
			zap.Error(err),
		)
		return
	}
	if n > 0 {
		s.logger.Debug("scheduled reconciliation finished", zap.Int("transitioned", n))
	}
}
