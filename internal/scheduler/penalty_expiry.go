package scheduler

import (
	"context"
	"time"

	"propertyops_backend/platform/logger"
)

const defaultPenaltyExpiryInterval = 10 * time.Minute

// PenaltyExpirer marks penalties past their expiry as expired.
type PenaltyExpirer interface {
	ExpireDuePenalties(ctx context.Context) (int, error)
}

// PenaltyExpirySweeper periodically expires penalties so provider scores
// recover without any per-penalty timer.
type PenaltyExpirySweeper struct {
	expirer  PenaltyExpirer
	log      *logger.Logger
	interval time.Duration
}

func NewPenaltyExpirySweeper(expirer PenaltyExpirer, log *logger.Logger, interval time.Duration) *PenaltyExpirySweeper {
	if interval <= 0 {
		interval = defaultPenaltyExpiryInterval
	}
	return &PenaltyExpirySweeper{
		expirer:  expirer,
		log:      log,
		interval: interval,
	}
}

func (s *PenaltyExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.expirer == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *PenaltyExpirySweeper) sweep(ctx context.Context) {
	expired, err := s.expirer.ExpireDuePenalties(ctx)
	if err != nil {
		s.log.Warn("penalty expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.log.Info("penalty expiry sweep expired penalties", "expired", expired)
	}
}
