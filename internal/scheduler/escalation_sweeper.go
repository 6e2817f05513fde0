package scheduler

import (
	"context"
	"time"

	"propertyops_backend/platform/logger"
)

const defaultEscalationSweepInterval = 30 * time.Second

// DueEscalator advances emergency trackings whose response deadline passed.
type DueEscalator interface {
	EscalateDue(ctx context.Context) (int, error)
}

// EscalationSweeper periodically advances overdue emergency escalations.
// A sweep instead of per-record timers keeps deadline handling restart-safe.
type EscalationSweeper struct {
	escalator DueEscalator
	log       *logger.Logger
	interval  time.Duration
}

func NewEscalationSweeper(escalator DueEscalator, log *logger.Logger, interval time.Duration) *EscalationSweeper {
	if interval <= 0 {
		interval = defaultEscalationSweepInterval
	}
	return &EscalationSweeper{
		escalator: escalator,
		log:       log,
		interval:  interval,
	}
}

func (s *EscalationSweeper) Run(ctx context.Context) {
	if s == nil || s.escalator == nil {
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

func (s *EscalationSweeper) sweep(ctx context.Context) {
	raised, err := s.escalator.EscalateDue(ctx)
	if err != nil {
		s.log.Warn("escalation sweep failed", "error", err)
		return
	}
	if raised > 0 {
		s.log.Info("escalation sweep raised levels", "raised", raised)
	}
}
