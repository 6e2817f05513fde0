package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propertyops_backend/internal/email"
	"propertyops_backend/internal/escalation"
	"propertyops_backend/internal/events"
	"propertyops_backend/internal/maintenance"
	"propertyops_backend/internal/notification"
	"propertyops_backend/internal/policy"
	"propertyops_backend/internal/providers"
	"propertyops_backend/internal/scheduler"
	"propertyops_backend/platform/config"
	"propertyops_backend/platform/db"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)
	val := validator.New()

	notificationModule := notification.New(pool, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// Worker-side escalation wiring: the sweep can auto-approve and
	// direct-dispatch through the maintenance service, no HTTP handlers
	// required.
	policyModule := policy.NewModule(pool, val, log)
	maintenanceModule := maintenance.NewModule(pool, policyModule.Service(), eventBus, val, log)
	escalationModule := escalation.NewModule(pool, eventBus, val, log)
	providersModule := providers.NewModule(pool, eventBus, val, log)

	maintenanceModule.Service().SetEscalations(escalationModule.Service())
	escalationModule.Service().SetRequestActions(maintenanceModule.Service())

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	escalationSweeper := scheduler.NewEscalationSweeper(escalationModule.Service(), log, cfg.GetEscalationSweepInterval())
	penaltySweeper := scheduler.NewPenaltyExpirySweeper(providersModule.Service(), log, cfg.GetPenaltyExpirySweepInterval())

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { dispatcher.Run(gctx); return nil })
	g.Go(func() error { escalationSweeper.Run(gctx); return nil })
	g.Go(func() error { penaltySweeper.Run(gctx); return nil })
	g.Go(func() error { worker.Run(gctx); return nil })
	_ = g.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
