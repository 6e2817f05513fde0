package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propertyops_backend/internal/bidding"
	"propertyops_backend/internal/disputes"
	"propertyops_backend/internal/email"
	"propertyops_backend/internal/escalation"
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/internal/http/router"
	"propertyops_backend/internal/maintenance"
	"propertyops_backend/internal/notification"
	"propertyops_backend/internal/photos"
	"propertyops_backend/internal/policy"
	"propertyops_backend/internal/providers"
	"propertyops_backend/internal/storage"
	"propertyops_backend/platform/config"
	"propertyops_backend/platform/db"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)
	val := validator.New()

	// Object storage for photo evidence. The photos module degrades to a
	// configuration error on upload when MinIO is not configured.
	var storageSvc storage.Service
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure request-photos bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketRequestPhotos())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketRequestPhotos())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized", "requestPhotosBucket", cfg.GetMinioBucketRequestPhotos())
	} else {
		log.Warn("MinIO not configured; photo uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(pool, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	policyModule := policy.NewModule(pool, val, log)
	maintenanceModule := maintenance.NewModule(pool, policyModule.Service(), eventBus, val, log)
	biddingModule := bidding.NewModule(pool, maintenanceModule.Service(), eventBus, val, log)
	escalationModule := escalation.NewModule(pool, eventBus, val, log)
	providersModule := providers.NewModule(pool, eventBus, val, log)
	disputesModule := disputes.NewModule(pool, maintenanceModule.Service(), eventBus, val, log)
	photosModule := photos.NewModule(pool, storageSvc, cfg, eventBus, val, log)

	// Cross-module wiring through narrow interfaces (breaks import cycles)
	maintenanceModule.Service().SetEscalations(escalationModule.Service())
	maintenanceModule.Service().SetPhotoEvidenceReader(photosModule.Service())
	escalationModule.Service().SetRequestActions(maintenanceModule.Service())
	biddingModule.Service().SetAssignmentRecorder(maintenanceModule.Service())
	biddingModule.Service().SetProviderGate(providersModule.Service())
	disputesModule.Service().SetPenaltyIssuer(providersModule.Service())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			policyModule,
			maintenanceModule,
			biddingModule,
			escalationModule,
			providersModule,
			disputesModule,
			photosModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
