// Package repository persists the provider reliability counters and penalties.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/internal/providers/domain"
)

// ReliabilityRow is the stored counter row for one provider.
type ReliabilityRow struct {
	ProviderID uuid.UUID
	Counters   domain.Counters
	UpdatedAt  time.Time
}

// ReliabilityRepository persists the per-provider job counters.
type ReliabilityRepository interface {
	Get(ctx context.Context, providerID uuid.UUID) (ReliabilityRow, error)
	IncrementAssigned(ctx context.Context, providerID uuid.UUID) error
	IncrementCompleted(ctx context.Context, providerID uuid.UUID, rating *int) error
	IncrementCancelled(ctx context.Context, providerID uuid.UUID) error
	IncrementNoShow(ctx context.Context, providerID uuid.UUID) error
}

// ReliabilityRepo implements ReliabilityRepository with PostgreSQL.
type ReliabilityRepo struct {
	pool *pgxpool.Pool
}

// NewReliabilityRepo creates a new reliability counter repository.
func NewReliabilityRepo(pool *pgxpool.Pool) *ReliabilityRepo {
	return &ReliabilityRepo{pool: pool}
}

var _ ReliabilityRepository = (*ReliabilityRepo)(nil)

// Get retrieves the counters for a provider. A provider with no history gets
// a zero row, not an error.
func (r *ReliabilityRepo) Get(ctx context.Context, providerID uuid.UUID) (ReliabilityRow, error) {
	query := `
		SELECT provider_id, total_jobs, completed_jobs, cancelled_jobs,
		       no_show_jobs, rating_sum, rating_count, updated_at
		FROM provider_reliability WHERE provider_id = $1`

	var row ReliabilityRow
	err := r.pool.QueryRow(ctx, query, providerID).Scan(
		&row.ProviderID, &row.Counters.TotalJobs, &row.Counters.CompletedJobs,
		&row.Counters.CancelledJobs, &row.Counters.NoShowJobs,
		&row.Counters.RatingSum, &row.Counters.RatingCount, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReliabilityRow{ProviderID: providerID}, nil
		}
		return ReliabilityRow{}, fmt.Errorf("get provider reliability: %w", err)
	}
	return row, nil
}

// IncrementAssigned counts a new assignment toward the provider's total.
func (r *ReliabilityRepo) IncrementAssigned(ctx context.Context, providerID uuid.UUID) error {
	return r.upsert(ctx, providerID, `total_jobs = provider_reliability.total_jobs + 1`, `1, 0, 0, 0, 0, 0`)
}

// IncrementCompleted counts a completion and folds in the tenant rating.
func (r *ReliabilityRepo) IncrementCompleted(ctx context.Context, providerID uuid.UUID, rating *int) error {
	ratingValue := 0
	ratingCount := 0
	if rating != nil {
		ratingValue = *rating
		ratingCount = 1
	}

	query := `
		INSERT INTO provider_reliability (
			provider_id, total_jobs, completed_jobs, cancelled_jobs,
			no_show_jobs, rating_sum, rating_count
		) VALUES ($1, 0, 1, 0, 0, $2, $3)
		ON CONFLICT (provider_id) DO UPDATE SET
			completed_jobs = provider_reliability.completed_jobs + 1,
			rating_sum = provider_reliability.rating_sum + $2,
			rating_count = provider_reliability.rating_count + $3,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, providerID, ratingValue, ratingCount); err != nil {
		return fmt.Errorf("increment completed jobs: %w", err)
	}
	return nil
}

// IncrementCancelled counts a provider-fault cancellation.
func (r *ReliabilityRepo) IncrementCancelled(ctx context.Context, providerID uuid.UUID) error {
	return r.upsert(ctx, providerID, `cancelled_jobs = provider_reliability.cancelled_jobs + 1`, `0, 0, 1, 0, 0, 0`)
}

// IncrementNoShow counts a reported no-show.
func (r *ReliabilityRepo) IncrementNoShow(ctx context.Context, providerID uuid.UUID) error {
	return r.upsert(ctx, providerID, `no_show_jobs = provider_reliability.no_show_jobs + 1`, `0, 0, 0, 1, 0, 0`)
}

func (r *ReliabilityRepo) upsert(ctx context.Context, providerID uuid.UUID, update, insert string) error {
	query := fmt.Sprintf(`
		INSERT INTO provider_reliability (
			provider_id, total_jobs, completed_jobs, cancelled_jobs,
			no_show_jobs, rating_sum, rating_count
		) VALUES ($1, %s)
		ON CONFLICT (provider_id) DO UPDATE SET %s, updated_at = now()`, insert, update)

	if _, err := r.pool.Exec(ctx, query, providerID); err != nil {
		return fmt.Errorf("update provider reliability: %w", err)
	}
	return nil
}
