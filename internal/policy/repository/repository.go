// Package repository persists per-property maintenance policies.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/platform/apperr"
)

// Policy is the persisted property policy row.
type Policy struct {
	ID                      uuid.UUID
	PropertyID              uuid.UUID
	PaymentResponsibility   string
	SplitCeilingCents       int64
	ApprovalMode            string
	AutoApprovalLimitCents  int64
	RequirePhotos           bool
	RequireCompletionPhotos bool
	EmergencyAutoApprove    bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// UpsertParams holds the fields for creating or replacing a policy.
type UpsertParams struct {
	PropertyID              uuid.UUID
	PaymentResponsibility   string
	SplitCeilingCents       int64
	ApprovalMode            string
	AutoApprovalLimitCents  int64
	RequirePhotos           bool
	RequireCompletionPhotos bool
	EmergencyAutoApprove    bool
}

// Repository persists property policies.
type Repository interface {
	Upsert(ctx context.Context, p UpsertParams) (Policy, error)
	GetByProperty(ctx context.Context, propertyID uuid.UUID) (Policy, error)
}

const policyColumns = `
	id, property_id, payment_responsibility, split_ceiling_cents,
	approval_mode, auto_approval_limit_cents, require_photos,
	require_completion_photos, emergency_auto_approve, created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new policy repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Upsert creates or replaces the policy for a property. One policy per
// property is enforced by the unique constraint on property_id.
func (r *Repo) Upsert(ctx context.Context, p UpsertParams) (Policy, error) {
	query := `
		INSERT INTO property_policies (
			property_id, payment_responsibility, split_ceiling_cents,
			approval_mode, auto_approval_limit_cents, require_photos,
			require_completion_photos, emergency_auto_approve
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (property_id) DO UPDATE SET
			payment_responsibility = EXCLUDED.payment_responsibility,
			split_ceiling_cents = EXCLUDED.split_ceiling_cents,
			approval_mode = EXCLUDED.approval_mode,
			auto_approval_limit_cents = EXCLUDED.auto_approval_limit_cents,
			require_photos = EXCLUDED.require_photos,
			require_completion_photos = EXCLUDED.require_completion_photos,
			emergency_auto_approve = EXCLUDED.emergency_auto_approve,
			updated_at = now()
		RETURNING ` + policyColumns

	row := r.pool.QueryRow(ctx, query,
		p.PropertyID, p.PaymentResponsibility, p.SplitCeilingCents,
		p.ApprovalMode, p.AutoApprovalLimitCents, p.RequirePhotos,
		p.RequireCompletionPhotos, p.EmergencyAutoApprove,
	)
	policy, err := scanPolicy(row)
	if err != nil {
		return Policy{}, fmt.Errorf("upsert property policy: %w", err)
	}
	return policy, nil
}

// GetByProperty retrieves the policy for a property.
func (r *Repo) GetByProperty(ctx context.Context, propertyID uuid.UUID) (Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM property_policies WHERE property_id = $1`

	policy, err := scanPolicy(r.pool.QueryRow(ctx, query, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Policy{}, apperr.NotFound("property policy not found")
		}
		return Policy{}, fmt.Errorf("get property policy: %w", err)
	}
	return policy, nil
}

func scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	err := row.Scan(
		&p.ID, &p.PropertyID, &p.PaymentResponsibility, &p.SplitCeilingCents,
		&p.ApprovalMode, &p.AutoApprovalLimitCents, &p.RequirePhotos,
		&p.RequireCompletionPhotos, &p.EmergencyAutoApprove,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
