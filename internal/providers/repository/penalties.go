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

// PenaltyStatus is the lifecycle state of a penalty.
type PenaltyStatus string

const (
	PenaltyActive     PenaltyStatus = "active"
	PenaltyAppealed   PenaltyStatus = "appealed"
	PenaltyOverturned PenaltyStatus = "overturned"
	PenaltyExpired    PenaltyStatus = "expired"
)

// Penalty is a recorded infraction counting against a provider's score while
// active and unexpired.
type Penalty struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	RequestID  *uuid.UUID
	Type       string
	Severity   string
	Points     int
	Status     PenaltyStatus
	Reason     string
	IssuedBy   *uuid.UUID
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreatePenaltyParams holds the fields for issuing a penalty.
type CreatePenaltyParams struct {
	ProviderID uuid.UUID
	RequestID  *uuid.UUID
	Type       string
	Severity   string
	Points     int
	Reason     string
	IssuedBy   *uuid.UUID
	ExpiresAt  *time.Time
}

// PenaltyRepository persists provider penalties.
type PenaltyRepository interface {
	Create(ctx context.Context, p CreatePenaltyParams) (Penalty, error)
	GetByID(ctx context.Context, id uuid.UUID) (Penalty, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Penalty, error)

	// ActivePoints sums the points of active, unexpired penalties. Appealed
	// penalties stop counting while the appeal is pending.
	ActivePoints(ctx context.Context, providerID uuid.UUID) (int, error)

	// SetStatus transitions a penalty between lifecycle states, guarded on
	// the expected current state.
	SetStatus(ctx context.Context, id uuid.UUID, from, to PenaltyStatus) (Penalty, error)

	// ExpireDue flips active penalties past their expiry to expired,
	// returning how many changed.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

const penaltyColumns = `
	id, provider_id, request_id, type, severity, points, status, reason,
	issued_by, expires_at, created_at, updated_at`

// PenaltyRepo implements PenaltyRepository with PostgreSQL.
type PenaltyRepo struct {
	pool *pgxpool.Pool
}

// NewPenaltyRepo creates a new penalty repository.
func NewPenaltyRepo(pool *pgxpool.Pool) *PenaltyRepo {
	return &PenaltyRepo{pool: pool}
}

var _ PenaltyRepository = (*PenaltyRepo)(nil)

// Create issues a new active penalty.
func (r *PenaltyRepo) Create(ctx context.Context, p CreatePenaltyParams) (Penalty, error) {
	query := `
		INSERT INTO provider_penalties (
			provider_id, request_id, type, severity, points, status, reason,
			issued_by, expires_at
		) VALUES ($1, $2, $3, $4, $5, 'active', $6, $7, $8)
		RETURNING ` + penaltyColumns

	penalty, err := scanPenalty(r.pool.QueryRow(ctx, query,
		p.ProviderID, p.RequestID, p.Type, p.Severity, p.Points, p.Reason,
		p.IssuedBy, p.ExpiresAt,
	))
	if err != nil {
		return Penalty{}, fmt.Errorf("create penalty: %w", err)
	}
	return penalty, nil
}

// GetByID retrieves a penalty.
func (r *PenaltyRepo) GetByID(ctx context.Context, id uuid.UUID) (Penalty, error) {
	query := `SELECT ` + penaltyColumns + ` FROM provider_penalties WHERE id = $1`

	penalty, err := scanPenalty(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Penalty{}, apperr.NotFound("penalty not found")
		}
		return Penalty{}, fmt.Errorf("get penalty: %w", err)
	}
	return penalty, nil
}

// ListByProvider retrieves all penalties against a provider, newest first.
func (r *PenaltyRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Penalty, error) {
	query := `SELECT ` + penaltyColumns + `
		FROM provider_penalties WHERE provider_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	defer rows.Close()

	var out []Penalty
	for rows.Next() {
		penalty, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		out = append(out, penalty)
	}
	return out, rows.Err()
}

// ActivePoints sums the currently counting penalty points.
func (r *PenaltyRepo) ActivePoints(ctx context.Context, providerID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(points), 0)
		FROM provider_penalties
		WHERE provider_id = $1
		  AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > now())`

	var points int
	if err := r.pool.QueryRow(ctx, query, providerID).Scan(&points); err != nil {
		return 0, fmt.Errorf("sum active penalty points: %w", err)
	}
	return points, nil
}

// SetStatus transitions a penalty, guarded on its expected current state.
func (r *PenaltyRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to PenaltyStatus) (Penalty, error) {
	query := `
		UPDATE provider_penalties
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + penaltyColumns

	penalty, err := scanPenalty(r.pool.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return penalty, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Penalty{}, fmt.Errorf("set penalty status: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return Penalty{}, getErr
	}
	return Penalty{}, apperr.IllegalTransition(string(current.Status), string(to))
}

// ExpireDue flips penalties past their expiry to expired.
func (r *PenaltyRepo) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_penalties
		SET status = 'expired', updated_at = now()
		WHERE status = 'active'
		  AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire penalties: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanPenalty(row pgx.Row) (Penalty, error) {
	var p Penalty
	var status string
	err := row.Scan(
		&p.ID, &p.ProviderID, &p.RequestID, &p.Type, &p.Severity, &p.Points,
		&status, &p.Reason, &p.IssuedBy, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Penalty{}, err
	}
	p.Status = PenaltyStatus(status)
	return p, nil
}
