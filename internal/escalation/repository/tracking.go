// Package repository persists escalation rules and tracking records.
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

// Tracking is the escalation record for one emergency request. A resolved
// record is immutable.
type Tracking struct {
	ID                uuid.UUID
	RequestID         uuid.UUID
	PropertyID        uuid.UUID
	EmergencyType     string
	Level             int
	ResponseDeadline  time.Time
	NotifiedParties   []string
	FirstResponseAt   *time.Time
	Resolved          bool
	ResolvedAt        *time.Time
	ResolutionMinutes *int
	ConfigError       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateTrackingParams holds the fields for opening escalation tracking.
type CreateTrackingParams struct {
	RequestID        uuid.UUID
	PropertyID       uuid.UUID
	EmergencyType    string
	ResponseDeadline time.Time
	NotifiedParties  []string
}

// RaiseParams holds the fields written when the sweep advances a level.
type RaiseParams struct {
	ID              uuid.UUID
	FromLevel       int
	NewDeadline     time.Time
	NotifiedParties []string
}

// TrackingRepository persists escalation tracking records.
type TrackingRepository interface {
	Create(ctx context.Context, p CreateTrackingParams) (Tracking, error)
	GetByRequest(ctx context.Context, requestID uuid.UUID) (Tracking, error)

	// ListDue returns unresolved, unanswered records whose deadline has
	// passed and which are not halted on a configuration error.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Tracking, error)

	// Raise advances the level by one. Guarded on the caller's observed
	// level so a concurrent response or resolution wins the race.
	Raise(ctx context.Context, p RaiseParams) (Tracking, error)

	RecordFirstResponse(ctx context.Context, requestID uuid.UUID, at time.Time) (Tracking, error)
	SetDeadline(ctx context.Context, requestID uuid.UUID, deadline time.Time) error
	SetConfigError(ctx context.Context, id uuid.UUID, message string) error

	// Resolve closes the record. Resolving an already-resolved or missing
	// record reports ok=false without error so sweepers stay idempotent.
	Resolve(ctx context.Context, requestID uuid.UUID, at time.Time) (Tracking, bool, error)
}

const trackingColumns = `
	id, request_id, property_id, emergency_type, level, response_deadline,
	notified_parties, first_response_at, resolved, resolved_at,
	resolution_minutes, config_error, created_at, updated_at`

// TrackingRepo implements TrackingRepository with PostgreSQL.
type TrackingRepo struct {
	pool *pgxpool.Pool
}

// NewTrackingRepo creates a new escalation tracking repository.
func NewTrackingRepo(pool *pgxpool.Pool) *TrackingRepo {
	return &TrackingRepo{pool: pool}
}

var _ TrackingRepository = (*TrackingRepo)(nil)

// Create opens tracking at level 1. One record per request.
func (r *TrackingRepo) Create(ctx context.Context, p CreateTrackingParams) (Tracking, error) {
	query := `
		INSERT INTO escalation_tracking (
			request_id, property_id, emergency_type, level, response_deadline,
			notified_parties
		) VALUES ($1, $2, $3, 1, $4, $5)
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query,
		p.RequestID, p.PropertyID, p.EmergencyType, p.ResponseDeadline,
		p.NotifiedParties,
	))
	if err != nil {
		return Tracking{}, fmt.Errorf("create escalation tracking: %w", err)
	}
	return t, nil
}

// GetByRequest retrieves the tracking record for a request.
func (r *TrackingRepo) GetByRequest(ctx context.Context, requestID uuid.UUID) (Tracking, error) {
	query := `SELECT ` + trackingColumns + ` FROM escalation_tracking WHERE request_id = $1`

	t, err := scanTracking(r.pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tracking{}, apperr.NotFound("escalation tracking not found")
		}
		return Tracking{}, fmt.Errorf("get escalation tracking: %w", err)
	}
	return t, nil
}

// ListDue returns the records the sweep must act on, oldest deadline first.
func (r *TrackingRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]Tracking, error) {
	query := `SELECT ` + trackingColumns + `
		FROM escalation_tracking
		WHERE response_deadline <= $1
		  AND resolved = false
		  AND first_response_at IS NULL
		  AND config_error IS NULL
		ORDER BY response_deadline ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due escalations: %w", err)
	}
	defer rows.Close()

	var out []Tracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation tracking: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Raise advances the level. The level guard makes concurrent sweeps safe.
func (r *TrackingRepo) Raise(ctx context.Context, p RaiseParams) (Tracking, error) {
	query := `
		UPDATE escalation_tracking
		SET level = level + 1, response_deadline = $3, notified_parties = $4,
		    updated_at = now()
		WHERE id = $1 AND level = $2 AND resolved = false
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query,
		p.ID, p.FromLevel, p.NewDeadline, p.NotifiedParties))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tracking{}, apperr.ConcurrencyConflict("escalation advanced or resolved concurrently")
		}
		return Tracking{}, fmt.Errorf("raise escalation level: %w", err)
	}
	return t, nil
}

// RecordFirstResponse freezes level advancement by stamping the first
// response. A second call is a no-op returning the current record.
func (r *TrackingRepo) RecordFirstResponse(ctx context.Context, requestID uuid.UUID, at time.Time) (Tracking, error) {
	query := `
		UPDATE escalation_tracking
		SET first_response_at = $2, updated_at = now()
		WHERE request_id = $1 AND first_response_at IS NULL AND resolved = false
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query, requestID, at))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Tracking{}, fmt.Errorf("record first response: %w", err)
	}
	return r.GetByRequest(ctx, requestID)
}

// SetDeadline computes a fresh deadline, re-arming the sweep predicate.
func (r *TrackingRepo) SetDeadline(ctx context.Context, requestID uuid.UUID, deadline time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE escalation_tracking
		SET response_deadline = $2, first_response_at = NULL, updated_at = now()
		WHERE request_id = $1 AND resolved = false`,
		requestID, deadline)
	if err != nil {
		return fmt.Errorf("set escalation deadline: %w", err)
	}
	return nil
}

// SetConfigError halts the record at its current level and surfaces the
// operator-facing failure.
func (r *TrackingRepo) SetConfigError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE escalation_tracking
		SET config_error = $2, updated_at = now()
		WHERE id = $1`,
		id, message)
	if err != nil {
		return fmt.Errorf("set escalation config error: %w", err)
	}
	return nil
}

// Resolve closes the record and stamps the resolution time.
func (r *TrackingRepo) Resolve(ctx context.Context, requestID uuid.UUID, at time.Time) (Tracking, bool, error) {
	query := `
		UPDATE escalation_tracking
		SET resolved = true, resolved_at = $2,
		    resolution_minutes = GREATEST(0, EXTRACT(EPOCH FROM ($2 - created_at)) / 60)::int,
		    updated_at = now()
		WHERE request_id = $1 AND resolved = false
		RETURNING ` + trackingColumns

	t, err := scanTracking(r.pool.QueryRow(ctx, query, requestID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tracking{}, false, nil
		}
		return Tracking{}, false, fmt.Errorf("resolve escalation: %w", err)
	}
	return t, true, nil
}

func scanTracking(row pgx.Row) (Tracking, error) {
	var t Tracking
	err := row.Scan(
		&t.ID, &t.RequestID, &t.PropertyID, &t.EmergencyType, &t.Level,
		&t.ResponseDeadline, &t.NotifiedParties, &t.FirstResponseAt,
		&t.Resolved, &t.ResolvedAt, &t.ResolutionMinutes, &t.ConfigError,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
