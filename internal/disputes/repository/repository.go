// Package repository persists disputes and their append-only timelines.
// Every transition and its timeline entry commit in one transaction.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/internal/disputes/domain"
	"propertyops_backend/platform/apperr"
)

// Dispute is the persisted dispute record.
type Dispute struct {
	ID                uuid.UUID
	RequestID         uuid.UUID
	InitiatorID       uuid.UUID
	RespondentID      *uuid.UUID
	Type              domain.Type
	Description       string
	Status            domain.Status
	ResolutionNotes   *string
	CompensationCents *int64
	CompensationTo    *uuid.UUID
	ResolvedBy        *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TimelineEntry is one append-only event on a dispute's history.
type TimelineEntry struct {
	ID        uuid.UUID
	DisputeID uuid.UUID
	Event     string
	ActorID   *uuid.UUID
	Notes     *string
	CreatedAt time.Time
}

// CreateParams holds the fields for opening a dispute.
type CreateParams struct {
	RequestID    uuid.UUID
	InitiatorID  uuid.UUID
	RespondentID *uuid.UUID
	Type         domain.Type
	Description  string
}

// TransitionParams moves a dispute along one allow-listed edge.
type TransitionParams struct {
	ID      uuid.UUID
	From    domain.Status
	To      domain.Status
	Event   string
	ActorID uuid.UUID
	Notes   *string
}

// ResolveParams writes the resolution outcome.
type ResolveParams struct {
	ID                uuid.UUID
	From              domain.Status
	ResolutionNotes   string
	CompensationCents *int64
	CompensationTo    *uuid.UUID
	ResolvedBy        uuid.UUID
}

// Repository persists disputes.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (Dispute, error)
	GetByID(ctx context.Context, id uuid.UUID) (Dispute, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Dispute, error)
	Timeline(ctx context.Context, disputeID uuid.UUID) ([]TimelineEntry, error)
	Transition(ctx context.Context, p TransitionParams) (Dispute, error)
	Resolve(ctx context.Context, p ResolveParams) (Dispute, error)
}

const disputeColumns = `
	id, request_id, initiator_id, respondent_id, type, description, status,
	resolution_notes, compensation_cents, compensation_to, resolved_by,
	created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new dispute repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Create opens a dispute and writes its first timeline entry.
func (r *Repo) Create(ctx context.Context, p CreateParams) (Dispute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("create dispute: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO disputes (request_id, initiator_id, respondent_id, type, description, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		RETURNING ` + disputeColumns

	d, err := scanDispute(tx.QueryRow(ctx, query,
		p.RequestID, p.InitiatorID, p.RespondentID, string(p.Type), p.Description))
	if err != nil {
		return Dispute{}, fmt.Errorf("create dispute: %w", err)
	}

	if err := appendTimeline(ctx, tx, d.ID, "opened", &p.InitiatorID, nil); err != nil {
		return Dispute{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("create dispute: commit: %w", err)
	}
	return d, nil
}

// GetByID retrieves a dispute.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`

	d, err := scanDispute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, apperr.NotFound("dispute not found")
		}
		return Dispute{}, fmt.Errorf("get dispute: %w", err)
	}
	return d, nil
}

// ListByRequest retrieves all disputes on a request, newest first.
func (r *Repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Dispute, error) {
	query := `SELECT ` + disputeColumns + `
		FROM disputes WHERE request_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Timeline retrieves the append-only history of a dispute, oldest first.
func (r *Repo) Timeline(ctx context.Context, disputeID uuid.UUID) ([]TimelineEntry, error) {
	query := `
		SELECT id, dispute_id, event, actor_id, notes, created_at
		FROM dispute_timeline WHERE dispute_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list dispute timeline: %w", err)
	}
	defer rows.Close()

	var out []TimelineEntry
	for rows.Next() {
		var e TimelineEntry
		if err := rows.Scan(&e.ID, &e.DisputeID, &e.Event, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transition moves the dispute along one edge, guarded on the expected
// current state, and appends the timeline entry in the same transaction.
func (r *Repo) Transition(ctx context.Context, p TransitionParams) (Dispute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("transition dispute: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE disputes
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + disputeColumns

	d, err := scanDispute(tx.QueryRow(ctx, query, p.ID, string(p.From), string(p.To)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, r.transitionMiss(ctx, p.ID, p.To)
		}
		return Dispute{}, fmt.Errorf("transition dispute: %w", err)
	}

	if err := appendTimeline(ctx, tx, d.ID, p.Event, &p.ActorID, p.Notes); err != nil {
		return Dispute{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("transition dispute: commit: %w", err)
	}
	return d, nil
}

// Resolve writes the resolution outcome and its timeline entry together.
func (r *Repo) Resolve(ctx context.Context, p ResolveParams) (Dispute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("resolve dispute: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE disputes
		SET status = 'resolved', resolution_notes = $3, compensation_cents = $4,
		    compensation_to = $5, resolved_by = $6, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + disputeColumns

	d, err := scanDispute(tx.QueryRow(ctx, query,
		p.ID, string(p.From), p.ResolutionNotes, p.CompensationCents,
		p.CompensationTo, p.ResolvedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, r.transitionMiss(ctx, p.ID, domain.StatusResolved)
		}
		return Dispute{}, fmt.Errorf("resolve dispute: %w", err)
	}

	if err := appendTimeline(ctx, tx, d.ID, "resolved", &p.ResolvedBy, &p.ResolutionNotes); err != nil {
		return Dispute{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("resolve dispute: commit: %w", err)
	}
	return d, nil
}

// transitionMiss distinguishes a missing dispute from a state mismatch.
func (r *Repo) transitionMiss(ctx context.Context, id uuid.UUID, attempted domain.Status) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.IllegalTransition(string(current.Status), string(attempted))
}

func appendTimeline(ctx context.Context, tx pgx.Tx, disputeID uuid.UUID, event string, actorID *uuid.UUID, notes *string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO dispute_timeline (dispute_id, event, actor_id, notes)
		VALUES ($1, $2, $3, $4)`,
		disputeID, event, actorID, notes)
	if err != nil {
		return fmt.Errorf("append dispute timeline: %w", err)
	}
	return nil
}

func scanDispute(row pgx.Row) (Dispute, error) {
	var d Dispute
	var typ, status string
	err := row.Scan(
		&d.ID, &d.RequestID, &d.InitiatorID, &d.RespondentID, &typ,
		&d.Description, &status, &d.ResolutionNotes, &d.CompensationCents,
		&d.CompensationTo, &d.ResolvedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return Dispute{}, err
	}
	d.Type = domain.Type(typ)
	d.Status = domain.Status(status)
	return d, nil
}
