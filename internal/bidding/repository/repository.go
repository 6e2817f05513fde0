// Package repository persists bids and owns the bid selection transaction.
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

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

// Bid is a provider's offer on a maintenance request.
type Bid struct {
	ID                   uuid.UUID
	RequestID            uuid.UUID
	ProviderID           uuid.UUID
	AmountCents          int64
	EstimatedDurationMin int
	Note                 *string
	Status               BidStatus
	ExpiresAt            time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateParams holds the fields for placing a new bid.
type CreateParams struct {
	RequestID            uuid.UUID
	ProviderID           uuid.UUID
	AmountCents          int64
	EstimatedDurationMin int
	Note                 *string
	ExpiresAt            time.Time
}

// Repository persists bids. SelectBid is the single place where a bid and its
// request change together.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (Bid, error)
	GetByID(ctx context.Context, id uuid.UUID) (Bid, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Bid, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Bid, error)
	Withdraw(ctx context.Context, id, providerID uuid.UUID) (Bid, error)

	// SelectBid accepts the winning bid, rejects its pending siblings, and
	// moves the request to assigned, all in one transaction. The accept is a
	// compare-and-swap on (id, status=pending, unexpired); a miss returns a
	// retryable conflict and nothing is written.
	SelectBid(ctx context.Context, bidID, requestID uuid.UUID) (Bid, error)
}

const bidColumns = `
	id, request_id, provider_id, amount_cents, estimated_duration_min,
	note, status, expires_at, created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new bid repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Create inserts a new pending bid. A provider may hold at most one pending
// bid per request, enforced by the partial unique index.
func (r *Repo) Create(ctx context.Context, p CreateParams) (Bid, error) {
	query := `
		INSERT INTO bids (
			request_id, provider_id, amount_cents, estimated_duration_min,
			note, status, expires_at
		) VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING ` + bidColumns

	bid, err := scanBid(r.pool.QueryRow(ctx, query,
		p.RequestID, p.ProviderID, p.AmountCents, p.EstimatedDurationMin,
		p.Note, p.ExpiresAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Bid{}, apperr.ConcurrencyConflict("provider already has a pending bid on this request")
		}
		return Bid{}, fmt.Errorf("create bid: %w", err)
	}
	return bid, nil
}

// GetByID retrieves a bid.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	bid, err := scanBid(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, apperr.NotFound("bid not found")
		}
		return Bid{}, fmt.Errorf("get bid: %w", err)
	}
	return bid, nil
}

// ListByRequest retrieves all bids for a request, cheapest first.
func (r *Repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Bid, error) {
	query := `SELECT ` + bidColumns + `
		FROM bids WHERE request_id = $1 ORDER BY amount_cents ASC, created_at ASC`
	return r.list(ctx, query, requestID)
}

// ListByProvider retrieves all bids placed by a provider, newest first.
func (r *Repo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Bid, error) {
	query := `SELECT ` + bidColumns + `
		FROM bids WHERE provider_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, providerID)
}

func (r *Repo) list(ctx context.Context, query string, arg any) ([]Bid, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var out []Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		out = append(out, bid)
	}
	return out, rows.Err()
}

// Withdraw marks the provider's own pending bid as withdrawn.
func (r *Repo) Withdraw(ctx context.Context, id, providerID uuid.UUID) (Bid, error) {
	query := `
		UPDATE bids
		SET status = 'withdrawn', updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status = 'pending'
		RETURNING ` + bidColumns

	bid, err := scanBid(r.pool.QueryRow(ctx, query, id, providerID))
	if err == nil {
		return bid, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Bid{}, fmt.Errorf("withdraw bid: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return Bid{}, getErr
	}
	if current.ProviderID != providerID {
		return Bid{}, apperr.Forbidden("only the bidding provider may withdraw a bid")
	}
	return Bid{}, apperr.IllegalTransition(string(current.Status), string(BidWithdrawn))
}

// SelectBid runs the selection transaction.
func (r *Repo) SelectBid(ctx context.Context, bidID, requestID uuid.UUID) (Bid, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Bid{}, fmt.Errorf("select bid: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// CAS: the bid must still be pending and unexpired.
	accept := `
		UPDATE bids
		SET status = 'accepted', updated_at = now()
		WHERE id = $1 AND request_id = $2 AND status = 'pending' AND expires_at > now()
		RETURNING ` + bidColumns

	winner, err := scanBid(tx.QueryRow(ctx, accept, bidID, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, apperr.ConcurrencyConflict("bid is no longer available for selection")
		}
		return Bid{}, fmt.Errorf("select bid: accept: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bids
		SET status = 'rejected', updated_at = now()
		WHERE request_id = $1 AND id <> $2 AND status = 'pending'`,
		requestID, bidID)
	if err != nil {
		return Bid{}, fmt.Errorf("select bid: reject siblings: %w", err)
	}

	// The request must still be open for bidding; losing this race means
	// another writer assigned or cancelled it first.
	tag, err := tx.Exec(ctx, `
		UPDATE maintenance_requests
		SET status = 'assigned', assigned_provider_id = $2, selected_bid_id = $3,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND status = 'bidding'`,
		requestID, winner.ProviderID, winner.ID)
	if err != nil {
		return Bid{}, fmt.Errorf("select bid: assign request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Bid{}, apperr.ConcurrencyConflict("request is no longer open for bidding")
	}

	if err := tx.Commit(ctx); err != nil {
		return Bid{}, fmt.Errorf("select bid: commit: %w", err)
	}
	return winner, nil
}

func isUniqueViolation(err error) bool {
	// pgconn.PgError code 23505
	type coder interface{ SQLState() string }
	var c coder
	return errors.As(err, &c) && c.SQLState() == "23505"
}

func scanBid(row pgx.Row) (Bid, error) {
	var b Bid
	var status string
	err := row.Scan(
		&b.ID, &b.RequestID, &b.ProviderID, &b.AmountCents,
		&b.EstimatedDurationMin, &b.Note, &status, &b.ExpiresAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Bid{}, err
	}
	b.Status = BidStatus(status)
	return b, nil
}
