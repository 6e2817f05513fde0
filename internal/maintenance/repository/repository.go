package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/internal/maintenance/domain"
	"propertyops_backend/platform/apperr"
)

const requestNotFoundMessage = "maintenance request not found"

const requestColumns = `
	id, property_id, tenant_id, category, priority, description,
	is_emergency, emergency_type, status, approval_status, approval_reason,
	approved_by, estimated_cost_cents, payment_responsibility,
	selected_bid_id, assigned_provider_id, rating, review, completion_date,
	cancelled_by, cancel_reason, version, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new maintenance request repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a new request at version 1.
func (r *Repo) Create(ctx context.Context, p CreateParams) (Request, error) {
	query := `
		INSERT INTO maintenance_requests (
			property_id, tenant_id, category, priority, description,
			is_emergency, emergency_type, status, approval_status,
			estimated_cost_cents, payment_responsibility, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING ` + requestColumns

	row := r.pool.QueryRow(ctx, query,
		p.PropertyID, p.TenantID, string(p.Category), string(p.Priority),
		p.Description, p.IsEmergency, string(p.EmergencyType),
		string(p.Status), string(p.ApprovalStatus),
		p.EstimatedCostCents, string(p.PaymentResponsibility),
	)
	req, err := scanRequest(row)
	if err != nil {
		return Request{}, fmt.Errorf("create maintenance request: %w", err)
	}
	return req, nil
}

// GetByID retrieves a request by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, apperr.NotFound(requestNotFoundMessage)
		}
		return Request{}, fmt.Errorf("get maintenance request: %w", err)
	}
	return req, nil
}

// ListByProperty retrieves all requests for a property, newest first.
func (r *Repo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM maintenance_requests WHERE property_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, propertyID)
}

// ListByTenant retrieves all requests submitted by a tenant, newest first.
func (r *Repo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM maintenance_requests WHERE tenant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, tenantID)
}

func (r *Repo) list(ctx context.Context, query string, arg any) ([]Request, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list maintenance requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// SetApproval writes the approval outcome and resulting status.
func (r *Repo) SetApproval(ctx context.Context, id uuid.UUID, version int64, approval domain.ApprovalStatus, newStatus domain.Status, approvedBy *uuid.UUID, reason *string) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET approval_status = $3, status = $4, approved_by = $5,
		    approval_reason = $6, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "set approval", id, query,
		id, version, string(approval), string(newStatus), approvedBy, reason)
}

// OpenBidding moves the request into bidding.
func (r *Repo) OpenBidding(ctx context.Context, id uuid.UUID, version int64) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "open bidding", id, query,
		id, version, string(domain.StatusBidding))
}

// Assign records the provider and moves the request to assigned.
func (r *Repo) Assign(ctx context.Context, id uuid.UUID, version int64, providerID uuid.UUID, selectedBidID *uuid.UUID) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $3, assigned_provider_id = $4, selected_bid_id = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "assign request", id, query,
		id, version, string(domain.StatusAssigned), providerID, selectedBidID)
}

// StartWork moves the request to in_progress.
func (r *Repo) StartWork(ctx context.Context, id uuid.UUID, version int64) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "start work", id, query,
		id, version, string(domain.StatusInProgress))
}

// Complete finishes the request.
func (r *Repo) Complete(ctx context.Context, p CompleteParams) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $3, completion_date = $4, rating = $5, review = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "complete request", p.ID, query,
		p.ID, p.Version, string(domain.StatusCompleted), p.CompletedAt, p.Rating, p.Review)
}

// Cancel terminates the request.
func (r *Repo) Cancel(ctx context.Context, p CancelParams) (Request, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $3, cancelled_by = $4, cancel_reason = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + requestColumns

	return r.guardedUpdate(ctx, "cancel request", p.ID, query,
		p.ID, p.Version, string(domain.StatusCancelled), p.CancelledBy, p.Reason)
}

// guardedUpdate runs a version-guarded UPDATE. When no row comes back it
// distinguishes a missing record from a stale version so callers can retry
// only the genuine conflicts.
func (r *Repo) guardedUpdate(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	checkErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM maintenance_requests WHERE id = $1)`, id,
	).Scan(&exists)
	if checkErr != nil {
		return Request{}, fmt.Errorf("%s: %w", op, checkErr)
	}
	if !exists {
		return Request{}, apperr.NotFound(requestNotFoundMessage)
	}
	return Request{}, apperr.ConcurrencyConflict("maintenance request was modified concurrently")
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var category, priority, emergencyType, status, approvalStatus, payment string

	err := row.Scan(
		&req.ID, &req.PropertyID, &req.TenantID, &category, &priority,
		&req.Description, &req.IsEmergency, &emergencyType, &status,
		&approvalStatus, &req.ApprovalReason, &req.ApprovedBy,
		&req.EstimatedCostCents, &payment, &req.SelectedBidID,
		&req.AssignedProviderID, &req.Rating, &req.Review, &req.CompletionDate,
		&req.CancelledBy, &req.CancelReason, &req.Version,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return Request{}, err
	}

	req.Category = domain.Category(category)
	req.Priority = domain.Priority(priority)
	req.EmergencyType = domain.EmergencyType(emergencyType)
	req.Status = domain.Status(status)
	req.ApprovalStatus = domain.ApprovalStatus(approvalStatus)
	req.PaymentResponsibility = domain.PaymentResponsibility(payment)
	return req, nil
}
