// Package repository persists photo evidence records. The image bytes live in
// object storage; only keys and verification state live here.
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

// Kind classifies what stage of the work a photo documents.
type Kind string

const (
	KindBefore     Kind = "before"
	KindDuring     Kind = "during"
	KindAfter      Kind = "after"
	KindCompletion Kind = "completion"
	KindIssue      Kind = "issue"
)

// VerificationStatus is the reviewer's verdict on a photo.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationFlagged  VerificationStatus = "flagged"
)

// CompletionEvidence reports whether a kind can satisfy the completion gate.
func (k Kind) CompletionEvidence() bool {
	return k == KindAfter || k == KindCompletion
}

// Photo is a persisted photo evidence record.
type Photo struct {
	ID                 uuid.UUID
	RequestID          uuid.UUID
	Kind               Kind
	UploaderID         uuid.UUID
	FileKey            string
	ContentType        string
	SizeBytes          int64
	UploadedAt         *time.Time
	VerificationStatus VerificationStatus
	VerifiedBy         *uuid.UUID
	VerificationNotes  *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateParams holds the fields for registering a pending upload.
type CreateParams struct {
	RequestID   uuid.UUID
	Kind        Kind
	UploaderID  uuid.UUID
	FileKey     string
	ContentType string
	SizeBytes   int64
}

// Repository persists photo records.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (Photo, error)
	GetByID(ctx context.Context, id uuid.UUID) (Photo, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Photo, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, at time.Time) (Photo, error)
	SetVerification(ctx context.Context, id uuid.UUID, status VerificationStatus, verifiedBy uuid.UUID, notes *string) (Photo, error)

	// HasVerifiedCompletionPhoto answers the completion gate: does at least
	// one verified after/completion photo exist for the request.
	HasVerifiedCompletionPhoto(ctx context.Context, requestID uuid.UUID) (bool, error)
}

const photoColumns = `
	id, request_id, kind, uploader_id, file_key, content_type, size_bytes,
	uploaded_at, verification_status, verified_by, verification_notes,
	created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new photo repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Create registers a pending upload.
func (r *Repo) Create(ctx context.Context, p CreateParams) (Photo, error) {
	query := `
		INSERT INTO request_photos (
			request_id, kind, uploader_id, file_key, content_type, size_bytes,
			verification_status
		) VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + photoColumns

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query,
		p.RequestID, string(p.Kind), p.UploaderID, p.FileKey, p.ContentType, p.SizeBytes))
	if err != nil {
		return Photo{}, fmt.Errorf("create photo record: %w", err)
	}
	return photo, nil
}

// GetByID retrieves a photo record.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM request_photos WHERE id = $1`

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, apperr.NotFound("photo not found")
		}
		return Photo{}, fmt.Errorf("get photo record: %w", err)
	}
	return photo, nil
}

// ListByRequest retrieves all photos on a request, oldest first.
func (r *Repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Photo, error) {
	query := `SELECT ` + photoColumns + `
		FROM request_photos WHERE request_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list photo records: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo record: %w", err)
		}
		out = append(out, photo)
	}
	return out, rows.Err()
}

// MarkUploaded stamps the completed upload.
func (r *Repo) MarkUploaded(ctx context.Context, id uuid.UUID, at time.Time) (Photo, error) {
	query := `
		UPDATE request_photos
		SET uploaded_at = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + photoColumns

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, apperr.NotFound("photo not found")
		}
		return Photo{}, fmt.Errorf("mark photo uploaded: %w", err)
	}
	return photo, nil
}

// SetVerification writes the reviewer's verdict.
func (r *Repo) SetVerification(ctx context.Context, id uuid.UUID, status VerificationStatus, verifiedBy uuid.UUID, notes *string) (Photo, error) {
	query := `
		UPDATE request_photos
		SET verification_status = $2, verified_by = $3, verification_notes = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + photoColumns

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, id, string(status), verifiedBy, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, apperr.NotFound("photo not found")
		}
		return Photo{}, fmt.Errorf("set photo verification: %w", err)
	}
	return photo, nil
}

// HasVerifiedCompletionPhoto checks the completion gate.
func (r *Repo) HasVerifiedCompletionPhoto(ctx context.Context, requestID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM request_photos
			WHERE request_id = $1
			  AND kind IN ('after', 'completion')
			  AND verification_status = 'verified'
			  AND uploaded_at IS NOT NULL
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check completion photo: %w", err)
	}
	return exists, nil
}

func scanPhoto(row pgx.Row) (Photo, error) {
	var p Photo
	var kind, status string
	err := row.Scan(
		&p.ID, &p.RequestID, &kind, &p.UploaderID, &p.FileKey, &p.ContentType,
		&p.SizeBytes, &p.UploadedAt, &status, &p.VerifiedBy, &p.VerificationNotes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Photo{}, err
	}
	p.Kind = Kind(kind)
	p.VerificationStatus = VerificationStatus(status)
	return p, nil
}
