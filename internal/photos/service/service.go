// Package service implements photo evidence: presigned uploads against object
// storage, manual reviewer verification, and the completion gate read.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/events"
	"propertyops_backend/internal/photos/repository"
	"propertyops_backend/internal/photos/transport"
	"propertyops_backend/internal/storage"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// BucketConfig names the bucket photo evidence lives in.
type BucketConfig interface {
	GetMinioBucketRequestPhotos() string
}

// Service provides business logic for photo evidence.
type Service struct {
	repo    repository.Repository
	storage storage.Service
	bucket  string
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new photos service.
func New(repo repository.Repository, store storage.Service, cfg BucketConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: store,
		bucket:  cfg.GetMinioBucketRequestPhotos(),
		bus:     bus,
		log:     log,
	}
}

// PresignUpload registers a pending photo and returns the presigned PUT URL
// the client uploads against.
func (s *Service) PresignUpload(ctx context.Context, actor httpkit.Identity, requestID uuid.UUID, req transport.PresignUploadRequest) (transport.PresignUploadResponse, error) {
	if s.storage == nil {
		return transport.PresignUploadResponse{}, apperr.Configuration("object storage is not configured")
	}

	presigned, err := s.storage.GenerateUploadURL(ctx, s.bucket, requestID.String(), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.PresignUploadResponse{}, apperr.Validation(err.Error())
	}

	photo, err := s.repo.Create(ctx, repository.CreateParams{
		RequestID:   requestID,
		Kind:        repository.Kind(req.Kind),
		UploaderID:  actor.UserID(),
		FileKey:     presigned.FileKey,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		return transport.PresignUploadResponse{}, err
	}

	return transport.PresignUploadResponse{
		Photo:     toResponse(photo),
		UploadURL: presigned.URL,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// ConfirmUpload verifies the object landed in storage and stamps the record.
func (s *Service) ConfirmUpload(ctx context.Context, actor httpkit.Identity, photoID uuid.UUID) (transport.PhotoResponse, error) {
	photo, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return transport.PhotoResponse{}, err
	}
	if photo.UploaderID != actor.UserID() {
		return transport.PhotoResponse{}, apperr.Forbidden("only the uploader may confirm an upload")
	}
	if photo.UploadedAt != nil {
		return toResponse(photo), nil
	}

	if _, err := s.storage.StatObject(ctx, s.bucket, photo.FileKey); err != nil {
		return transport.PhotoResponse{}, apperr.Validation("upload not found in storage; complete the upload first")
	}

	updated, err := s.repo.MarkUploaded(ctx, photoID, time.Now().UTC())
	if err != nil {
		return transport.PhotoResponse{}, err
	}
	return toResponse(updated), nil
}

// Verify records the reviewer's verdict on an uploaded photo.
func (s *Service) Verify(ctx context.Context, actor httpkit.Identity, photoID uuid.UUID, req transport.VerifyPhotoRequest) (transport.PhotoResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.PhotoResponse{}, apperr.Forbidden("only a landlord or agency may verify photos")
	}

	photo, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return transport.PhotoResponse{}, err
	}
	if photo.UploadedAt == nil {
		return transport.PhotoResponse{}, apperr.Validation("photo has not been uploaded yet")
	}

	updated, err := s.repo.SetVerification(ctx, photoID,
		repository.VerificationStatus(req.Status), actor.UserID(), req.Notes)
	if err != nil {
		return transport.PhotoResponse{}, err
	}

	s.bus.Publish(ctx, events.PhotoVerified{
		BaseEvent: events.NewBaseEvent(),
		PhotoID:   updated.ID,
		RequestID: updated.RequestID,
		Status:    string(updated.VerificationStatus),
	})
	return toResponse(updated), nil
}

// ListByRequest retrieves all photos on a request.
func (s *Service) ListByRequest(ctx context.Context, requestID uuid.UUID) (transport.PhotoListResponse, error) {
	photos, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return transport.PhotoListResponse{}, err
	}

	out := make([]transport.PhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, toResponse(p))
	}
	return transport.PhotoListResponse{Items: out, Total: len(out)}, nil
}

// DownloadURL returns a presigned GET URL for an uploaded photo.
func (s *Service) DownloadURL(ctx context.Context, photoID uuid.UUID) (transport.DownloadURLResponse, error) {
	photo, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return transport.DownloadURLResponse{}, err
	}
	if photo.UploadedAt == nil {
		return transport.DownloadURLResponse{}, apperr.Validation("photo has not been uploaded yet")
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, photo.FileKey)
	if err != nil {
		return transport.DownloadURLResponse{}, err
	}
	return transport.DownloadURLResponse{URL: presigned.URL, ExpiresAt: presigned.ExpiresAt}, nil
}

// HasVerifiedCompletionPhoto answers the completion gate.
func (s *Service) HasVerifiedCompletionPhoto(ctx context.Context, requestID uuid.UUID) (bool, error) {
	return s.repo.HasVerifiedCompletionPhoto(ctx, requestID)
}

func toResponse(p repository.Photo) transport.PhotoResponse {
	return transport.PhotoResponse{
		ID:                 p.ID,
		RequestID:          p.RequestID,
		Kind:               string(p.Kind),
		UploaderID:         p.UploaderID,
		FileKey:            p.FileKey,
		ContentType:        p.ContentType,
		SizeBytes:          p.SizeBytes,
		UploadedAt:         p.UploadedAt,
		VerificationStatus: string(p.VerificationStatus),
		VerifiedBy:         p.VerifiedBy,
		VerificationNotes:  p.VerificationNotes,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
