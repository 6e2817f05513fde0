package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
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

type testActor struct {
	id   uuid.UUID
	role string
}

func (a testActor) UserID() uuid.UUID { return a.id }
func (a testActor) Role() string      { return a.role }
func (a testActor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == a.role {
			return true
		}
	}
	return false
}
func (a testActor) IsAuthenticated() bool { return a.id != uuid.Nil }

type recordBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordBus) Publish(ctx context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordBus) Subscribe(eventName string, h events.Handler) {}

type fakePhotoRepo struct {
	photos map[uuid.UUID]repository.Photo
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[uuid.UUID]repository.Photo)}
}

func (r *fakePhotoRepo) Create(ctx context.Context, p repository.CreateParams) (repository.Photo, error) {
	photo := repository.Photo{
		ID:                 uuid.New(),
		RequestID:          p.RequestID,
		Kind:               p.Kind,
		UploaderID:         p.UploaderID,
		FileKey:            p.FileKey,
		ContentType:        p.ContentType,
		SizeBytes:          p.SizeBytes,
		VerificationStatus: repository.VerificationPending,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	r.photos[photo.ID] = photo
	return photo, nil
}

func (r *fakePhotoRepo) GetByID(ctx context.Context, id uuid.UUID) (repository.Photo, error) {
	photo, ok := r.photos[id]
	if !ok {
		return repository.Photo{}, apperr.NotFound("photo not found")
	}
	return photo, nil
}

func (r *fakePhotoRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]repository.Photo, error) {
	var out []repository.Photo
	for _, p := range r.photos {
		if p.RequestID == requestID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepo) MarkUploaded(ctx context.Context, id uuid.UUID, at time.Time) (repository.Photo, error) {
	photo, ok := r.photos[id]
	if !ok {
		return repository.Photo{}, apperr.NotFound("photo not found")
	}
	photo.UploadedAt = &at
	r.photos[id] = photo
	return photo, nil
}

func (r *fakePhotoRepo) SetVerification(ctx context.Context, id uuid.UUID, status repository.VerificationStatus, verifiedBy uuid.UUID, notes *string) (repository.Photo, error) {
	photo, ok := r.photos[id]
	if !ok {
		return repository.Photo{}, apperr.NotFound("photo not found")
	}
	photo.VerificationStatus = status
	photo.VerifiedBy = &verifiedBy
	photo.VerificationNotes = notes
	r.photos[id] = photo
	return photo, nil
}

func (r *fakePhotoRepo) HasVerifiedCompletionPhoto(ctx context.Context, requestID uuid.UUID) (bool, error) {
	for _, p := range r.photos {
		if p.RequestID == requestID && p.Kind.CompletionEvidence() &&
			p.VerificationStatus == repository.VerificationVerified && p.UploadedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

type fakeStorage struct {
	objects map[string]int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]int64)}
}

func (s *fakeStorage) GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error) {
	key := folder + "/" + fileName
	return &storage.PresignedURL{
		URL:       "https://storage.example.com/" + bucket + "/" + key,
		FileKey:   key,
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}, nil
}

func (s *fakeStorage) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       "https://storage.example.com/" + bucket + "/" + fileKey,
		FileKey:   fileKey,
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}, nil
}

func (s *fakeStorage) StatObject(ctx context.Context, bucket, fileKey string) (int64, error) {
	size, ok := s.objects[fileKey]
	if !ok {
		return 0, fmt.Errorf("object %s not found", fileKey)
	}
	return size, nil
}

func (s *fakeStorage) DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *fakeStorage) DeleteObject(ctx context.Context, bucket, fileKey string) error {
	delete(s.objects, fileKey)
	return nil
}

func (s *fakeStorage) EnsureBucketExists(ctx context.Context, bucket string) error { return nil }
func (s *fakeStorage) ValidateContentType(contentType string) error                { return nil }
func (s *fakeStorage) ValidateFileSize(sizeBytes int64) error                      { return nil }

type stubBucketConfig struct{}

func (stubBucketConfig) GetMinioBucketRequestPhotos() string { return "request-photos" }

func newTestService(repo repository.Repository, store storage.Service, bus events.Bus) *Service {
	return New(repo, store, stubBucketConfig{}, bus, logger.New("development"))
}

func TestPresignUploadRegistersPendingPhoto(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	svc := newTestService(repo, store, &recordBus{})
	tenant := testActor{id: uuid.New(), role: httpkit.RoleTenant}
	requestID := uuid.New()

	resp, err := svc.PresignUpload(context.Background(), tenant, requestID, transport.PresignUploadRequest{
		Kind:        "before",
		FileName:    "leak.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if resp.UploadURL == "" {
		t.Fatal("expected a presigned upload URL")
	}
	if resp.Photo.VerificationStatus != string(repository.VerificationPending) {
		t.Errorf("VerificationStatus = %q", resp.Photo.VerificationStatus)
	}
	if resp.Photo.UploadedAt != nil {
		t.Error("photo must not be marked uploaded before confirmation")
	}
	if resp.Photo.UploaderID != tenant.id {
		t.Errorf("UploaderID = %s, want %s", resp.Photo.UploaderID, tenant.id)
	}
}

func TestPresignUploadWithoutStorageIsConfigurationError(t *testing.T) {
	svc := newTestService(newFakePhotoRepo(), nil, &recordBus{})

	_, err := svc.PresignUpload(context.Background(), testActor{id: uuid.New(), role: httpkit.RoleTenant},
		uuid.New(), transport.PresignUploadRequest{Kind: "before", FileName: "a.jpg", ContentType: "image/jpeg", SizeBytes: 1})
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestConfirmUploadRequiresObjectInStorage(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	svc := newTestService(repo, store, &recordBus{})
	tenant := testActor{id: uuid.New(), role: httpkit.RoleTenant}
	requestID := uuid.New()

	resp, err := svc.PresignUpload(context.Background(), tenant, requestID, transport.PresignUploadRequest{
		Kind: "after", FileName: "fixed.jpg", ContentType: "image/jpeg", SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}

	if _, err := svc.ConfirmUpload(context.Background(), tenant, resp.Photo.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("confirm before upload must fail validation, got %v", err)
	}

	store.objects[resp.Photo.FileKey] = 1024
	confirmed, err := svc.ConfirmUpload(context.Background(), tenant, resp.Photo.ID)
	if err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	if confirmed.UploadedAt == nil {
		t.Fatal("expected the upload timestamp to be stamped")
	}

	again, err := svc.ConfirmUpload(context.Background(), tenant, resp.Photo.ID)
	if err != nil {
		t.Fatalf("repeated ConfirmUpload: %v", err)
	}
	if !again.UploadedAt.Equal(*confirmed.UploadedAt) {
		t.Error("repeated confirmation must not re-stamp the upload")
	}
}

func TestConfirmUploadOnlyByUploader(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	svc := newTestService(repo, store, &recordBus{})
	uploader := testActor{id: uuid.New(), role: httpkit.RoleProvider}

	resp, err := svc.PresignUpload(context.Background(), uploader, uuid.New(), transport.PresignUploadRequest{
		Kind: "during", FileName: "work.jpg", ContentType: "image/jpeg", SizeBytes: 512,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}

	other := testActor{id: uuid.New(), role: httpkit.RoleTenant}
	if _, err := svc.ConfirmUpload(context.Background(), other, resp.Photo.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestVerifyRequiresReviewerRoleAndUploadedPhoto(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	bus := &recordBus{}
	svc := newTestService(repo, store, bus)
	provider := testActor{id: uuid.New(), role: httpkit.RoleProvider}
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}
	requestID := uuid.New()

	resp, err := svc.PresignUpload(context.Background(), provider, requestID, transport.PresignUploadRequest{
		Kind: "completion", FileName: "done.jpg", ContentType: "image/jpeg", SizeBytes: 4096,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}

	verdict := transport.VerifyPhotoRequest{Status: "verified"}
	if _, err := svc.Verify(context.Background(), provider, resp.Photo.ID, verdict); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("provider verify must be forbidden, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), landlord, resp.Photo.ID, verdict); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("verify before upload must fail validation, got %v", err)
	}

	store.objects[resp.Photo.FileKey] = 4096
	if _, err := svc.ConfirmUpload(context.Background(), provider, resp.Photo.ID); err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}

	verified, err := svc.Verify(context.Background(), landlord, resp.Photo.ID, verdict)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.VerificationStatus != string(repository.VerificationVerified) {
		t.Errorf("VerificationStatus = %q", verified.VerificationStatus)
	}
	if verified.VerifiedBy == nil || *verified.VerifiedBy != landlord.id {
		t.Error("VerifiedBy must record the reviewer")
	}

	var published *events.PhotoVerified
	for _, e := range bus.events {
		if pv, ok := e.(events.PhotoVerified); ok {
			published = &pv
		}
	}
	if published == nil {
		t.Fatal("expected a photo verified event")
	}
	if published.RequestID != requestID || published.Status != "verified" {
		t.Errorf("event = %+v", published)
	}

	gate, err := svc.HasVerifiedCompletionPhoto(context.Background(), requestID)
	if err != nil {
		t.Fatalf("HasVerifiedCompletionPhoto: %v", err)
	}
	if !gate {
		t.Error("verified completion photo must satisfy the gate")
	}
}

func TestCompletionGateIgnoresBeforePhotos(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	svc := newTestService(repo, store, &recordBus{})
	provider := testActor{id: uuid.New(), role: httpkit.RoleProvider}
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}
	requestID := uuid.New()

	resp, err := svc.PresignUpload(context.Background(), provider, requestID, transport.PresignUploadRequest{
		Kind: "before", FileName: "before.jpg", ContentType: "image/jpeg", SizeBytes: 100,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	store.objects[resp.Photo.FileKey] = 100
	if _, err := svc.ConfirmUpload(context.Background(), provider, resp.Photo.ID); err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	if _, err := svc.Verify(context.Background(), landlord, resp.Photo.ID, transport.VerifyPhotoRequest{Status: "verified"}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	gate, err := svc.HasVerifiedCompletionPhoto(context.Background(), requestID)
	if err != nil {
		t.Fatalf("HasVerifiedCompletionPhoto: %v", err)
	}
	if gate {
		t.Error("a verified before photo must not satisfy the completion gate")
	}
}

func TestDownloadURLRequiresUploadedPhoto(t *testing.T) {
	repo := newFakePhotoRepo()
	store := newFakeStorage()
	svc := newTestService(repo, store, &recordBus{})
	tenant := testActor{id: uuid.New(), role: httpkit.RoleTenant}

	resp, err := svc.PresignUpload(context.Background(), tenant, uuid.New(), transport.PresignUploadRequest{
		Kind: "issue", FileName: "issue.jpg", ContentType: "image/jpeg", SizeBytes: 99,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}

	if _, err := svc.DownloadURL(context.Background(), resp.Photo.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("download before upload must fail validation, got %v", err)
	}

	store.objects[resp.Photo.FileKey] = 99
	if _, err := svc.ConfirmUpload(context.Background(), tenant, resp.Photo.ID); err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	url, err := svc.DownloadURL(context.Background(), resp.Photo.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if url.URL == "" {
		t.Fatal("expected a presigned download URL")
	}
}
