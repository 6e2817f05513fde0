package transport

import (
	"time"

	"github.com/google/uuid"
)

// PresignUploadRequest asks for a presigned upload slot.
type PresignUploadRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=before during after completion issue"`
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// PresignUploadResponse carries the upload URL and the pending record.
type PresignUploadResponse struct {
	Photo     PhotoResponse `json:"photo"`
	UploadURL string        `json:"uploadUrl"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// VerifyPhotoRequest records the reviewer's verdict.
type VerifyPhotoRequest struct {
	Status string  `json:"status" validate:"required,oneof=verified rejected flagged"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// PhotoResponse is a photo evidence record.
type PhotoResponse struct {
	ID                 uuid.UUID  `json:"id"`
	RequestID          uuid.UUID  `json:"requestId"`
	Kind               string     `json:"kind"`
	UploaderID         uuid.UUID  `json:"uploaderId"`
	FileKey            string     `json:"fileKey"`
	ContentType        string     `json:"contentType"`
	SizeBytes          int64      `json:"sizeBytes"`
	UploadedAt         *time.Time `json:"uploadedAt,omitempty"`
	VerificationStatus string     `json:"verificationStatus"`
	VerifiedBy         *uuid.UUID `json:"verifiedBy,omitempty"`
	VerificationNotes  *string    `json:"verificationNotes,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// PhotoListResponse wraps a request's photos.
type PhotoListResponse struct {
	Items []PhotoResponse `json:"items"`
	Total int             `json:"total"`
}

// DownloadURLResponse carries a presigned download URL.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
