// Package upload creates video records and issues the write credentials
// clients use to put the raw file into the object store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skylight-video/backend/internal/models"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/pkg/storage"
)

// ErrInvalidInput is returned when a submission is missing a required field.
var ErrInvalidInput = errors.New("title, filename and contentType are required")

// CredentialIssuer issues time-limited write credentials for one object key.
type CredentialIssuer interface {
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// ObjectWriter streams an upload server-side (direct upload path).
type ObjectWriter interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
}

// IssueRequest is one upload submission.
type IssueRequest struct {
	Title       string
	Filename    string
	ContentType string
}

// Session is the caller's handle on a new upload: the record ID, the
// presigned URL to PUT the file to, and the object key it will land on.
type Session struct {
	VideoID   string `json:"videoId"`
	UploadURL string `json:"uploadUrl"`
	UploadKey string `json:"uploadKey"`
}

// Issuer mints video IDs, issues upload credentials and creates the initial
// PENDING record. A fresh ID per call keeps whole-request retries
// collision-free, so no retry happens inside.
type Issuer struct {
	store       videostore.Store
	credentials CredentialIssuer
	expire      time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewIssuer creates an upload session issuer.
func NewIssuer(store videostore.Store, credentials CredentialIssuer, expire time.Duration, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		store:       store,
		credentials: credentials,
		expire:      expire,
		now:         time.Now,
		logger:      logger,
	}
}

// Issue validates the submission, presigns the upload and creates the
// PENDING record. The caller performs the actual upload out of band.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*Session, error) {
	if req.Title == "" || req.Filename == "" || req.ContentType == "" {
		return nil, ErrInvalidInput
	}

	videoID := uuid.New().String()
	uploadKey := storage.UploadKey(videoID, req.Filename)

	uploadURL, err := i.credentials.PresignUpload(ctx, uploadKey, req.ContentType, i.expire)
	if err != nil {
		return nil, fmt.Errorf("issue upload credential: %w", err)
	}

	if err := i.create(ctx, videoID, req.Title, uploadKey); err != nil {
		return nil, err
	}

	i.logger.Info("upload session issued", zap.String("video_id", videoID), zap.String("upload_key", uploadKey))
	return &Session{VideoID: videoID, UploadURL: uploadURL, UploadKey: uploadKey}, nil
}

// IssueDirect creates the record and streams the file server-side, for
// clients that cannot use presigned URLs. The record is created before the
// object so the write notification always finds it.
func (i *Issuer) IssueDirect(ctx context.Context, req IssueRequest, writer ObjectWriter, body io.Reader, contentLength int64) (*Session, error) {
	if req.Title == "" || req.Filename == "" || req.ContentType == "" {
		return nil, ErrInvalidInput
	}

	videoID := uuid.New().String()
	uploadKey := storage.UploadKey(videoID, req.Filename)

	if err := i.create(ctx, videoID, req.Title, uploadKey); err != nil {
		return nil, err
	}
	if err := writer.Upload(ctx, uploadKey, req.ContentType, body, contentLength); err != nil {
		return nil, fmt.Errorf("direct upload: %w", err)
	}

	i.logger.Info("direct upload stored", zap.String("video_id", videoID), zap.String("upload_key", uploadKey))
	return &Session{VideoID: videoID, UploadKey: uploadKey}, nil
}

func (i *Issuer) create(ctx context.Context, videoID, title, uploadKey string) error {
	record := models.NewVideo(videoID, title, uploadKey, i.now())
	if err := i.store.Create(ctx, record); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}
