// Package videostore provides the durable keyed store for video records,
// with conditional status transitions and resumable bounded scans.
package videostore

import (
	"context"
	"errors"

	"github.com/skylight-video/backend/internal/models"
)

var (
	// ErrNotFound is returned when no record exists for the video ID. On a
	// conditional transition this is a data-integrity conflict: the trigger
	// chain observed an object or job for a record that was never created.
	ErrNotFound = errors.New("video record not found")

	// ErrStaleTransition is returned when the record exists but its current
	// status is not the expected predecessor of the requested transition,
	// which happens under duplicate or out-of-order event delivery.
	ErrStaleTransition = errors.New("stale status transition")

	// ErrBadToken is returned for a continuation token that cannot be
	// decoded or no longer resolves to a scan position. Callers restart the
	// listing from scratch.
	ErrBadToken = errors.New("invalid continuation token")
)

// Page is one bounded slice of the catalog. NextToken is an opaque resume
// position; empty means the scan is exhausted. The scan makes no ordering or
// consistency promise across concurrent writes.
type Page struct {
	Items     []models.Video
	NextToken string
}

// Store is the record store contract shared by every lifecycle component.
// All transitions are conditional: they require the record to exist and to
// currently hold the expected predecessor status, so duplicate or
// out-of-order deliveries are rejected rather than silently reapplied.
type Store interface {
	// Create inserts a fresh PENDING record. The video ID is minted by the
	// caller and never reused, so Create is an unconditional put.
	Create(ctx context.Context, video *models.Video) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, videoID string) (*models.Video, error)

	// MarkProcessing transitions PENDING -> PROCESSING.
	MarkProcessing(ctx context.Context, videoID string) error

	// MarkReady transitions PROCESSING -> READY and sets the output key.
	MarkReady(ctx context.Context, videoID, outputKey string) error

	// MarkFailed transitions PROCESSING -> ERROR and sets the error message.
	MarkFailed(ctx context.Context, videoID, errorMessage string) error

	// List scans up to limit records starting from the position encoded in
	// token (empty token starts from the beginning).
	List(ctx context.Context, limit int, token string) (Page, error)
}
