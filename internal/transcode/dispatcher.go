package transcode

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/skylight-video/backend/internal/models"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/pkg/storage"
)

// Dispatcher reacts to object-store write notifications: it submits a
// transcode job for the uploaded object and advances the record to
// PROCESSING. Each invocation is stateless; redelivery on transient failure
// is the caller's responsibility.
type Dispatcher struct {
	store  videostore.Store
	engine Engine
	logger *zap.Logger
}

// NewDispatcher creates a transcode dispatcher.
func NewDispatcher(store videostore.Store, engine Engine, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, engine: engine, logger: logger}
}

// HandleObjectCreated processes one object-written notification.
//
// The record is read before submission so that a redelivered notification
// for a record already at PROCESSING or later does not resubmit the job;
// the conditional transition remains the backstop for the race where two
// deliveries pass the read concurrently. ErrNotFound is a data-integrity
// conflict (an object appeared for a record that was never created) and
// must reach an operator rather than be retried.
func (d *Dispatcher) HandleObjectCreated(ctx context.Context, event ObjectCreatedEvent) error {
	videoID, key, err := VideoIDFromKey(event.Key)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedKey, event.Key)
	}

	record, err := d.store.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, videostore.ErrNotFound) {
			return fmt.Errorf("object %q: %w", key, videostore.ErrNotFound)
		}
		return fmt.Errorf("read record %s: %w", videoID, err)
	}
	if record.Status != models.VideoStatusPending {
		d.logger.Warn("duplicate object notification for dispatched record",
			zap.String("video_id", videoID),
			zap.String("status", string(record.Status)),
		)
		return fmt.Errorf("video %s at %s: %w", videoID, record.Status, videostore.ErrStaleTransition)
	}

	jobID, err := d.engine.SubmitJob(ctx, SubmitJobInput{
		SourceLocation: storage.SourceLocation(event.Bucket, key),
		VideoID:        videoID,
	})
	if err != nil {
		return fmt.Errorf("submit job for %s: %w", videoID, err)
	}

	if err := d.store.MarkProcessing(ctx, videoID); err != nil {
		if errors.Is(err, videostore.ErrStaleTransition) {
			// A concurrent delivery won the transition after our read. The
			// job was submitted twice; the engine output is deterministic
			// per video so the duplicate is harmless.
			d.logger.Warn("record advanced concurrently", zap.String("video_id", videoID), zap.String("job_id", jobID))
			return fmt.Errorf("video %s: %w", videoID, videostore.ErrStaleTransition)
		}
		return fmt.Errorf("mark processing %s: %w", videoID, err)
	}

	d.logger.Info("video dispatched for transcoding", zap.String("video_id", videoID), zap.String("job_id", jobID))
	return nil
}
