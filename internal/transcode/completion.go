package transcode

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/skylight-video/backend/internal/models"
	"github.com/skylight-video/backend/internal/videostore"
)

// DefaultErrorMessage is recorded when a failed job carries no cause.
const DefaultErrorMessage = "transcode job failed"

// CompletionHandler reacts to job completion notifications and moves the
// record into its terminal state.
type CompletionHandler struct {
	store  videostore.Store
	logger *zap.Logger
}

// NewCompletionHandler creates a completion handler.
func NewCompletionHandler(store videostore.Store, logger *zap.Logger) *CompletionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionHandler{store: store, logger: logger}
}

// HandleJobResult processes one completion notification. An event without a
// video ID cannot be correlated to a record and is dropped as a successful
// no-op. Stale results (duplicate delivery, completion racing dispatch) are
// rejected by the store and surfaced as non-retryable.
func (h *CompletionHandler) HandleJobResult(ctx context.Context, event JobResultEvent) error {
	if event.VideoID == "" {
		h.logger.Warn("job result without video id dropped", zap.String("status", event.Status))
		return nil
	}

	switch event.Status {
	case JobStatusComplete:
		outputKey := models.OutputKeyFor(event.VideoID)
		if err := h.store.MarkReady(ctx, event.VideoID, outputKey); err != nil {
			return h.transitionError(event, "mark ready", err)
		}
		h.logger.Info("video ready", zap.String("video_id", event.VideoID), zap.String("output_key", outputKey))
		return nil

	case JobStatusError:
		msg := event.ErrorMessage
		if msg == "" {
			msg = DefaultErrorMessage
		}
		if err := h.store.MarkFailed(ctx, event.VideoID, msg); err != nil {
			return h.transitionError(event, "mark failed", err)
		}
		h.logger.Info("video failed", zap.String("video_id", event.VideoID), zap.String("error_message", msg))
		return nil

	default:
		h.logger.Warn("unknown job status dropped", zap.String("status", event.Status), zap.String("video_id", event.VideoID))
		return nil
	}
}

func (h *CompletionHandler) transitionError(event JobResultEvent, op string, err error) error {
	if errors.Is(err, videostore.ErrNotFound) {
		h.logger.Error("job result for missing record",
			zap.String("video_id", event.VideoID),
			zap.String("status", event.Status),
		)
	} else if errors.Is(err, videostore.ErrStaleTransition) {
		h.logger.Warn("stale job result rejected",
			zap.String("video_id", event.VideoID),
			zap.String("status", event.Status),
		)
	}
	return fmt.Errorf("%s %s: %w", op, event.VideoID, err)
}
