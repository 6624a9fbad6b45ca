// Package webhooks receives the external trigger notifications (object-store
// writes, transcode job results) and hands them to the event queue. The
// queue, not the webhook, owns retries: these endpoints acknowledge as soon
// as the event is durably enqueued.
package webhooks

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skylight-video/backend/pkg/queue"
	"github.com/skylight-video/backend/pkg/response"
)

// Enqueuer is the queue surface the webhook handlers need.
type Enqueuer interface {
	EnqueueObjectCreated(ctx context.Context, payload queue.ObjectCreatedPayload) error
	EnqueueJobResult(ctx context.Context, payload queue.JobResultPayload) error
}

// storageNotification is the object-store event shape: one notification per
// write, possibly batching multiple records.
type storageNotification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// transcodeNotification is the engine completion event shape.
type transcodeNotification struct {
	Detail struct {
		Status       string `json:"status"`
		UserMetadata struct {
			VideoID string `json:"videoId"`
		} `json:"userMetadata"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"detail"`
}

// Handler handles event webhook endpoints.
type Handler struct {
	events Enqueuer
	logger *zap.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(events Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{events: events, logger: logger}
}

// StorageEvents handles POST /webhooks/storage-events. Object keys are
// forwarded as delivered (still URL-encoded); the dispatcher decodes them.
func (h *Handler) StorageEvents(c *gin.Context) {
	var body storageNotification
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid notification: "+err.Error())
		return
	}

	enqueued := 0
	for _, record := range body.Records {
		if record.S3.Object.Key == "" {
			continue
		}
		payload := queue.ObjectCreatedPayload{
			Bucket: record.S3.Bucket.Name,
			Key:    record.S3.Object.Key,
		}
		if err := h.events.EnqueueObjectCreated(c.Request.Context(), payload); err != nil {
			h.logger.Error("enqueue object-created failed", zap.Error(err), zap.String("key", payload.Key))
			response.Internal(c, "failed to enqueue event")
			return
		}
		enqueued++
	}

	// Test notifications and empty batches are acknowledged without work.
	c.JSON(http.StatusOK, gin.H{"enqueued": enqueued})
}

// TranscodeEvents handles POST /webhooks/transcode-events. An event without
// a video ID is still enqueued; correlation failure is decided by the
// completion handler, which drops it as a no-op.
func (h *Handler) TranscodeEvents(c *gin.Context) {
	var body transcodeNotification
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid notification: "+err.Error())
		return
	}
	if body.Detail.Status == "" {
		response.BadRequest(c, "detail.status is required")
		return
	}

	payload := queue.JobResultPayload{
		Status:       body.Detail.Status,
		VideoID:      body.Detail.UserMetadata.VideoID,
		ErrorMessage: body.Detail.ErrorMessage,
	}
	if err := h.events.EnqueueJobResult(c.Request.Context(), payload); err != nil {
		h.logger.Error("enqueue job-result failed", zap.Error(err), zap.String("video_id", payload.VideoID))
		response.Internal(c, "failed to enqueue event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"enqueued": 1})
}
