// Package videos serves the client-facing read path: the per-video view
// the browser polls during processing and the paginated catalog listing.
package videos

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skylight-video/backend/internal/models"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/pkg/response"
)

// ListResponse is the body for GET /videos. NextToken is null when the
// scan is exhausted.
type ListResponse struct {
	Items     []models.VideoSummary `json:"items"`
	NextToken *string               `json:"nextToken"`
}

// Handler handles video read endpoints.
type Handler struct {
	store          videostore.Store
	deliveryOrigin string
	pageSize       int
	logger         *zap.Logger
}

// NewHandler creates a video read handler.
func NewHandler(store videostore.Store, deliveryOrigin string, pageSize int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:          store,
		deliveryOrigin: deliveryOrigin,
		pageSize:       pageSize,
		logger:         logger,
	}
}

// Get handles GET /videos/:videoId. Reflects the store's current value at
// call time; no caching.
func (h *Handler) Get(c *gin.Context) {
	videoID := strings.TrimSpace(c.Param("videoId"))
	if videoID == "" {
		response.BadRequest(c, "videoId is required")
		return
	}

	v, err := h.store.Get(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, videostore.ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("get video failed", zap.Error(err), zap.String("video_id", videoID))
		response.Internal(c, "failed to load video")
		return
	}
	response.OK(c, v.View(h.deliveryOrigin))
}

// List handles GET /videos?nextToken=... The token is opaque and must be
// round-tripped unmodified; a token the store no longer understands is a
// restart-from-scratch condition surfaced as a 400.
func (h *Handler) List(c *gin.Context) {
	token := c.Query("nextToken")

	page, err := h.store.List(c.Request.Context(), h.pageSize, token)
	if err != nil {
		if errors.Is(err, videostore.ErrBadToken) {
			response.BadRequest(c, "invalid nextToken")
			return
		}
		h.logger.Error("list videos failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}

	resp := ListResponse{Items: make([]models.VideoSummary, 0, len(page.Items))}
	for i := range page.Items {
		resp.Items = append(resp.Items, page.Items[i].Summary())
	}
	if page.NextToken != "" {
		resp.NextToken = &page.NextToken
	}
	response.OK(c, resp)
}
