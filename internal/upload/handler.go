package upload

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skylight-video/backend/pkg/response"
)

// IssueBody is the body for POST /upload.
type IssueBody struct {
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Handler handles upload HTTP endpoints.
type Handler struct {
	issuer *Issuer
	writer ObjectWriter
	logger *zap.Logger
}

// NewHandler creates an upload handler. writer backs the direct upload path.
func NewHandler(issuer *Issuer, writer ObjectWriter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, writer: writer, logger: logger}
}

// Issue handles POST /upload: returns {videoId, uploadUrl, uploadKey}.
func (h *Handler) Issue(c *gin.Context) {
	var body IssueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.issuer.Issue(c.Request.Context(), IssueRequest{
		Title:       body.Title,
		Filename:    body.Filename,
		ContentType: body.ContentType,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("issue upload session failed", zap.Error(err))
		response.Internal(c, "failed to create upload session")
		return
	}
	response.OK(c, session)
}

// IssueDirect handles POST /upload/direct: the file travels in the request
// body, title and filename in query parameters, content type in the header.
func (h *Handler) IssueDirect(c *gin.Context) {
	req := IssueRequest{
		Title:       c.Query("title"),
		Filename:    c.Query("filename"),
		ContentType: c.ContentType(),
	}

	session, err := h.issuer.IssueDirect(c.Request.Context(), req, h.writer, c.Request.Body, c.Request.ContentLength)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("direct upload failed", zap.Error(err))
		response.Internal(c, "failed to store upload")
		return
	}
	response.OK(c, session)
}
