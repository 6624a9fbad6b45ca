package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the JSON body for failed requests.
type Error struct {
	Message string `json:"message"`
}

// OK sends 200 with the payload as-is. Success bodies are flat (no
// envelope); the browser client consumes them directly.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends 400 with a message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Error{Message: msg})
}

// Unauthorized sends 401 with a message.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Error{Message: msg})
}

// NotFound sends 404 with a message.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Error{Message: msg})
}

// Internal sends 500 with a message.
func Internal(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Error{Message: msg})
}
