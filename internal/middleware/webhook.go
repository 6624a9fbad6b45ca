package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skylight-video/backend/pkg/auth"
	"github.com/skylight-video/backend/pkg/response"
)

// ContextEventSource is the gin context key for the validated webhook source.
const ContextEventSource = "event_source"

// WebhookAuth validates the bearer token the eventing infrastructure sends
// with notification deliveries. A nil token service disables auth (local
// development without a configured secret).
func WebhookAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := tokens.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextEventSource, claims.Source)
		c.Next()
	}
}
