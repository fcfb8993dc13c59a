package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/autumnsgrove/grove-core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// TriggerAuth returns a middleware that enforces the configured bearer token
// on mutating endpoints. An empty configured token disables all triggers.
func TriggerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Unauthorized(c)
			return
		}
		presented := extractBearer(c)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
