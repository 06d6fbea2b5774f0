package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyfold/studyspace-backend/internal/http/response"
)

// RequireAgentToken guards the internal artifact-ingestion endpoints with a
// shared secret. The agent process is the only legitimate caller.
func RequireAgentToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.RespondError(c, http.StatusServiceUnavailable, "agent_callbacks_disabled", nil)
			c.Abort()
			return
		}
		got := strings.TrimSpace(c.GetHeader("X-Agent-Token"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.RespondError(c, http.StatusUnauthorized, "invalid_agent_token", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
