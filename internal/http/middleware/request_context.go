package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/http/response"
	"github.com/studyfold/studyspace-backend/internal/requestdata"
)

// AttachRequestContext lifts the gateway-forwarded identity headers into
// the request context. Header verification happens upstream; requests that
// reach this service without an X-User-ID are rejected by RequireIdentity.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &requestdata.RequestData{}
		if raw := strings.TrimSpace(c.GetHeader("X-User-ID")); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				rd.UserID = id
			}
		}
		if raw := strings.TrimSpace(c.GetHeader("X-Session-ID")); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				rd.SessionID = id
			}
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
