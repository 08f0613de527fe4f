package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/loregraph/internal/platform/ctxutil"
)

// AttachSession copies the :session_id route param into the request context.
func AttachSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.Param("session_id")); id != "" {
			c.Request = c.Request.WithContext(ctxutil.WithSessionID(c.Request.Context(), id))
		}
		c.Next()
	}
}

// LimitBody caps request bodies at maxBytes. Reads past the cap fail with
// *http.MaxBytesError.
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
