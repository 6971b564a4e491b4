package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextRequestID is the gin context key carrying the request trace id.
const ContextRequestID = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a trace id, honoring one supplied by an
// upstream proxy, and echoes it back on the response. The same id lands in
// log lines and error envelopes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ContextRequestID, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}
