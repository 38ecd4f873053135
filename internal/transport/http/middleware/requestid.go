package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"content-api/internal/core/logger"
)

const KeyRequestID = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID keeps a well formed caller id or assigns a uuid, and puts it on
// the request context so coordinator logs carry it too.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// validRequestID rejects ids that could forge or bloat log lines.
func validRequestID(rid string) bool {
	if rid == "" || len(rid) > maxRequestIDLen {
		return false
	}
	for _, r := range rid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
