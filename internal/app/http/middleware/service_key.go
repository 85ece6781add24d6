package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const ServiceKeyHeader = "X-Verify-Key"

// RequireServiceKey guards endpoints called by the external tool's backend
// rather than by a signed-in user. With no key configured every request is
// refused unless allowMissing is set (local development).
func RequireServiceKey(key string, allowMissing bool) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		if len(want) == 0 {
			if !allowMissing {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service key not configured"})
				return
			}
			c.Next()
			return
		}
		got := []byte(c.GetHeader(ServiceKeyHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid service key"})
			return
		}
		c.Next()
	}
}
