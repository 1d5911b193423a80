package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	APIKeyHeader    = "X-API-Key"
	errUnauthorized = "Unauthorized"
)

// APIKey rejects requests whose X-API-Key header does not match secret.
// The check runs before anything else on the route so an unauthenticated
// caller learns nothing about the resource behind it. Both sides are hashed
// first so the comparison is constant-time regardless of length.
func APIKey(secret string) gin.HandlerFunc {
	want := sha256.Sum256([]byte(secret))
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		sum := sha256.Sum256([]byte(got))
		if got == "" || subtle.ConstantTimeCompare(sum[:], want[:]) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		c.Next()
	}
}
