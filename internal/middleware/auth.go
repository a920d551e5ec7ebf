package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the pre-shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// TokenMatches compares a presented token against the configured secret in
// constant time. An empty secret never matches: a misconfigured deployment
// must not leave the admin API open.
func TokenMatches(presented, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

// AdminAuth gates the admin API on the X-Admin-Token header. Mismatch stops
// the request with 403 before any store state is touched.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !TokenMatches(c.GetHeader(AdminTokenHeader), secret) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid admin token",
			})
			return
		}
		c.Next()
	}
}
