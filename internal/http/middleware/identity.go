package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the Gin context key holding the caller's user ID.
const UserIDKey = "userID"

// HeaderUserID carries the user ID for clients that prefer headers over the
// userId query parameter.
const HeaderUserID = "X-User-ID"

// UserIdentity stashes the user ID found in the userId query parameter or
// the X-User-ID header. Handlers still read the JSON body for write
// endpoints; this only makes the ID available early to rate limiting,
// idempotency and logging.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.Query("userId")); uid != "" {
			c.Set(UserIDKey, uid)
		} else if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(UserIDKey, uid)
		}
		c.Next()
	}
}

// UserIDFrom returns the user ID stored by UserIdentity, or "".
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
