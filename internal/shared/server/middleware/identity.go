package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-ats/internal/shared/server/respond"
)

const (
	userIDKey = "userId"

	// UserIDHeader carries the caller identity resolved by the upstream gateway.
	UserIDHeader = "X-User-Id"

	maxUserIDLength = 128
)

// Identity stores the gateway-provided user ID in context. Requests without
// one are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" || len(userID) > maxUserIDLength {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
