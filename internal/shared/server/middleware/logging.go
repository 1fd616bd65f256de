package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-ats/internal/shared/telemetry"
)

// Context keys handlers set so the request log can name the record touched
// and any status change it caused.
const (
	ResumeIDKey         = "resumeId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits one structured line per request. Server errors log at error
// level; preflight requests are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             route,
			"status":            status,
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes_out":         c.Writer.Size(),
			"user_id":           UserIDFromContext(c),
			"resume_id":         c.GetString(ResumeIDKey),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
