package respond

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resume-ats/internal/shared/telemetry"
)

// ErrorBody is the error object every failing endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts the request with the error envelope.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.rejected", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// TooManyRequests writes a 429 with a Retry-After header rounded up to whole
// seconds. retryAfterMs is added to details; a zero wait is reported as one
// second.
func TooManyRequests(c *gin.Context, code, message string, retryAfter time.Duration, details gin.H) {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds <= 0 {
		seconds = 1
	}
	if details == nil {
		details = gin.H{}
	}
	details["retryAfterMs"] = retryAfter.Milliseconds()
	c.Header("Retry-After", strconv.Itoa(seconds))
	Error(c, http.StatusTooManyRequests, code, message, details)
}
