package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-ats/internal/resumes"
	"resume-ats/internal/services/health"
	"resume-ats/internal/shared/config"
	"resume-ats/internal/shared/metrics"
	"resume-ats/internal/shared/server/middleware"
	"resume-ats/internal/shared/server/respond"
)

const (
	rateGroupUpload = "UPLOAD"
	rateGroupWrite  = "WRITE"
	rateGroupRead   = "READ"
)

// RouterDeps carries what the router needs from bootstrap.
type RouterDeps struct {
	Config        config.Config
	ResumeHandler *resumes.Handler
	Health        *health.Service
	RateLimiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	metrics.InitMetrics()
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	authed := api.Group("")
	authed.Use(
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        defaultRateRules(),
			DefaultGroup: rateGroupRead,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
		}),
	)
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(authed)
	}

	return r
}

func defaultRateRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupUpload: {Rate: 10.0 / 60.0, Burst: 5},
		rateGroupWrite:  {Rate: 2, Burst: 10},
		rateGroupRead:   {Rate: 10, Burst: 40},
	}
}

func rateGroupFor(c *gin.Context) string {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
		return rateGroupRead
	case http.MethodPost:
		if strings.HasSuffix(c.FullPath(), "/resumes") {
			return rateGroupUpload
		}
	}
	return rateGroupWrite
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
