package metrics

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported by this service.
var Registry = prometheus.NewRegistry()

var (
	processingStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "resume_processing_started_total",
		Help: "Total resume processing runs started",
	})
	processingCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "resume_processing_completed_total",
		Help: "Total resume processing runs completed",
	})
	processingFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "resume_processing_failed_total",
		Help: "Total resume processing runs failed",
	})
	processingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resume_processing_duration_seconds",
		Help:    "Resume processing duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
	uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resume_uploads_total",
		Help: "Resume uploads by result",
	}, []string{"result"})
	atsOverall = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resume_ats_overall",
		Help:    "Distribution of overall ATS scores",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})
	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resume_jobs_total",
		Help: "Queue jobs handled by the worker, by outcome",
	}, []string{"outcome"})
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

var (
	initOnce    sync.Once
	dbStatsOnce sync.Once
)

// InitMetrics registers all collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			processingStartedTotal,
			processingCompletedTotal,
			processingFailedTotal,
			processingDuration,
			uploadsTotal,
			atsOverall,
			jobsTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// RegisterDBStats exports connection pool stats for the resumes database.
// Only the first pool passed in is registered.
func RegisterDBStats(db *sql.DB) {
	if db == nil {
		return
	}
	dbStatsOnce.Do(func() {
		Registry.MustRegister(collectors.NewDBStatsCollector(db, "resumes"))
	})
}

func IncProcessingStarted() {
	processingStartedTotal.Inc()
}

func IncProcessingCompleted() {
	processingCompletedTotal.Inc()
}

func IncProcessingFailed() {
	processingFailedTotal.Inc()
}

// ObserveProcessingDuration records how long a processing run took.
func ObserveProcessingDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	processingDuration.Observe(d.Seconds())
}

// IncUpload counts an upload outcome: created, duplicate or rejected.
func IncUpload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}

// ObserveATSOverall records a computed overall score.
func ObserveATSOverall(score int) {
	atsOverall.Observe(float64(score))
}

// IncJob counts a worker outcome such as received, completed, failed or
// unrecoverable.
func IncJob(outcome string) {
	jobsTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latencies by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
