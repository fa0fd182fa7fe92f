package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugtracker",
		Name:      "http_requests_total",
		Help:      "HTTP requests processed, by route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bugtracker",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	bugMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugtracker",
		Name:      "bug_mutations_total",
		Help:      "Successful bug writes, by operation.",
	}, []string{"operation"})
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(requestsTotal, requestDuration, bugMutations)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency keyed by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordBugMutation counts a successful create, update, status, priority or delete.
func RecordBugMutation(operation string) {
	bugMutations.WithLabelValues(operation).Inc()
}
