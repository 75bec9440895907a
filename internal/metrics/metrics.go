// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceattend",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "face_verifications_total",
		Help:      "Face verification attempts by outcome (matched, not_matched, no_face_detected, error).",
	}, []string{"outcome"})

	VerificationDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faceattend",
		Name:      "face_distance",
		Help:      "Euclidean distance of compared descriptors.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.45, 0.5, 0.6, 0.8, 1.0},
	})

	ModelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "face_model_loads_total",
		Help:      "Model load attempts by result.",
	}, []string{"result"})

	ModelLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faceattend",
		Name:      "face_model_load_seconds",
		Help:      "Time spent loading face models.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "checkins_total",
		Help:      "Check-in and check-out messages applied by the worker.",
	}, []string{"type", "result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// ObserveModelLoad matches the face gate's load hook signature.
func ObserveModelLoad(d time.Duration, err error) {
	ModelLoadDuration.Observe(d.Seconds())
	if err != nil {
		ModelLoads.WithLabelValues("error").Inc()
		return
	}
	ModelLoads.WithLabelValues("ok").Inc()
}

// GinMiddleware records request counts and latency by matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
