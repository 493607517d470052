package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jward/autodoc/internal/logging"
)

type metrics struct {
	requests     *prometheus.CounterVec
	buildSeconds prometheus.Histogram
	modulesLive  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autodoc_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		buildSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autodoc_module_build_seconds",
			Help:    "Time to read an archive and build its declaration graph",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		modulesLive: f.NewGauge(prometheus.GaugeOpts{
			Name: "autodoc_modules_live",
			Help: "Modules currently registered",
		}),
	}
}

// instrument counts every request and logs it at info level.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Info("request",
			logging.FieldMethod, c.Request.Method,
			logging.FieldRoute, route,
			logging.FieldStatus, status,
			logging.FieldDuration, time.Since(start))
	}
}
