package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commons_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commons_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	resourcesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commons_resources_posted_total",
		Help: "Total number of resources posted",
	})

	requestsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commons_requests_created_total",
		Help: "Total number of resource requests created",
	})

	ratingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commons_ratings_total",
		Help: "Total number of ratings submitted",
	})
)

// Metrics records request counts and latency labelled by route pattern.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// IncResourcesPosted counts a successfully posted resource.
func IncResourcesPosted() { resourcesPostedTotal.Inc() }

// IncRequestsCreated counts a successfully created resource request.
func IncRequestsCreated() { requestsCreatedTotal.Inc() }

// IncRatings counts an applied rating.
func IncRatings() { ratingsTotal.Inc() }
