package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rota",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rota",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AssignmentsCreated counts schedule assignments written, labeled by
	// how they were created (manual, template, undo, redo).
	AssignmentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rota",
		Name:      "assignments_created_total",
		Help:      "Schedule assignments created, by source.",
	}, []string{"source"})

	// TemplateApplications counts bulk template runs by mode and outcome.
	TemplateApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rota",
		Name:      "template_applications_total",
		Help:      "Template application runs, by mode and outcome.",
	}, []string{"mode", "outcome"})

	// HistoryReversals counts undo and redo attempts by outcome.
	HistoryReversals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rota",
		Name:      "history_reversals_total",
		Help:      "Undo/redo operations, by direction and outcome.",
	}, []string{"direction", "outcome"})
)

// Middleware records request counts and latencies per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
