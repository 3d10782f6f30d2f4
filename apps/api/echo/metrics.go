package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_http_requests_total",
			Help: "Number of HTTP requests processed, by method, path and status code.",
		},
		[]string{"method", "path", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elimu_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds, by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	affiliateClicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elimu_affiliate_clicks_total",
			Help: "Number of referral link clicks tracked.",
		},
	)

	affiliateConversionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elimu_affiliate_conversions_total",
			Help: "Number of referral conversions recorded.",
		},
	)
)

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			path := ctx.Path() // route pattern, not raw URL
			if path == "/metrics" {
				return err
			}
			method := ctx.Request().Method
			code := ctx.Response().Status
			if err != nil {
				if herr, ok := err.(*echo.HTTPError); ok {
					code = herr.Code
				}
			}

			requestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
			requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
