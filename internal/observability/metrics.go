// Package observability exposes Prometheus metrics for the shipping service.
package observability

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shipping/internal/core"
	"shipping/internal/quote"
)

var (
	// QuoteRequestsTotal counts outbound quote requests by outcome.
	QuoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipping_quote_requests_total",
			Help: "Outbound requests to the quote service",
		},
		[]string{"endpoint", "status", "error_type"},
	)

	// QuoteRequestDuration observes outbound quote request latency.
	QuoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipping_quote_request_duration_seconds",
			Help:    "Latency of outbound requests to the quote service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// QuoteRequestsInFlight is the number of quote requests awaiting a response.
	QuoteRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipping_quote_requests_in_flight",
			Help: "Outbound quote requests currently in flight",
		},
	)

	// HTTPRequestsTotal counts served requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipping_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes served request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipping_http_request_duration_seconds",
			Help:    "Latency of served HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// NewPrometheusHooks returns quote client hooks that record request metrics.
func NewPrometheusHooks() quote.Hooks {
	return quote.Hooks{
		OnRequestStart: func(ctx context.Context, _ quote.RequestInfo) context.Context {
			QuoteRequestsInFlight.Inc()
			return ctx
		},
		OnRequestEnd: func(_ context.Context, info quote.ResponseInfo) {
			QuoteRequestsInFlight.Dec()

			status := "none"
			if info.StatusCode != 0 {
				status = strconv.Itoa(info.StatusCode)
			}
			errorType := ""
			var shippingErr *core.ShippingError
			if errors.As(info.Err, &shippingErr) {
				errorType = string(shippingErr.Type)
			} else if info.Err != nil {
				errorType = "unknown"
			}

			QuoteRequestsTotal.WithLabelValues(info.Endpoint, status, errorType).Inc()
			QuoteRequestDuration.WithLabelValues(info.Endpoint).Observe(info.Duration.Seconds())
		},
	}
}

// HTTPMetricsMiddleware records HTTP request counts and latency. Unmatched routes are
// grouped under "unmatched" to bound label cardinality.
func HTTPMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var httpErr *echo.HTTPError
				var shippingErr *core.ShippingError
				switch {
				case errors.As(err, &shippingErr):
					status = shippingErr.HTTPStatusCode()
				case errors.As(err, &httpErr):
					status = httpErr.Code
				case !c.Response().Committed:
					status = 500
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
