package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"shipping/config"
	"shipping/internal/auditlog"
	"shipping/internal/core"
	"shipping/internal/observability"
	"shipping/internal/tracing"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string                   // Optional: Master key for authentication
	MetricsEnabled  bool                     // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string                   // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   string                   // Max request body size, echo notation (default: 1M)
	SwaggerEnabled  bool                     // Whether to serve the Swagger UI under /swagger/
	TracingEnabled  bool                     // Whether to start a server span per request
	AuditLogger     auditlog.LoggerInterface // Optional: audit logger
	AuditReader     auditlog.Reader          // Optional: backs /admin/audit-logs
}

// New creates a new HTTP server
func New(service core.ShippingService, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(service, cfg.AuditReader)

	// Build list of paths that skip authentication
	authSkipPaths := []string{"/health", "/swagger/"}

	metricsPath := "/metrics"
	if cfg.MetricsEnabled {
		if cfg.MetricsEndpoint != "" {
			metricsPath = path.Clean("/" + cfg.MetricsEndpoint)
		}
		if shadowsRoute(metricsPath) {
			slog.Warn("metrics endpoint conflicts with an API route, using /metrics",
				"configured", cfg.MetricsEndpoint)
			metricsPath = "/metrics"
		}
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestIDContext())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.TracingEnabled {
		e.Use(tracing.Middleware())
	}
	if cfg.MetricsEnabled {
		e.Use(observability.HTTPMetricsMiddleware())
	}

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg.BodySizeLimit != "" {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	// Audit runs before auth so rejected requests are recorded too
	if cfg.AuditLogger != nil {
		e.Use(auditlog.Middleware(cfg.AuditLogger))
	}

	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// Shipping routes
	e.GET("/get-quote", handler.GetQuote)
	e.POST("/get-quote", handler.PostQuote)
	e.POST("/ship-order", handler.ShipOrder)

	// Admin routes
	e.GET("/admin/audit-logs", handler.ListAuditLogs)
	e.GET("/admin/audit-logs/:id", handler.GetAuditLog)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// shadowsRoute reports whether p would hide an API route or bypass auth for one.
func shadowsRoute(p string) bool {
	switch p {
	case "/", "/health", "/get-quote", "/ship-order", "/admin", "/swagger":
		return true
	}
	return strings.HasPrefix(p, "/admin/") || strings.HasPrefix(p, "/swagger/") ||
		strings.HasPrefix(p, "/get-quote/") || strings.HasPrefix(p, "/ship-order/")
}

// requestIDContext copies the request ID assigned by middleware.RequestID into the
// request context so the quote client can forward it upstream.
func requestIDContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
