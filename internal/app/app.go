// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the shipping service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"shipping/config"
	"shipping/internal/auditlog"
	"shipping/internal/core"
	"shipping/internal/httpclient"
	"shipping/internal/observability"
	"shipping/internal/quote"
	"shipping/internal/server"
	"shipping/internal/shipping"
	"shipping/internal/tracing"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config  *config.Config
	tracing *tracing.Provider
	audit   *auditlog.Result
	service *shipping.Service
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration produced by config.Load.
	AppConfig *config.Config

	// HTTPClient overrides the client used to reach the quote service.
	// Tests inject one with a fake transport; nil builds one from the quote timeout.
	HTTPClient *http.Client

	// Tracing overrides the tracing setup derived from AppConfig. Optional.
	Tracing *tracing.Config
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	tracingCfg := tracing.Config{
		Enabled:     appCfg.Tracing.Enabled,
		Exporter:    appCfg.Tracing.Exporter,
		Endpoint:    appCfg.Tracing.OTLPEndpoint,
		ServiceName: appCfg.Tracing.ServiceName,
	}
	if cfg.Tracing != nil {
		tracingCfg = *cfg.Tracing
	}
	tp, err := tracing.Setup(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.tracing = tp

	// Initialize audit logging
	auditResult, err := auditlog.New(ctx, appCfg)
	if err != nil {
		if closeErr := app.tracing.Shutdown(ctx); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize audit logging: %w (also: tracing shutdown error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize audit logging: %w", err)
	}
	app.audit = auditResult

	app.logStartupInfo()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := httpclient.DefaultConfig(appCfg.Quote.Timeout.Std())
		httpClient = httpclient.NewHTTPClient(&clientCfg)
	}

	var hooks quote.Hooks
	if appCfg.Metrics.Enabled {
		hooks = observability.NewPrometheusHooks()
	}

	quoteClient := quote.New(quote.Config{
		Address:   appCfg.Quote.Address,
		ValuePath: appCfg.Quote.ValuePath,
	}, httpClient, hooks)
	app.service = shipping.NewService(quoteClient)

	if appCfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	app.server = server.New(app.service, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		SwaggerEnabled:  appCfg.Server.SwaggerEnabled,
		TracingEnabled:  tracingCfg.Enabled,
		AuditLogger:     auditResult.Logger,
		AuditReader:     auditResult.Reader,
	})

	return app, nil
}

// Service returns the shipping service.
func (a *App) Service() core.ShippingService {
	return a.service
}

// AuditLogger returns the audit logger interface.
func (a *App) AuditLogger() auditlog.LoggerInterface {
	if a.audit == nil {
		return nil
	}
	return a.audit.Logger
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context timeout/cancellation.
// 2. Audit logger close (flushes pending audit records, then closes storage).
// 3. Tracer provider shutdown (exports buffered spans).
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Error("audit logger close error", "error", err)
			errs = append(errs, fmt.Errorf("audit close: %w", err))
		}
	}

	if err := a.tracing.Shutdown(ctx); err != nil {
		slog.Error("tracing shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: SHIPPING_MASTER_KEY not set - server running without authentication",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set SHIPPING_MASTER_KEY to protect quote and order endpoints")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	slog.Info("quote service configured",
		"address", cfg.Quote.Address,
		"timeout", cfg.Quote.Timeout.Std(),
		"value_path", cfg.Quote.ValuePath,
	)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.Tracing.Enabled {
		slog.Info("tracing enabled", "exporter", cfg.Tracing.Exporter, "service_name", cfg.Tracing.ServiceName)
	}

	if cfg.Audit.Enabled {
		slog.Info("audit logging enabled",
			"storage_type", cfg.Storage.Type,
			"log_bodies", cfg.Audit.LogBodies,
			"log_headers", cfg.Audit.LogHeaders,
			"retention_days", cfg.Audit.RetentionDays,
		)
	} else {
		slog.Info("audit logging disabled")
	}
}
