//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"shipping/config"
	"shipping/internal/app"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// DBType is either "postgresql" or "mongodb"
	DBType string

	// AuditLogEnabled enables audit logging
	AuditLogEnabled bool

	// LogBodies enables body logging in audit logs
	LogBodies bool

	// LogHeaders enables header logging in audit logs
	LogHeaders bool

	// MasterKey sets the authentication master key (empty = unsafe mode)
	MasterKey string
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App

	// MockQuote is the fake quote service
	MockQuote *MockQuoteServer

	// PgPool is the PostgreSQL connection pool (for DB assertions)
	PgPool *pgxpool.Pool

	// MongoDb is the MongoDB database (for DB assertions)
	MongoDb *mongo.Database

	// DBType is the configured database type
	DBType string

	cancelFunc context.CancelFunc
	closed     bool
}

// SetupTestServer creates a test server with the specified configuration.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(GetTestContext())

	mockQuote := NewMockQuoteServer("5.99")

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	application, err := app.New(ctx, app.Config{
		AppConfig: buildAppConfig(t, cfg, mockQuote.URL()),
	})
	require.NoError(t, err, "failed to create app")

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	err = waitForServer(serverURL + healthPath)
	require.NoError(t, err, "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL:  serverURL,
		App:        application,
		MockQuote:  mockQuote,
		DBType:     cfg.DBType,
		cancelFunc: cancel,
	}

	switch cfg.DBType {
	case "postgresql":
		fixture.PgPool = GetPostgreSQLPool()
	case "mongodb":
		fixture.MongoDb = GetMongoDatabase()
	}

	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// FlushAndClose flushes all pending log entries and closes loggers.
// CRITICAL: Call this before making any DB assertions.
func (f *TestServerFixture) FlushAndClose(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil && !f.closed {
		f.closed = true
		require.NoError(t, f.App.Shutdown(ctx), "failed to shutdown app")
	}
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil && !f.closed {
		f.closed = true
		_ = f.App.Shutdown(ctx)
	}
	if f.MockQuote != nil {
		f.MockQuote.Close()
	}
	if f.cancelFunc != nil {
		f.cancelFunc()
	}
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, quoteURL string) *config.Config {
	t.Helper()

	appCfg := config.Default()
	appCfg.Server.MasterKey = cfg.MasterKey
	appCfg.Quote.Address = quoteURL
	appCfg.Quote.Timeout = config.Duration(2 * time.Second)
	appCfg.Metrics.Enabled = false
	appCfg.Audit = config.AuditConfig{
		Enabled:       cfg.AuditLogEnabled,
		LogBodies:     cfg.LogBodies,
		LogHeaders:    cfg.LogHeaders,
		BufferSize:    100,
		FlushInterval: config.Duration(time.Second),
	}

	switch cfg.DBType {
	case "postgresql":
		appCfg.Storage = config.StorageConfig{
			Type: "postgresql",
			PostgreSQL: config.PostgreSQLConfig{
				URL:      GetPostgreSQLURL(),
				MaxConns: 5,
			},
		}
	case "mongodb":
		appCfg.Storage = config.StorageConfig{
			Type: "mongodb",
			MongoDB: config.MongoDBConfig{
				URL:      GetMongoURL(),
				Database: testDatabase,
			},
		}
	default:
		t.Fatalf("unsupported DB type: %s", cfg.DBType)
	}

	return appCfg
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// MockQuoteServer answers POST /getquote with a fixed price, or a 500 while failing.
type MockQuoteServer struct {
	server  *httptest.Server
	price   atomic.Value
	failing atomic.Bool
}

// NewMockQuoteServer creates a new mock quote server.
func NewMockQuoteServer(price string) *MockQuoteServer {
	m := &MockQuoteServer{}
	m.price.Store(price)
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockQuoteServer) handle(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	if r.Method != http.MethodPost || r.URL.Path != "/getquote" {
		http.NotFound(w, r)
		return
	}
	if m.failing.Load() {
		http.Error(w, "quote backend exploded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, m.price.Load().(string))
}

// SetFailing makes every subsequent quote call fail with 500.
func (m *MockQuoteServer) SetFailing(failing bool) {
	m.failing.Store(failing)
}

// URL returns the server URL.
func (m *MockQuoteServer) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockQuoteServer) Close() {
	m.server.Close()
}
