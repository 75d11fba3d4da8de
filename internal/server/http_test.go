package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"shipping/internal/auditlog"
	"shipping/internal/core"

	_ "shipping/cmd/shipping/docs"
)

func TestRequestIDMiddleware(t *testing.T) {
	srv := New(newMockService(), nil)

	t.Run("generates request ID when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-ID")
		if got == "" {
			t.Fatal("expected X-Request-ID in response header, got empty")
		}
		// Validate UUID format (8-4-4-4-12 hex digits)
		if len(got) != 36 {
			t.Errorf("expected UUID (36 chars), got %q (%d chars)", got, len(got))
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "my-custom-id")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		respID := rec.Header().Get("X-Request-ID")
		if respID != "my-custom-id" {
			t.Errorf("expected response header X-Request-ID to be %q, got %q", "my-custom-id", respID)
		}
	})
}

// requestIDRecorder captures the request ID seen by the service layer.
type requestIDRecorder struct {
	*mockService
	requestID string
}

func (s *requestIDRecorder) GetQuote(ctx context.Context, n int) (core.Quote, error) {
	s.requestID = core.GetRequestID(ctx)
	return s.mockService.GetQuote(ctx, n)
}

func TestRequestIDReachesService(t *testing.T) {
	svc := &requestIDRecorder{mockService: newMockService()}
	srv := New(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/get-quote?items=1", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.requestID != "req-abc" {
		t.Errorf("expected request ID %q in service context, got %q", "req-abc", svc.requestID)
	}
}

func TestShippingRoutes(t *testing.T) {
	srv := New(newMockService(), nil)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectBody     string
	}{
		{"get quote", http.MethodGet, "/get-quote?items=2", "", http.StatusOK, "5.99"},
		{"post quote", http.MethodPost, "/get-quote", `{"items":[{"product_id":"A","quantity":1}]}`, http.StatusOK, `"nanos":990000000`},
		{"ship order", http.MethodPost, "/ship-order", validOrder, http.StatusOK, `"tracking_id"`},
		{"ship order without body", http.MethodPost, "/ship-order", "", http.StatusBadRequest, "invalid_order_payload"},
		{"unknown route", http.MethodGet, "/getquote", "", http.StatusNotFound, ""},
		{"wrong method", http.MethodDelete, "/ship-order", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			srv.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectBody != "" && !strings.Contains(rec.Body.String(), tt.expectBody) {
				t.Errorf("expected body to contain %q, got: %s", tt.expectBody, rec.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		requestPath    string
		expectedStatus int
		expectBody     string // substring to check in response body
	}{
		{
			name: "metrics enabled - default endpoint accessible",
			config: &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: "/metrics",
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics enabled - empty endpoint defaults to /metrics",
			config: &Config{
				MetricsEnabled: true,
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics disabled - endpoint returns 404",
			config: &Config{
				MetricsEnabled:  false,
				MetricsEndpoint: "/metrics",
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "nil config - metrics disabled by default",
			config:         nil,
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "custom metrics endpoint path",
			config: &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: "/custom-metrics",
			},
			requestPath:    "/custom-metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "custom endpoint - default path returns 404",
			config: &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: "/custom-metrics",
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(newMockService(), tt.config)

			req := httptest.NewRequest(http.MethodGet, tt.requestPath, nil)
			rec := httptest.NewRecorder()

			srv.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			if tt.expectBody != "" && !strings.Contains(rec.Body.String(), tt.expectBody) {
				t.Errorf("expected body to contain %q, got: %s", tt.expectBody, rec.Body.String())
			}
		})
	}
}

func TestMetricsEndpointExposesShippingMetrics(t *testing.T) {
	srv := New(newMockService(), &Config{MetricsEnabled: true})

	// Generate one request so the HTTP counters have a sample
	warm := httptest.NewRequest(http.MethodGet, "/get-quote", nil)
	srv.ServeHTTP(httptest.NewRecorder(), warm)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"# HELP", "# TYPE", "shipping_http_requests_total", `route="/get-quote"`} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}

	contentType := rec.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("expected Content-Type to contain text/plain, got %s", contentType)
	}
}

func TestServerWithMasterKeyAndMetrics(t *testing.T) {
	srv := New(newMockService(), &Config{
		MasterKey:       "test-secret-key",
		MetricsEnabled:  true,
		MetricsEndpoint: "/metrics",
	})

	t.Run("metrics endpoint is public even when master key is set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200 for public metrics endpoint, got %d", rec.Code)
		}
	})

	t.Run("health endpoint is public even when master key is set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200 for public health endpoint, got %d", rec.Code)
		}
	})

	t.Run("shipping endpoints require auth when master key is set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get-quote", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401 for protected endpoint, got %d", rec.Code)
		}
	})

	t.Run("shipping endpoints accessible with valid auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get-quote", nil)
		req.Header.Set("Authorization", "Bearer test-secret-key")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200 with valid auth, got %d", rec.Code)
		}
	})
}

// recordingLogger keeps audit entries in memory.
type recordingLogger struct {
	mu      sync.Mutex
	entries []*auditlog.LogEntry
}

func (l *recordingLogger) Write(entry *auditlog.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *recordingLogger) Config() auditlog.Config {
	return auditlog.Config{Enabled: true, OnlyShippingOperations: true}
}

func (l *recordingLogger) Close() error { return nil }

func (l *recordingLogger) all() []*auditlog.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*auditlog.LogEntry(nil), l.entries...)
}

func TestAuditLogging(t *testing.T) {
	logger := &recordingLogger{}
	srv := New(newMockService(), &Config{
		MasterKey:   "secret",
		AuditLogger: logger,
	})

	send := func(method, path, body, auth string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(http.MethodGet, "/get-quote?items=4", "", "secret"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(http.MethodPost, "/ship-order", validOrder, "secret"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(http.MethodGet, "/get-quote", "", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	send(http.MethodGet, "/health", "", "")

	entries := logger.all()
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}

	if entries[0].Operation != auditlog.OperationGetQuote || entries[0].Data.Items != 4 || entries[0].Data.Quote != "5.99" {
		t.Errorf("unexpected quote entry: %+v %+v", entries[0], entries[0].Data)
	}
	if entries[1].Operation != auditlog.OperationShipOrder || entries[1].TrackingID == "" {
		t.Errorf("unexpected shipment entry: %+v", entries[1])
	}
	if entries[2].StatusCode != http.StatusUnauthorized || entries[2].ErrorType != string(core.ErrorTypeAuthentication) {
		t.Errorf("unexpected rejected entry: %+v", entries[2])
	}
	for _, e := range entries {
		if e.RequestID == "" {
			t.Errorf("entry %s has no request ID", e.ID)
		}
	}
}

func TestAdminAuditLogs(t *testing.T) {
	t.Run("requires auth", func(t *testing.T) {
		srv := New(newMockService(), &Config{MasterKey: "secret", AuditReader: &mockReader{}})

		req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("lists entries with auth", func(t *testing.T) {
		reader := &mockReader{entries: []auditlog.LogEntry{{ID: "one"}}}
		srv := New(newMockService(), &Config{MasterKey: "secret", AuditReader: reader})

		req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs?limit=5", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"id":"one"`) {
			t.Errorf("expected entry in body, got %s", rec.Body.String())
		}
	})

	t.Run("disabled returns 404", func(t *testing.T) {
		srv := New(newMockService(), nil)

		req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs/abc", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHealthEndpointAlwaysAvailable(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "metrics disabled", config: &Config{MetricsEnabled: false}},
		{name: "metrics enabled", config: &Config{MetricsEnabled: true, MetricsEndpoint: "/metrics"}},
		{name: "master key set", config: &Config{MasterKey: "secret"}},
		{name: "tracing enabled", config: &Config{TracingEnabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(newMockService(), tt.config)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})
	}
}

func TestSwaggerEndpoint_Enabled(t *testing.T) {
	srv := New(newMockService(), &Config{SwaggerEnabled: true, MasterKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		t.Errorf("expected text/html Content-Type, got %s", contentType)
	}
}

func TestSwaggerEndpoint_Disabled(t *testing.T) {
	srv := New(newMockService(), &Config{SwaggerEnabled: false})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestSwaggerDocJson_ReturnsExpectedContent(t *testing.T) {
	srv := New(newMockService(), &Config{SwaggerEnabled: true})

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"Shipping API", "/get-quote", "/ship-order"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected doc.json to contain %q, got: %s", want, body[:min(300, len(body))])
		}
	}
}
