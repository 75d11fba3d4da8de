package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipping/internal/auditlog"
	"shipping/internal/core"
)

// mockService implements core.ShippingService for testing
type mockService struct {
	quote      core.Quote
	quoteErr   error
	trackingID string
	shipErr    error

	gotItems []int
	gotOrder *core.Order
}

func (m *mockService) GetQuote(_ context.Context, numberOfItems int) (core.Quote, error) {
	m.gotItems = append(m.gotItems, numberOfItems)
	if m.quoteErr != nil {
		return core.Quote{}, m.quoteErr
	}
	return m.quote, nil
}

func (m *mockService) ShipOrder(_ context.Context, order *core.Order) (*core.ShipmentConfirmation, error) {
	m.gotOrder = order
	if m.shipErr != nil {
		return nil, m.shipErr
	}
	if err := order.Validate(); err != nil {
		return nil, core.NewInvalidOrderPayloadError(err.Error(), err)
	}
	return &core.ShipmentConfirmation{TrackingID: m.trackingID}, nil
}

func newMockService() *mockService {
	return &mockService{
		quote:      core.NewQuote(decimal.RequireFromString("5.99")),
		trackingID: "6f1c1b9e-2a0e-4d1e-9a57-0d5b8f7c9e21",
	}
}

// mockReader implements auditlog.Reader for testing
type mockReader struct {
	entries   []auditlog.LogEntry
	gotParams auditlog.LogQueryParams
	err       error
}

func (m *mockReader) GetLogs(_ context.Context, params auditlog.LogQueryParams) (*auditlog.LogListResult, error) {
	m.gotParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &auditlog.LogListResult{Entries: m.entries, Total: len(m.entries), Limit: params.Limit, Offset: params.Offset}, nil
}

func (m *mockReader) GetLogByID(_ context.Context, id string) (*auditlog.LogEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.entries {
		if m.entries[i].ID == id {
			return &m.entries[i], nil
		}
	}
	return nil, nil
}

const validOrder = `{
	"address": {"street_address": "1600 Amphitheatre Parkway", "city": "Mountain View", "state": "CA", "country": "United States", "zip_code": "94043"},
	"items": [{"product_id": "OLJCESPC7Z", "quantity": 1}]
}`

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetQuote(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		quoteErr       error
		expectedStatus int
		expectedBody   string
		expectedItems  []int
	}{
		{
			name:           "default item count",
			target:         "/get-quote",
			expectedStatus: http.StatusOK,
			expectedBody:   "5.99",
			expectedItems:  []int{0},
		},
		{
			name:           "explicit item count",
			target:         "/get-quote?items=3",
			expectedStatus: http.StatusOK,
			expectedBody:   "5.99",
			expectedItems:  []int{3},
		},
		{
			name:           "negative item count",
			target:         "/get-quote?items=-1",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":{"type":"invalid_request_error","message":"items must be a non-negative integer"}}`,
		},
		{
			name:           "non-numeric item count",
			target:         "/get-quote?items=two",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":{"type":"invalid_request_error","message":"items must be a non-negative integer"}}`,
		},
		{
			name:           "upstream unavailable",
			target:         "/get-quote",
			quoteErr:       core.NewUpstreamUnavailableError("quote service unavailable", errors.New("connection refused")),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":{"type":"upstream_unavailable","message":"quote service unavailable"}}`,
			expectedItems:  []int{0},
		},
		{
			name:           "malformed upstream response",
			target:         "/get-quote",
			quoteErr:       core.NewMalformedResponseError("quote service returned an unparseable body", nil),
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"error":{"type":"malformed_response","message":"quote service returned an unparseable body"}}`,
			expectedItems:  []int{0},
		},
		{
			name:           "unexpected error",
			target:         "/get-quote",
			quoteErr:       errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":{"type":"internal_error","message":"an unexpected error occurred"}}`,
			expectedItems:  []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.quoteErr = tt.quoteErr
			handler := NewHandler(svc, nil)

			c, rec := newContext(http.MethodGet, tt.target, "")
			require.NoError(t, handler.GetQuote(c))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedBody, rec.Body.String())
				assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain))
			} else {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
			assert.Equal(t, tt.expectedItems, svc.gotItems)
		})
	}
}

func TestPostQuote(t *testing.T) {
	t.Run("sums quantities and returns money", func(t *testing.T) {
		svc := newMockService()
		handler := NewHandler(svc, nil)

		body := `{"address":{"zip_code":"94043"},"items":[{"product_id":"A","quantity":2},{"product_id":"B","quantity":3}]}`
		c, rec := newContext(http.MethodPost, "/get-quote", body)
		require.NoError(t, handler.PostQuote(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"cost_usd":{"currency_code":"USD","units":5,"nanos":990000000}}`, rec.Body.String())
		assert.Equal(t, []int{5}, svc.gotItems)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := newMockService()
		handler := NewHandler(svc, nil)

		c, rec := newContext(http.MethodPost, "/get-quote", `{"items":`)
		require.NoError(t, handler.PostQuote(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"invalid_request_error"`)
		assert.Empty(t, svc.gotItems)
	})

	t.Run("quantities past the maximum", func(t *testing.T) {
		svc := newMockService()
		handler := NewHandler(svc, nil)

		body := fmt.Sprintf(`{"items":[{"product_id":"A","quantity":%d},{"product_id":"B","quantity":%d}]}`,
			math.MaxInt64, math.MaxInt64)
		c, rec := newContext(http.MethodPost, "/get-quote", body)
		require.NoError(t, handler.PostQuote(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":{"type":"invalid_request_error","message":"total item quantity exceeds the maximum"}}`, rec.Body.String())
		assert.Empty(t, svc.gotItems)
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := newMockService()
		svc.quoteErr = core.NewUpstreamUnavailableError("quote service unavailable", nil)
		handler := NewHandler(svc, nil)

		c, rec := newContext(http.MethodPost, "/get-quote", `{"items":[]}`)
		require.NoError(t, handler.PostQuote(c))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestShipOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedType   string
	}{
		{name: "valid order", body: validOrder, expectedStatus: http.StatusOK},
		{name: "malformed json", body: `{"address":`, expectedStatus: http.StatusBadRequest, expectedType: "invalid_order_payload"},
		{name: "wrong field type", body: `{"items":"many"}`, expectedStatus: http.StatusBadRequest, expectedType: "invalid_order_payload"},
		{name: "missing items", body: `{"address":{"street_address":"1 Main","city":"X","country":"Y","zip_code":"1"}}`, expectedStatus: http.StatusBadRequest, expectedType: "invalid_order_payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			handler := NewHandler(svc, nil)

			c, rec := newContext(http.MethodPost, "/ship-order", tt.body)
			require.NoError(t, handler.ShipOrder(c))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"tracking_id":"6f1c1b9e-2a0e-4d1e-9a57-0d5b8f7c9e21"}`, rec.Body.String())
				require.NotNil(t, svc.gotOrder)
				assert.Equal(t, "94043", svc.gotOrder.Address.ZipCode)
				return
			}
			assert.Contains(t, rec.Body.String(), `"type":"`+tt.expectedType+`"`)
		})
	}
}

func TestHealth(t *testing.T) {
	handler := NewHandler(newMockService(), nil)

	c, rec := newContext(http.MethodGet, "/health", "")
	require.NoError(t, handler.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListAuditLogs(t *testing.T) {
	t.Run("audit disabled", func(t *testing.T) {
		handler := NewHandler(newMockService(), nil)

		c, rec := newContext(http.MethodGet, "/admin/audit-logs", "")
		require.NoError(t, handler.ListAuditLogs(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "audit logging is disabled")
	})

	t.Run("passes filters to reader", func(t *testing.T) {
		reader := &mockReader{entries: []auditlog.LogEntry{{ID: "a", Operation: auditlog.OperationShipOrder}}}
		handler := NewHandler(newMockService(), reader)

		c, rec := newContext(http.MethodGet,
			"/admin/audit-logs?operation=ship_order&error_type=upstream_unavailable&request_id=req-1"+
				"&tracking_id=trk&status_code=503&since=2024-01-01T00:00:00Z&until=2024-02-01T00:00:00Z&limit=10&offset=20", "")
		require.NoError(t, handler.ListAuditLogs(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total":1`)

		p := reader.gotParams
		assert.Equal(t, "ship_order", p.Operation)
		assert.Equal(t, "upstream_unavailable", p.ErrorType)
		assert.Equal(t, "req-1", p.RequestID)
		assert.Equal(t, "trk", p.TrackingID)
		require.NotNil(t, p.StatusCode)
		assert.Equal(t, 503, *p.StatusCode)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.Since.UTC())
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Until.UTC())
		assert.Equal(t, 10, p.Limit)
		assert.Equal(t, 20, p.Offset)
	})

	invalid := []string{
		"/admin/audit-logs?status_code=abc",
		"/admin/audit-logs?since=yesterday",
		"/admin/audit-logs?until=2024-13-01",
		"/admin/audit-logs?limit=-5",
		"/admin/audit-logs?offset=x",
	}
	for _, target := range invalid {
		t.Run("invalid "+target, func(t *testing.T) {
			handler := NewHandler(newMockService(), &mockReader{})

			c, rec := newContext(http.MethodGet, target, "")
			require.NoError(t, handler.ListAuditLogs(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("reader failure", func(t *testing.T) {
		handler := NewHandler(newMockService(), &mockReader{err: errors.New("db down")})

		c, rec := newContext(http.MethodGet, "/admin/audit-logs", "")
		require.NoError(t, handler.ListAuditLogs(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetAuditLog(t *testing.T) {
	reader := &mockReader{entries: []auditlog.LogEntry{{ID: "entry-1", Operation: auditlog.OperationGetQuote}}}
	handler := NewHandler(newMockService(), reader)

	get := func(id string) *httptest.ResponseRecorder {
		c, rec := newContext(http.MethodGet, "/admin/audit-logs/"+id, "")
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, handler.GetAuditLog(c))
		return rec
	}

	rec := get("entry-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"entry-1"`)

	rec = get("missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found_error")
}
