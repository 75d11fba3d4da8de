//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"shipping/internal/auditlog"
	"shipping/internal/core"
)

// API endpoints
const (
	getQuotePath  = "/get-quote"
	shipOrderPath = "/ship-order"
	auditLogsPath = "/admin/audit-logs"
	healthPath    = "/health"
)

// sendQuoteRequest sends GET /get-quote?items=n with the given request ID.
func sendQuoteRequest(t *testing.T, serverURL, items, requestID string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, serverURL+getQuotePath+"?items="+items, nil)
	require.NoError(t, err, "failed to create request")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// sendShipOrderWithHeaders sends a ship-order request with custom headers.
func sendShipOrderWithHeaders(t *testing.T, serverURL string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	return sendJSONRequest(t, serverURL+shipOrderPath, payload, headers)
}

// sendJSONRequest sends a JSON POST request and returns the response.
func sendJSONRequest(t *testing.T, url string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err, "failed to marshal request payload")

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err, "failed to create request")

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// listAuditLogs queries the admin audit log endpoint.
func listAuditLogs(t *testing.T, serverURL, query, masterKey string) (*auditlog.LogListResult, int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, serverURL+auditLogsPath+"?"+query, nil)
	require.NoError(t, err, "failed to create request")
	if masterKey != "" {
		req.Header.Set("Authorization", "Bearer "+masterKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}
	var result auditlog.LogListResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return &result, resp.StatusCode
}

// decodeConfirmation reads the tracking id from a ship-order response.
func decodeConfirmation(t *testing.T, resp *http.Response) core.ShipmentConfirmation {
	t.Helper()
	var out core.ShipmentConfirmation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// closeBody is a helper to close response body in defer statements.
func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

// newOrder creates a valid order with the given number of lines.
func newOrder(lines int) core.Order {
	order := core.Order{
		Address: core.Address{
			StreetAddress: "1600 Amphitheatre Parkway",
			City:          "Mountain View",
			State:         "CA",
			Country:       "United States",
			ZipCode:       "94043",
		},
	}
	for i := 0; i < lines; i++ {
		order.Items = append(order.Items, core.CartItem{ProductID: "OLJCESPC7Z", Quantity: i + 1})
	}
	return order
}
