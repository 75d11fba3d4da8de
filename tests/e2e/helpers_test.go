//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// API endpoints
const (
	quotePath      = "/get-quote"
	shipOrderPath  = "/ship-order"
	healthPath     = "/health"
	auditLogsPath  = "/admin/audit-logs"
	requestTimeout = 10 * time.Second
)

var client = &http.Client{Timeout: requestTimeout}

// newRequest builds an authenticated request against the running service.
func newRequest(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, shippingURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+masterKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// get sends an authenticated GET and returns the status and body.
func get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	return do(t, newRequest(t, http.MethodGet, path, nil))
}

// postJSON sends an authenticated JSON POST and returns the status and body.
func postJSON(t *testing.T, path string, payload interface{}) (int, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return do(t, newRequest(t, http.MethodPost, path, bytes.NewReader(body)))
}

func do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

// postJSONNoT is for goroutines, where require must not be called.
func postJSONNoT(path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, shippingURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+masterKey)
	return client.Do(req)
}

// closeBody is a helper to close response body in defer statements.
func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func validOrder() map[string]interface{} {
	return map[string]interface{}{
		"address": map[string]string{
			"street_address": "1600 Amphitheatre Parkway",
			"city":           "Mountain View",
			"state":          "CA",
			"country":        "United States",
			"zip_code":       "94043",
		},
		"items": []map[string]interface{}{
			{"product_id": "OLJCESPC7Z", "quantity": 1},
			{"product_id": "66VCHSJNUP", "quantity": 2},
		},
	}
}

// errorType extracts error.type from an error envelope.
func errorType(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope), string(body))
	return envelope.Error.Type
}
