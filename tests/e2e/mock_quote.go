//go:build e2e

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockQuoteServer simulates the quote service: POST /getquote answers with a fixed price.
type MockQuoteServer struct {
	server *httptest.Server

	mu         sync.Mutex
	price      string
	failStatus int
	requests   []QuoteRequest
}

// QuoteRequest is one call received by the mock.
type QuoteRequest struct {
	NumberOfItems int
	RequestID     string
	ContentType   string
}

// NewMockQuoteServer starts a mock that answers every quote with price.
func NewMockQuoteServer(price string) *MockQuoteServer {
	m := &MockQuoteServer{price: price}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockQuoteServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/getquote" {
		http.NotFound(w, r)
		return
	}

	var body struct {
		NumberOfItems int `json:"numberOfItems"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)

	m.mu.Lock()
	m.requests = append(m.requests, QuoteRequest{
		NumberOfItems: body.NumberOfItems,
		RequestID:     r.Header.Get("X-Request-ID"),
		ContentType:   r.Header.Get("Content-Type"),
	})
	price, failStatus := m.price, m.failStatus
	m.mu.Unlock()

	if failStatus != 0 {
		w.WriteHeader(failStatus)
		_, _ = io.WriteString(w, "quote service failure")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, price)
}

// URL returns the base URL of the mock.
func (m *MockQuoteServer) URL() string {
	return m.server.URL
}

// SetPrice changes the body returned for every quote.
func (m *MockQuoteServer) SetPrice(price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = price
}

// FailWith makes every quote answer with status; 0 restores normal behavior.
func (m *MockQuoteServer) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// Requests returns a copy of the calls received so far.
func (m *MockQuoteServer) Requests() []QuoteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QuoteRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears recorded calls and restores the default price.
func (m *MockQuoteServer) Reset(price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.price = price
	m.failStatus = 0
}

// Close shuts the mock down.
func (m *MockQuoteServer) Close() {
	m.server.Close()
}
