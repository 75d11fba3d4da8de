//go:build e2e

// Package e2e runs the shipping service on a real socket against a mock quote service.
package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shipping/config"
	"shipping/internal/app"
)

const (
	defaultPrice = "5.99"
	masterKey    = "e2e-master-key"
)

var (
	shippingURL string
	mockQuote   *MockQuoteServer
)

func TestMain(m *testing.M) {
	// 1. Start the mock quote service
	mockQuote = NewMockQuoteServer(defaultPrice)

	dataDir, err := os.MkdirTemp("", "shipping-e2e-")
	if err != nil {
		mockQuote.Close()
		fmt.Printf("Failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	// 2. Build the application with SQLite-backed audit logging
	cfg := config.Default()
	cfg.Quote.Address = mockQuote.URL()
	cfg.Quote.Timeout = config.Duration(2 * time.Second)
	cfg.Server.MasterKey = masterKey
	cfg.Audit.Enabled = true
	cfg.Audit.FlushInterval = config.Duration(100 * time.Millisecond)
	cfg.Storage.SQLite.Path = filepath.Join(dataDir, "audit.db")

	application, err := app.New(context.Background(), app.Config{AppConfig: cfg})
	if err != nil {
		mockQuote.Close()
		_ = os.RemoveAll(dataDir)
		fmt.Printf("Failed to create app: %v\n", err)
		os.Exit(1)
	}

	// 3. Start on a random port
	port, err := findAvailablePort()
	if err != nil {
		mockQuote.Close()
		fmt.Printf("Failed to find available port: %v\n", err)
		os.Exit(1)
	}
	shippingURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	go func() {
		if err := application.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	// 4. Wait for health
	if err := waitForHealth(shippingURL + "/health"); err != nil {
		mockQuote.Close()
		fmt.Printf("Server failed to start: %v\n", err)
		os.Exit(1)
	}

	// 5. Run tests
	code := m.Run()

	// 6. Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = application.Shutdown(shutdownCtx)
	cancel()
	mockQuote.Close()
	_ = os.RemoveAll(dataDir)

	os.Exit(code)
}

func findAvailablePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitForHealth(url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 30; i++ {
		resp, err := client.Get(url)
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
