package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipping/internal/pact"
)

const healthPact = `{
  "consumer": {"name": "Frontend"},
  "provider": {"name": "ShippingService"},
  "interactions": [{
    "description": "a health check",
    "request": {"method": "GET", "path": "/health"},
    "response": {"status": 200, "body": {"status": "ok"}}
  }],
  "metadata": {"pactSpecification": {"version": "3.0.0"}}
}`

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"-provider-base-url=http://shipping:8080",
		"-pact=a.json", "-pact=pacts/",
		"-header=Authorization=Bearer k=v",
		"-header", "X-Trace=1",
		"-timeout=2s",
		"-fail-fast",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "http://shipping:8080", opts.baseURL)
	assert.Equal(t, []string{"a.json", "pacts/"}, opts.pacts)
	assert.Equal(t, map[string]string{"Authorization": "Bearer k=v", "X-Trace": "1"}, opts.headers)
	assert.Equal(t, 2*time.Second, opts.timeout)
	assert.True(t, opts.failFast)
	assert.False(t, opts.allowEmpty)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags(nil, io.Discard)
	assert.Error(t, err, "a pact source is required")

	_, err = parseFlags([]string{"-pact=a.json", "-header=novalue"}, io.Discard)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "health.json"), []byte(healthPact), 0o644))

	healthy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	broken := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	opts := &options{
		baseURL: "http://provider.test",
		pacts:   []string{dir},
		headers: map[string]string{"Authorization": "Bearer secret"},
	}

	passed, err := run(context.Background(), opts, &http.Client{Transport: pact.HandlerTransport(healthy)})
	require.NoError(t, err)
	assert.True(t, passed)

	passed, err = run(context.Background(), opts, &http.Client{Transport: pact.HandlerTransport(broken)})
	require.NoError(t, err)
	assert.False(t, passed)
}

func TestRun_EmptyDirectory(t *testing.T) {
	opts := &options{baseURL: "http://provider.test", pacts: []string{t.TempDir()}}

	_, err := run(context.Background(), opts, http.DefaultClient)
	assert.ErrorIs(t, err, pact.ErrNoPacts)

	opts.allowEmpty = true
	passed, err := run(context.Background(), opts, http.DefaultClient)
	require.NoError(t, err)
	assert.True(t, passed)
}
