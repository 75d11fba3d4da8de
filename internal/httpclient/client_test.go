package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		wantTimeout time.Duration
		wantDial    time.Duration
	}{
		{"zero falls back to five seconds", 0, 5 * time.Second, 3 * time.Second},
		{"short timeout caps dial", time.Second, time.Second, time.Second},
		{"long timeout", 30 * time.Second, 30 * time.Second, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(tt.timeout)
			assert.Equal(t, tt.wantTimeout, cfg.Timeout)
			assert.Equal(t, tt.wantTimeout, cfg.ResponseHeaderTimeout)
			assert.Equal(t, tt.wantDial, cfg.DialTimeout)
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	cfg := DefaultConfig(2 * time.Second)
	client := NewHTTPClient(&cfg)

	assert.Equal(t, 2*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, transport.ResponseHeaderTimeout)
	assert.Equal(t, 32, transport.MaxIdleConnsPerHost)
}

func TestNewHTTPClient_NilConfig(t *testing.T) {
	client := NewHTTPClient(nil)
	assert.Equal(t, 5*time.Second, client.Timeout)
}
