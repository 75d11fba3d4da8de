package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, FormatJSON, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("quote served", "items", 3, "quote", "5.99")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "quote served", line["msg"])
	assert.Equal(t, "5.99", line["quote"])
	assert.EqualValues(t, 3, line["items"])
}

func TestNewHandler_AutoFallsBackToJSON(t *testing.T) {
	// A buffer is never a terminal.
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo)).Info("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatText, slog.LevelDebug)).Debug("ship order", "tracking_id", "abc")

	out := buf.String()
	assert.Contains(t, out, "ship order")
	assert.Contains(t, out, "tracking_id=abc")
	// Non-terminal writers get no ANSI escapes.
	assert.NotContains(t, out, "\x1b[")
}
