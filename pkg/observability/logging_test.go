package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"xyzzy", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestInitLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	logger.Debug("dropped")
	logger.Info("scored", "label", "Churn")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scored", entry["msg"])
	assert.Equal(t, "Churn", entry["label"])
	assert.Equal(t, logger.Handler(), slog.Default().Handler())
}

func TestInitLogger_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "column", "Contract")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=kept")
	assert.Contains(t, out, "column=Contract")
}

func TestInitMetrics(t *testing.T) {
	provider, handler, err := InitMetrics(MetricsConfig{ServiceName: "churn-service"})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	counter, err := provider.Meter("test").Int64Counter("churn_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "churn_test_total")
	assert.Contains(t, string(body), "go_goroutines")

	// A second provider gets its own registry.
	second, _, err := InitMetrics(MetricsConfig{ServiceName: "churn-service"})
	require.NoError(t, err)
	second.Shutdown(context.Background())

	_, _, err = InitMetrics(MetricsConfig{})
	assert.Error(t, err)
}

func TestInitTracer(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{ServiceName: "churn-service"})
	assert.ErrorIs(t, err, ErrNoTracingEndpoint)

	shutdown, err := InitTracer(context.Background(), TracingConfig{
		ServiceName: "churn-service",
		Endpoint:    "localhost:4317",
		Insecure:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	_ = shutdown(context.Background())
}
