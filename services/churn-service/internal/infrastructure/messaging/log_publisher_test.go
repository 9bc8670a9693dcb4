package messaging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/services/churn-service/internal/domain/event"
)

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	e, err := event.NewPredictionCompleted(uuid.New(), "c-1", "Churn", 0.8, "HIGH", nil, "v1", time.Now())
	require.NoError(t, err)

	require.NoError(t, NewLogPublisher(logger).Publish(context.Background(), e))
	out := buf.String()
	assert.Contains(t, out, `"event_type":"churn.prediction.completed"`)
	assert.Contains(t, out, e.AggregateID().String())
	assert.Contains(t, out, "event payload")
}
