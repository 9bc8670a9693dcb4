package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumBy(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst, err := NewInstruments(provider)
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordPrediction(ctx, "Churn", 2*time.Millisecond, []feature.UnseenCategory{
		{Column: "Contract", Value: "Decade"},
		{Column: "PaymentMethod", Value: "Barter"},
	})
	inst.RecordPrediction(ctx, "Not Churn", time.Millisecond, nil)
	inst.RecordPrediction(ctx, "Churn", time.Millisecond, []feature.UnseenCategory{{Column: "Contract", Value: "Forever"}})
	inst.RecordFailure(ctx, "missing_feature")

	metrics := collect(t, reader)

	assert.Equal(t, map[string]int64{"Churn": 2, "Not Churn": 1}, sumBy(t, metrics["churn.predictions"], "label"))
	assert.Equal(t, map[string]int64{"Contract": 2, "PaymentMethod": 1}, sumBy(t, metrics["churn.unseen_categories"], "column"))
	assert.Equal(t, map[string]int64{"missing_feature": 1}, sumBy(t, metrics["churn.prediction.failures"], "reason"))

	hist, ok := metrics["churn.prediction.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.004, hist.DataPoints[0].Sum, 1e-9)
}
