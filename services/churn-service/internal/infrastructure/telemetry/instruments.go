// Package telemetry records serving metrics for the churn service through
// the OpenTelemetry metric API.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
)

const meterName = "github.com/bibbank/bib/services/churn-service"

// Compile-time interface check
var _ port.PredictionMetrics = (*Instruments)(nil)

// Instruments holds the churn service's metric instruments.
type Instruments struct {
	predictions metric.Int64Counter
	latency     metric.Float64Histogram
	unseen      metric.Int64Counter
	failures    metric.Int64Counter
}

// NewInstruments creates the instruments on a meter from provider.
func NewInstruments(provider metric.MeterProvider) (*Instruments, error) {
	meter := provider.Meter(meterName)

	predictions, err := meter.Int64Counter("churn.predictions",
		metric.WithDescription("Scored records by predicted label."),
		metric.WithUnit("{prediction}"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: predictions counter: %w", err)
	}
	latency, err := meter.Float64Histogram("churn.prediction.duration",
		metric.WithDescription("Time spent scoring one record."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25))
	if err != nil {
		return nil, fmt.Errorf("telemetry: latency histogram: %w", err)
	}
	unseen, err := meter.Int64Counter("churn.unseen_categories",
		metric.WithDescription("Categorical values scored with the fallback code, by column."),
		metric.WithUnit("{value}"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: unseen counter: %w", err)
	}
	failures, err := meter.Int64Counter("churn.prediction.failures",
		metric.WithDescription("Requests that could not be scored, by reason."),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: failures counter: %w", err)
	}

	return &Instruments{
		predictions: predictions,
		latency:     latency,
		unseen:      unseen,
		failures:    failures,
	}, nil
}

// RecordPrediction records one successful score.
func (i *Instruments) RecordPrediction(ctx context.Context, label string, latency time.Duration, unseen []feature.UnseenCategory) {
	i.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
	i.latency.Record(ctx, latency.Seconds())
	for _, u := range unseen {
		i.unseen.Add(ctx, 1, metric.WithAttributes(attribute.String("column", u.Column)))
	}
}

// RecordFailure records a request that failed before a prediction was made.
func (i *Instruments) RecordFailure(ctx context.Context, reason string) {
	i.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
