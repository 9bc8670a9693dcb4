package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
)

const tracerName = "github.com/bibbank/bib/services/churn-service/internal/application/usecase"

// Failure reasons reported to PredictionMetrics.
const (
	ReasonMissingFeature = "missing_feature"
	ReasonInvalidFeature = "invalid_feature"
	ReasonInternal       = "internal"
)

// PredictChurn is the use case for scoring a customer and auditing the result.
type PredictChurn struct {
	repo              port.PredictionRepository
	publisher         port.EventPublisher
	scorer            port.Scorer
	metrics           port.PredictionMetrics
	tracer            trace.Tracer
	highRiskThreshold float64
}

// NewPredictChurn creates a new PredictChurn use case. A nil metrics sink
// disables metric recording.
func NewPredictChurn(
	repo port.PredictionRepository,
	publisher port.EventPublisher,
	scorer port.Scorer,
	metrics port.PredictionMetrics,
	highRiskThreshold float64,
) *PredictChurn {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &PredictChurn{
		repo:              repo,
		publisher:         publisher,
		scorer:            scorer,
		metrics:           metrics,
		tracer:            otel.Tracer(tracerName),
		highRiskThreshold: highRiskThreshold,
	}
}

// Execute scores the request, creates the prediction aggregate, persists it
// and publishes its events.
func (uc *PredictChurn) Execute(ctx context.Context, req dto.PredictRequest) (dto.PredictionResponse, error) {
	ctx, span := uc.tracer.Start(ctx, "PredictChurn.Execute")
	defer span.End()

	// 1. Score the record.
	start := time.Now()
	decision, err := uc.scorer.PredictOne(req.Record())
	if err != nil {
		uc.metrics.RecordFailure(ctx, FailureReason(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return dto.PredictionResponse{}, fmt.Errorf("failed to score record: %w", err)
	}
	latency := time.Since(start)

	label, err := valueobject.ChurnLabelFromString(decision.Label)
	if err != nil {
		uc.metrics.RecordFailure(ctx, ReasonInternal)
		return dto.PredictionResponse{}, fmt.Errorf("failed to read decision: %w", err)
	}

	// 2. Create the prediction aggregate.
	monthly, total := req.Charges()
	prediction, err := model.NewChurnPrediction(
		req.CustomerID,
		label,
		decision.Probability,
		unseenColumns(decision.Unseen),
		monthly,
		total,
		uc.scorer.Version(),
		uc.highRiskThreshold,
	)
	if err != nil {
		uc.metrics.RecordFailure(ctx, ReasonInternal)
		return dto.PredictionResponse{}, fmt.Errorf("failed to create prediction: %w", err)
	}
	span.SetAttributes(
		attribute.String("churn.prediction_id", prediction.ID().String()),
		attribute.String("churn.label", label.String()),
		attribute.Float64("churn.probability", prediction.Probability()),
		attribute.Int("churn.unseen_count", len(decision.Unseen)),
	)

	// 3. Persist the prediction.
	if err := uc.repo.Save(ctx, prediction); err != nil {
		uc.metrics.RecordFailure(ctx, ReasonInternal)
		span.RecordError(err)
		return dto.PredictionResponse{}, fmt.Errorf("failed to save prediction: %w", err)
	}

	// 4. Publish domain events.
	if evts := prediction.DomainEvents(); len(evts) > 0 {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			span.RecordError(err)
			return dto.PredictionResponse{}, fmt.Errorf("failed to publish events: %w", err)
		}
	}

	uc.metrics.RecordPrediction(ctx, label.String(), latency, decision.Unseen)
	return dto.FromModel(prediction), nil
}

// FailureReason classifies a scoring error for metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, feature.ErrMissingFeature):
		return ReasonMissingFeature
	case errors.Is(err, feature.ErrInvalidFeature):
		return ReasonInvalidFeature
	default:
		return ReasonInternal
	}
}

func unseenColumns(unseen []feature.UnseenCategory) []string {
	if len(unseen) == 0 {
		return nil
	}
	cols := make([]string, len(unseen))
	for i, u := range unseen {
		cols[i] = u.Column
	}
	return cols
}

type nopMetrics struct{}

func (nopMetrics) RecordPrediction(context.Context, string, time.Duration, []feature.UnseenCategory) {}
func (nopMetrics) RecordFailure(context.Context, string)                                            {}
