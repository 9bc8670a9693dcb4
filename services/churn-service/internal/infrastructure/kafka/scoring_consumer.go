package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	pkgkafka "github.com/bibbank/bib/pkg/kafka"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// PredictExecutor runs the PredictChurn use case.
type PredictExecutor interface {
	Execute(ctx context.Context, req dto.PredictRequest) (dto.PredictionResponse, error)
}

// ScoringHandler turns scoring requests consumed from Kafka into predictions.
// Requests the model can never score (bad JSON, missing or invalid features)
// are logged and acknowledged; other failures are returned so the consumer
// retries the same message and commits nothing past it.
type ScoringHandler struct {
	predict PredictExecutor
	logger  *slog.Logger
}

// NewScoringHandler creates a handler for pkgkafka.Consumer.
func NewScoringHandler(predict PredictExecutor, logger *slog.Logger) *ScoringHandler {
	return &ScoringHandler{predict: predict, logger: logger}
}

// Handle implements pkgkafka.Handler.
func (h *ScoringHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	var req dto.PredictRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.WarnContext(ctx, "discarding malformed scoring request",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	resp, err := h.predict.Execute(ctx, req)
	if err != nil {
		if isClientError(err) {
			h.logger.WarnContext(ctx, "discarding unscorable request",
				"customer_id", req.CustomerID,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("failed to score request for customer %q: %w", req.CustomerID, err)
	}

	h.logger.InfoContext(ctx, "scored request",
		"prediction_id", resp.ID.String(),
		"customer_id", resp.CustomerID,
		"prediction", resp.Prediction,
		"probability", resp.Probability,
	)
	return nil
}

func isClientError(err error) bool {
	return errors.Is(err, feature.ErrMissingFeature) ||
		errors.Is(err, feature.ErrInvalidFeature) ||
		errors.Is(err, usecase.ErrInvalidInput)
}
