package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
)

// GetPrediction is the use case for retrieving a stored prediction.
type GetPrediction struct {
	repo port.PredictionRepository
}

// NewGetPrediction creates a new GetPrediction use case.
func NewGetPrediction(repo port.PredictionRepository) *GetPrediction {
	return &GetPrediction{repo: repo}
}

// Execute retrieves a prediction by ID.
func (uc *GetPrediction) Execute(ctx context.Context, id uuid.UUID) (dto.PredictionResponse, error) {
	if id == uuid.Nil {
		return dto.PredictionResponse{}, fmt.Errorf("prediction ID is required: %w", ErrInvalidInput)
	}
	prediction, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("failed to find prediction: %w", err)
	}
	return dto.FromModel(prediction), nil
}
