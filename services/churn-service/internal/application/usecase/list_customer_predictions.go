package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListCustomerPredictions is the use case for a customer's prediction history.
type ListCustomerPredictions struct {
	repo port.PredictionRepository
}

// NewListCustomerPredictions creates a new ListCustomerPredictions use case.
func NewListCustomerPredictions(repo port.PredictionRepository) *ListCustomerPredictions {
	return &ListCustomerPredictions{repo: repo}
}

// Execute returns a page of predictions for customerID, newest first. A
// non-positive limit selects the default page size; limits are capped.
func (uc *ListCustomerPredictions) Execute(ctx context.Context, customerID string, limit, offset int) (dto.PredictionListResponse, error) {
	if customerID == "" {
		return dto.PredictionListResponse{}, fmt.Errorf("customer ID is required: %w", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	predictions, err := uc.repo.FindByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		return dto.PredictionListResponse{}, fmt.Errorf("failed to list predictions: %w", err)
	}

	out := dto.PredictionListResponse{
		Predictions: make([]dto.PredictionResponse, 0, len(predictions)),
		Limit:       limit,
		Offset:      offset,
	}
	for _, p := range predictions {
		out.Predictions = append(out.Predictions, dto.FromModel(p))
	}
	return out, nil
}
