package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/pkg/events"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/event"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
)

func ptr[T any](v T) *T { return &v }

func validPredictRequest() dto.PredictRequest {
	return dto.PredictRequest{
		CustomerID:       "7590-VHVEG",
		Gender:           ptr("Female"),
		SeniorCitizen:    ptr(0),
		Partner:          ptr("Yes"),
		Dependents:       ptr("No"),
		Tenure:           ptr(1),
		PhoneService:     ptr("No"),
		MultipleLines:    ptr("No phone service"),
		InternetService:  ptr("DSL"),
		OnlineSecurity:   ptr("No"),
		OnlineBackup:     ptr("Yes"),
		DeviceProtection: ptr("No"),
		TechSupport:      ptr("No"),
		StreamingTV:      ptr("No"),
		StreamingMovies:  ptr("No"),
		Contract:         ptr("Month-to-month"),
		PaperlessBilling: ptr("Yes"),
		PaymentMethod:    ptr("Electronic check"),
		MonthlyCharges:   ptr(29.85),
		TotalCharges:     ptr(29.85),
	}
}

func TestPredictRequest_Record(t *testing.T) {
	req := validPredictRequest()
	rec := req.Record()
	assert.Len(t, rec, len(feature.ChurnSchema.Names()))
	assert.NotContains(t, rec, feature.ColCustomerID)

	tenure, ok := rec[feature.ColTenure].Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, tenure)
	assert.Equal(t, "Month-to-month", rec[feature.ColContract].String())

	req.Tenure = nil
	assert.NotContains(t, req.Record(), feature.ColTenure)
}

func TestPredictChurn_Execute(t *testing.T) {
	t.Run("scores, saves and publishes a low-risk prediction", func(t *testing.T) {
		repo := &mockPredictionRepository{}
		publisher := &mockEventPublisher{}
		scorer := &mockScorer{decision: service.Decision{Label: service.LabelNotChurn, Probability: 0.12}}
		metrics := &mockMetrics{}

		uc := usecase.NewPredictChurn(repo, publisher, scorer, metrics, 0.7)
		resp, err := uc.Execute(context.Background(), validPredictRequest())

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, resp.ID)
		assert.Equal(t, "Not Churn", resp.Prediction)
		assert.Equal(t, 0.12, resp.Probability)
		assert.Equal(t, "LOW", resp.RiskBand)
		assert.Equal(t, "29.85", resp.MonthlyCharges)
		assert.Equal(t, "test-model", resp.ModelVersion)
		assert.Equal(t, dto.PredictResponse{Prediction: "Not Churn", Probability: 0.12}, resp.Summary())

		require.Len(t, repo.saved, 1)
		require.Len(t, publisher.published, 1)
		assert.Equal(t, event.EventTypePredictionCompleted, publisher.published[0].EventType())
		assert.Equal(t, []string{"Not Churn"}, metrics.labels)
		assert.Empty(t, metrics.failures)
	})

	t.Run("high-risk prediction publishes both events", func(t *testing.T) {
		publisher := &mockEventPublisher{}
		scorer := &mockScorer{decision: service.Decision{Label: service.LabelChurn, Probability: 0.91}}

		uc := usecase.NewPredictChurn(&mockPredictionRepository{}, publisher, scorer, nil, 0.7)
		resp, err := uc.Execute(context.Background(), validPredictRequest())

		require.NoError(t, err)
		assert.Equal(t, "HIGH", resp.RiskBand)
		var types []string
		for _, e := range publisher.published {
			types = append(types, e.EventType())
		}
		assert.Equal(t, []string{event.EventTypePredictionCompleted, event.EventTypeHighChurnRiskDetected}, types)
	})

	t.Run("unseen categories are recorded", func(t *testing.T) {
		unseen := []feature.UnseenCategory{{Column: "Contract", Value: "Decade"}}
		scorer := &mockScorer{decision: service.Decision{Label: service.LabelNotChurn, Probability: 0.3, Unseen: unseen}}
		metrics := &mockMetrics{}

		uc := usecase.NewPredictChurn(&mockPredictionRepository{}, &mockEventPublisher{}, scorer, metrics, 0.7)
		resp, err := uc.Execute(context.Background(), validPredictRequest())

		require.NoError(t, err)
		assert.Equal(t, []string{"Contract"}, resp.UnseenColumns)
		assert.Equal(t, unseen, metrics.unseen)
	})

	t.Run("missing feature is surfaced and counted", func(t *testing.T) {
		repo := &mockPredictionRepository{}
		scorer := &mockScorer{err: &feature.MissingFeatureError{Column: "tenure"}}
		metrics := &mockMetrics{}

		uc := usecase.NewPredictChurn(repo, &mockEventPublisher{}, scorer, metrics, 0.7)
		_, err := uc.Execute(context.Background(), validPredictRequest())

		require.Error(t, err)
		assert.ErrorIs(t, err, feature.ErrMissingFeature)
		assert.Contains(t, err.Error(), "failed to score record")
		assert.Equal(t, []string{usecase.ReasonMissingFeature}, metrics.failures)
		assert.Empty(t, repo.saved)
	})

	t.Run("fails when repository save fails", func(t *testing.T) {
		repo := &mockPredictionRepository{
			saveFunc: func(context.Context, *model.ChurnPrediction) error {
				return fmt.Errorf("database unavailable")
			},
		}
		publisher := &mockEventPublisher{}
		scorer := &mockScorer{decision: service.Decision{Label: service.LabelChurn, Probability: 0.8}}

		uc := usecase.NewPredictChurn(repo, publisher, scorer, nil, 0.7)
		_, err := uc.Execute(context.Background(), validPredictRequest())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save prediction")
		assert.Empty(t, publisher.published)
	})

	t.Run("fails when publishing fails", func(t *testing.T) {
		publisher := &mockEventPublisher{
			publishFunc: func(context.Context, ...events.DomainEvent) error {
				return errors.New("broker down")
			},
		}
		scorer := &mockScorer{decision: service.Decision{Label: service.LabelChurn, Probability: 0.8}}

		uc := usecase.NewPredictChurn(&mockPredictionRepository{}, publisher, scorer, nil, 0.7)
		_, err := uc.Execute(context.Background(), validPredictRequest())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish events")
	})
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, usecase.ReasonMissingFeature, usecase.FailureReason(&feature.MissingFeatureError{Column: "x"}))
	assert.Equal(t, usecase.ReasonInvalidFeature, usecase.FailureReason(&feature.InvalidFeatureError{Column: "x", Value: "abc"}))
	assert.Equal(t, usecase.ReasonInternal, usecase.FailureReason(errors.New("boom")))
}
