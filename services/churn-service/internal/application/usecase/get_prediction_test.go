package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
)

func storedPrediction(customerID string, at time.Time) *model.ChurnPrediction {
	return model.Reconstruct(uuid.New(), customerID, valueobject.LabelChurn, 0.75, valueobject.RiskBandHigh,
		nil, decimal.NewFromFloat(70.7), decimal.NewFromFloat(151.65), "v1", at)
}

func TestGetPrediction_Execute(t *testing.T) {
	repo := &mockPredictionRepository{}
	p := storedPrediction("c-1", time.Now().UTC())
	require.NoError(t, repo.Save(context.Background(), p))
	uc := usecase.NewGetPrediction(repo)

	t.Run("found", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), p.ID())
		require.NoError(t, err)
		assert.Equal(t, p.ID(), resp.ID)
		assert.Equal(t, "Churn", resp.Prediction)
		assert.Equal(t, "70.7", resp.MonthlyCharges)
		assert.Equal(t, []string{}, resp.UnseenColumns)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, port.ErrPredictionNotFound)
	})

	t.Run("nil id", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), uuid.Nil)
		assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	})
}

func TestListCustomerPredictions_Execute(t *testing.T) {
	repo := &mockPredictionRepository{}
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		p := storedPrediction("c-1", base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, p.ID())
		require.NoError(t, repo.Save(context.Background(), p))
	}
	require.NoError(t, repo.Save(context.Background(), storedPrediction("c-2", base)))
	uc := usecase.NewListCustomerPredictions(repo)

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantIDs   []uuid.UUID
		wantLimit int
	}{
		{name: "default limit newest first", limit: 0, offset: 0, wantIDs: []uuid.UUID{ids[2], ids[1], ids[0]}, wantLimit: 20},
		{name: "paged", limit: 1, offset: 1, wantIDs: []uuid.UUID{ids[1]}, wantLimit: 1},
		{name: "capped limit", limit: 1000, offset: 0, wantIDs: []uuid.UUID{ids[2], ids[1], ids[0]}, wantLimit: 100},
		{name: "past the end", limit: 5, offset: 10, wantIDs: nil, wantLimit: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := uc.Execute(context.Background(), "c-1", tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			var got []uuid.UUID
			for _, p := range resp.Predictions {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
			assert.NotNil(t, resp.Predictions)
		})
	}

	t.Run("customer id required", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), "", 10, 0)
		assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	})
}
