package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/bib/pkg/auth"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
)

// Compile-time assertion that ChurnServiceHandler implements ChurnServiceServer.
var _ ChurnServiceServer = (*ChurnServiceHandler)(nil)

// ChurnServiceHandler implements the gRPC ChurnServiceServer interface.
type ChurnServiceHandler struct {
	UnimplementedChurnServiceServer
	predict         *usecase.PredictChurn
	getPrediction   *usecase.GetPrediction
	listPredictions *usecase.ListCustomerPredictions
	logger          *slog.Logger
	requireAuth     bool
}

// NewChurnServiceHandler creates a new gRPC handler. When requireAuth is set
// every call must carry claims with a permitted role.
func NewChurnServiceHandler(
	predict *usecase.PredictChurn,
	getPrediction *usecase.GetPrediction,
	listPredictions *usecase.ListCustomerPredictions,
	logger *slog.Logger,
	requireAuth bool,
) *ChurnServiceHandler {
	return &ChurnServiceHandler{
		predict:         predict,
		getPrediction:   getPrediction,
		listPredictions: listPredictions,
		logger:          logger,
		requireAuth:     requireAuth,
	}
}

// Proto-aligned request/response message types.

// PredictRequest carries the customer attributes to score.
type PredictRequest struct {
	dto.PredictRequest
}

// PredictResponse is the scoring result.
type PredictResponse struct {
	Prediction *PredictionMsg `json:"prediction"`
}

// PredictionMsg represents a stored prediction.
type PredictionMsg struct {
	ID             string   `json:"id"`
	CustomerID     string   `json:"customer_id,omitempty"`
	Label          string   `json:"label"`
	Probability    float64  `json:"probability"`
	RiskBand       string   `json:"risk_band"`
	UnseenColumns  []string `json:"unseen_columns"`
	MonthlyCharges string   `json:"monthly_charges"`
	TotalCharges   string   `json:"total_charges"`
	ModelVersion   string   `json:"model_version,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// GetPredictionRequest identifies a stored prediction.
type GetPredictionRequest struct {
	ID string `json:"id"`
}

// GetPredictionResponse wraps the stored prediction.
type GetPredictionResponse struct {
	Prediction *PredictionMsg `json:"prediction"`
}

// ListCustomerPredictionsRequest pages through a customer's predictions.
type ListCustomerPredictionsRequest struct {
	CustomerID string `json:"customer_id"`
	PageSize   int32  `json:"page_size"`
	Offset     int32  `json:"offset"`
}

// ListCustomerPredictionsResponse is one page, newest first.
type ListCustomerPredictionsResponse struct {
	Predictions []*PredictionMsg `json:"predictions"`
	PageSize    int32            `json:"page_size"`
	Offset      int32            `json:"offset"`
}

// Predict scores one customer.
func (h *ChurnServiceHandler) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if err := h.requireRole(ctx, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAPIClient); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.predict.Execute(ctx, req.PredictRequest)
	if err != nil {
		return nil, h.toStatus(ctx, "failed to predict churn", err)
	}
	return &PredictResponse{Prediction: toPredictionMsg(result)}, nil
}

// GetPrediction returns a stored prediction.
func (h *ChurnServiceHandler) GetPrediction(ctx context.Context, req *GetPredictionRequest) (*GetPredictionResponse, error) {
	if err := h.requireRole(ctx, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAuditor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id: %v", err)
	}

	result, err := h.getPrediction.Execute(ctx, id)
	if err != nil {
		return nil, h.toStatus(ctx, "failed to get prediction", err)
	}
	return &GetPredictionResponse{Prediction: toPredictionMsg(result)}, nil
}

// ListCustomerPredictions returns a page of a customer's prediction history.
func (h *ChurnServiceHandler) ListCustomerPredictions(ctx context.Context, req *ListCustomerPredictionsRequest) (*ListCustomerPredictionsResponse, error) {
	if err := h.requireRole(ctx, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAuditor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.listPredictions.Execute(ctx, req.CustomerID, int(req.PageSize), int(req.Offset))
	if err != nil {
		return nil, h.toStatus(ctx, "failed to list predictions", err)
	}

	resp := &ListCustomerPredictionsResponse{
		Predictions: make([]*PredictionMsg, 0, len(result.Predictions)),
		PageSize:    int32(result.Limit),
		Offset:      int32(result.Offset),
	}
	for _, p := range result.Predictions {
		resp.Predictions = append(resp.Predictions, toPredictionMsg(p))
	}
	return resp, nil
}

func (h *ChurnServiceHandler) requireRole(ctx context.Context, roles ...string) error {
	if !h.requireAuth {
		return nil
	}
	switch err := auth.Authorize(ctx, roles...); {
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return nil
}

// toStatus maps use case errors to gRPC status codes. Only client errors
// expose their message.
func (h *ChurnServiceHandler) toStatus(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, feature.ErrMissingFeature),
		errors.Is(err, feature.ErrInvalidFeature),
		errors.Is(err, usecase.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, port.ErrPredictionNotFound):
		return status.Error(codes.NotFound, "prediction not found")
	}
	h.logger.ErrorContext(ctx, msg, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func toPredictionMsg(p dto.PredictionResponse) *PredictionMsg {
	return &PredictionMsg{
		ID:             p.ID.String(),
		CustomerID:     p.CustomerID,
		Label:          p.Prediction,
		Probability:    p.Probability,
		RiskBand:       p.RiskBand,
		UnseenColumns:  p.UnseenColumns,
		MonthlyCharges: p.MonthlyCharges,
		TotalCharges:   p.TotalCharges,
		ModelVersion:   p.ModelVersion,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339Nano),
	}
}
