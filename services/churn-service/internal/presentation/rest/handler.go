package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bibbank/bib/pkg/auth"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ChurnHandler serves the scoring and prediction history endpoints.
type ChurnHandler struct {
	predict         *usecase.PredictChurn
	getPrediction   *usecase.GetPrediction
	listPredictions *usecase.ListCustomerPredictions
	logger          *slog.Logger
	requireAuth     bool
}

// NewChurnHandler creates a new REST handler. When requireAuth is set the
// request context must carry claims with a permitted role.
func NewChurnHandler(
	predict *usecase.PredictChurn,
	getPrediction *usecase.GetPrediction,
	listPredictions *usecase.ListCustomerPredictions,
	logger *slog.Logger,
	requireAuth bool,
) *ChurnHandler {
	return &ChurnHandler{
		predict:         predict,
		getPrediction:   getPrediction,
		listPredictions: listPredictions,
		logger:          logger,
		requireAuth:     requireAuth,
	}
}

// RegisterRoutes registers the churn endpoints on the provided ServeMux.
func (h *ChurnHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("POST /api/v1/predictions", h.CreatePrediction)
	mux.HandleFunc("GET /api/v1/predictions/{id}", h.GetPrediction)
	mux.HandleFunc("GET /api/v1/customers/{customerID}/predictions", h.ListCustomerPredictions)
}

// Root reports that the API is up.
func (h *ChurnHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Customer Churn Prediction API is running."})
}

// Predict scores one customer and returns the label and churn probability.
func (h *ChurnHandler) Predict(w http.ResponseWriter, r *http.Request) {
	result, ok := h.score(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result.Summary())
}

// CreatePrediction scores one customer and returns the stored prediction.
func (h *ChurnHandler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	result, ok := h.score(w, r)
	if !ok {
		return
	}
	w.Header().Set("Location", "/api/v1/predictions/"+result.ID.String())
	writeJSON(w, http.StatusCreated, result)
}

func (h *ChurnHandler) score(w http.ResponseWriter, r *http.Request) (dto.PredictionResponse, bool) {
	if !h.authorize(w, r, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAPIClient) {
		return dto.PredictionResponse{}, false
	}

	var req dto.PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return dto.PredictionResponse{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return dto.PredictionResponse{}, false
	}

	result, err := h.predict.Execute(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, r, "failed to predict churn", err)
		return dto.PredictionResponse{}, false
	}
	return result, true
}

// GetPrediction returns a stored prediction by ID.
func (h *ChurnHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAuditor) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}

	result, err := h.getPrediction.Execute(r.Context(), id)
	if err != nil {
		h.writeUseCaseError(w, r, "failed to get prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListCustomerPredictions returns a page of a customer's predictions,
// newest first. Query parameters: limit, offset.
func (h *ChurnHandler) ListCustomerPredictions(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAuditor) {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	result, err := h.listPredictions.Execute(r.Context(), r.PathValue("customerID"), limit, offset)
	if err != nil {
		h.writeUseCaseError(w, r, "failed to list predictions", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ChurnHandler) authorize(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	if !h.requireAuth {
		return true
	}
	switch err := auth.Authorize(r.Context(), roles...); {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

// writeUseCaseError maps use case errors to HTTP status codes. Only client
// errors expose their message.
func (h *ChurnHandler) writeUseCaseError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, feature.ErrMissingFeature),
		errors.Is(err, feature.ErrInvalidFeature),
		errors.Is(err, usecase.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, port.ErrPredictionNotFound):
		writeError(w, http.StatusNotFound, "prediction not found")
	default:
		h.logger.ErrorContext(r.Context(), msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
