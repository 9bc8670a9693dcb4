package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bib/pkg/events"
)

const (
	// EventTypePredictionCompleted is emitted for every scored record.
	EventTypePredictionCompleted = "churn.prediction.completed"

	// EventTypeHighChurnRiskDetected is emitted when the churn probability
	// reaches the high-risk threshold.
	EventTypeHighChurnRiskDetected = "churn.high_risk.detected"

	// AggregateType names the aggregate these events belong to.
	AggregateType = "ChurnPrediction"
)

// PredictionCompleted is published when a churn prediction has been made.
type PredictionCompleted struct {
	events.BaseEvent `json:"-"`
	PredictionID     uuid.UUID `json:"prediction_id"`
	CustomerID       string    `json:"customer_id,omitempty"`
	Label            string    `json:"label"`
	Probability      float64   `json:"probability"`
	RiskBand         string    `json:"risk_band"`
	UnseenColumns    []string  `json:"unseen_columns,omitempty"`
	ModelVersion     string    `json:"model_version,omitempty"`
	PredictedAt      time.Time `json:"predicted_at"`
}

// NewPredictionCompleted builds the event and its JSON payload.
func NewPredictionCompleted(
	predictionID uuid.UUID,
	customerID, label string,
	probability float64,
	riskBand string,
	unseenColumns []string,
	modelVersion string,
	predictedAt time.Time,
) (PredictionCompleted, error) {
	e := PredictionCompleted{
		PredictionID:  predictionID,
		CustomerID:    customerID,
		Label:         label,
		Probability:   probability,
		RiskBand:      riskBand,
		UnseenColumns: unseenColumns,
		ModelVersion:  modelVersion,
		PredictedAt:   predictedAt.UTC(),
	}
	base, err := events.NewBaseEvent(EventTypePredictionCompleted, predictionID, AggregateType, predictedAt, e)
	if err != nil {
		return PredictionCompleted{}, err
	}
	e.BaseEvent = base
	return e, nil
}

// HighChurnRiskDetected is published when a customer is likely to churn,
// triggering retention workflows.
type HighChurnRiskDetected struct {
	events.BaseEvent `json:"-"`
	PredictionID     uuid.UUID `json:"prediction_id"`
	CustomerID       string    `json:"customer_id,omitempty"`
	Probability      float64   `json:"probability"`
	Threshold        float64   `json:"threshold"`
	DetectedAt       time.Time `json:"detected_at"`
}

// NewHighChurnRiskDetected builds the event and its JSON payload.
func NewHighChurnRiskDetected(
	predictionID uuid.UUID,
	customerID string,
	probability, threshold float64,
	detectedAt time.Time,
) (HighChurnRiskDetected, error) {
	e := HighChurnRiskDetected{
		PredictionID: predictionID,
		CustomerID:   customerID,
		Probability:  probability,
		Threshold:    threshold,
		DetectedAt:   detectedAt.UTC(),
	}
	base, err := events.NewBaseEvent(EventTypeHighChurnRiskDetected, predictionID, AggregateType, detectedAt, e)
	if err != nil {
		return HighChurnRiskDetected{}, err
	}
	e.BaseEvent = base
	return e, nil
}
