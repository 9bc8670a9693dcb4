package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/bib/pkg/events"
	"github.com/bibbank/bib/services/churn-service/internal/domain/event"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
)

// ChurnPrediction is the aggregate root for an audited churn prediction.
type ChurnPrediction struct {
	events.EventCollector

	createdAt      time.Time
	monthlyCharges decimal.Decimal
	totalCharges   decimal.Decimal
	label          valueobject.ChurnLabel
	riskBand       valueobject.RiskBand
	customerID     string
	modelVersion   string
	unseenColumns  []string
	probability    float64
	id             uuid.UUID
}

// NewChurnPrediction records the outcome of scoring one customer. It emits
// PredictionCompleted and, when probability reaches highRiskThreshold,
// HighChurnRiskDetected.
func NewChurnPrediction(
	customerID string,
	label valueobject.ChurnLabel,
	probability float64,
	unseenColumns []string,
	monthlyCharges, totalCharges decimal.Decimal,
	modelVersion string,
	highRiskThreshold float64,
) (*ChurnPrediction, error) {
	if label.IsZero() {
		return nil, fmt.Errorf("label is required")
	}
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("probability must be between 0 and 1, got %v", probability)
	}
	if highRiskThreshold <= 0 || highRiskThreshold > 1 {
		return nil, fmt.Errorf("high risk threshold must be in (0, 1], got %v", highRiskThreshold)
	}

	p := &ChurnPrediction{
		id:             uuid.New(),
		customerID:     customerID,
		label:          label,
		probability:    probability,
		riskBand:       valueobject.RiskBandFromProbability(probability, highRiskThreshold),
		unseenColumns:  unseenColumns,
		monthlyCharges: monthlyCharges,
		totalCharges:   totalCharges,
		modelVersion:   modelVersion,
		createdAt:      time.Now().UTC(),
	}

	completed, err := event.NewPredictionCompleted(
		p.id, p.customerID, p.label.String(), p.probability,
		p.riskBand.String(), p.unseenColumns, p.modelVersion, p.createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.Record(completed)

	if p.riskBand.Equal(valueobject.RiskBandHigh) {
		detected, err := event.NewHighChurnRiskDetected(p.id, p.customerID, p.probability, highRiskThreshold, p.createdAt)
		if err != nil {
			return nil, err
		}
		p.Record(detected)
	}

	return p, nil
}

// Reconstruct rebuilds a ChurnPrediction from persisted data (no validation, no events).
func Reconstruct(
	id uuid.UUID,
	customerID string,
	label valueobject.ChurnLabel,
	probability float64,
	riskBand valueobject.RiskBand,
	unseenColumns []string,
	monthlyCharges, totalCharges decimal.Decimal,
	modelVersion string,
	createdAt time.Time,
) *ChurnPrediction {
	return &ChurnPrediction{
		id:             id,
		customerID:     customerID,
		label:          label,
		probability:    probability,
		riskBand:       riskBand,
		unseenColumns:  unseenColumns,
		monthlyCharges: monthlyCharges,
		totalCharges:   totalCharges,
		modelVersion:   modelVersion,
		createdAt:      createdAt,
	}
}

// --- Accessors ---

func (p *ChurnPrediction) ID() uuid.UUID                   { return p.id }
func (p *ChurnPrediction) CustomerID() string              { return p.customerID }
func (p *ChurnPrediction) Label() valueobject.ChurnLabel   { return p.label }
func (p *ChurnPrediction) Probability() float64            { return p.probability }
func (p *ChurnPrediction) RiskBand() valueobject.RiskBand  { return p.riskBand }
func (p *ChurnPrediction) MonthlyCharges() decimal.Decimal { return p.monthlyCharges }
func (p *ChurnPrediction) TotalCharges() decimal.Decimal   { return p.totalCharges }
func (p *ChurnPrediction) ModelVersion() string            { return p.modelVersion }
func (p *ChurnPrediction) CreatedAt() time.Time            { return p.createdAt }

// UnseenColumns lists the categorical columns that fell back to the default
// code when this prediction was scored.
func (p *ChurnPrediction) UnseenColumns() []string {
	out := make([]string, len(p.unseenColumns))
	copy(out, p.unseenColumns)
	return out
}
