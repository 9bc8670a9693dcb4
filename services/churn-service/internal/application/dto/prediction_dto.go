package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
)

// PredictRequest is the input DTO for the PredictChurn use case. Every field
// is a pointer so that an omitted field stays absent in the record and is
// reported as missing instead of silently defaulting to zero.
type PredictRequest struct {
	CustomerID       string   `json:"customerID,omitempty"`
	Gender           *string  `json:"gender"`
	SeniorCitizen    *int     `json:"SeniorCitizen"`
	Partner          *string  `json:"Partner"`
	Dependents       *string  `json:"Dependents"`
	Tenure           *int     `json:"tenure"`
	PhoneService     *string  `json:"PhoneService"`
	MultipleLines    *string  `json:"MultipleLines"`
	InternetService  *string  `json:"InternetService"`
	OnlineSecurity   *string  `json:"OnlineSecurity"`
	OnlineBackup     *string  `json:"OnlineBackup"`
	DeviceProtection *string  `json:"DeviceProtection"`
	TechSupport      *string  `json:"TechSupport"`
	StreamingTV      *string  `json:"StreamingTV"`
	StreamingMovies  *string  `json:"StreamingMovies"`
	Contract         *string  `json:"Contract"`
	PaperlessBilling *string  `json:"PaperlessBilling"`
	PaymentMethod    *string  `json:"PaymentMethod"`
	MonthlyCharges   *float64 `json:"MonthlyCharges"`
	TotalCharges     *float64 `json:"TotalCharges"`
}

// Record converts the request into a feature record. Nil fields are left out.
func (r PredictRequest) Record() feature.Record {
	rec := make(feature.Record, 19)
	text := func(name string, v *string) {
		if v != nil {
			rec[name] = feature.Text(*v)
		}
	}
	integer := func(name string, v *int) {
		if v != nil {
			rec[name] = feature.Number(float64(*v))
		}
	}
	float := func(name string, v *float64) {
		if v != nil {
			rec[name] = feature.Number(*v)
		}
	}

	text(feature.ColGender, r.Gender)
	integer(feature.ColSeniorCitizen, r.SeniorCitizen)
	text(feature.ColPartner, r.Partner)
	text(feature.ColDependents, r.Dependents)
	integer(feature.ColTenure, r.Tenure)
	text(feature.ColPhoneService, r.PhoneService)
	text(feature.ColMultipleLines, r.MultipleLines)
	text(feature.ColInternetService, r.InternetService)
	text(feature.ColOnlineSecurity, r.OnlineSecurity)
	text(feature.ColOnlineBackup, r.OnlineBackup)
	text(feature.ColDeviceProtection, r.DeviceProtection)
	text(feature.ColTechSupport, r.TechSupport)
	text(feature.ColStreamingTV, r.StreamingTV)
	text(feature.ColStreamingMovies, r.StreamingMovies)
	text(feature.ColContract, r.Contract)
	text(feature.ColPaperlessBilling, r.PaperlessBilling)
	text(feature.ColPaymentMethod, r.PaymentMethod)
	float(feature.ColMonthlyCharges, r.MonthlyCharges)
	float(feature.ColTotalCharges, r.TotalCharges)
	return rec
}

// Charges returns the monthly and total charges as decimals, zero when absent.
func (r PredictRequest) Charges() (monthly, total decimal.Decimal) {
	if r.MonthlyCharges != nil {
		monthly = decimal.NewFromFloat(*r.MonthlyCharges)
	}
	if r.TotalCharges != nil {
		total = decimal.NewFromFloat(*r.TotalCharges)
	}
	return monthly, total
}

// PredictResponse is the compact scoring response served on POST /predict.
type PredictResponse struct {
	Prediction  string  `json:"prediction"`
	Probability float64 `json:"probability"`
}

// PredictionResponse is the output DTO for a stored prediction.
type PredictionResponse struct {
	CreatedAt      time.Time `json:"created_at"`
	UnseenColumns  []string  `json:"unseen_columns"`
	ID             uuid.UUID `json:"id"`
	CustomerID     string    `json:"customer_id,omitempty"`
	Prediction     string    `json:"prediction"`
	RiskBand       string    `json:"risk_band"`
	MonthlyCharges string    `json:"monthly_charges"`
	TotalCharges   string    `json:"total_charges"`
	ModelVersion   string    `json:"model_version,omitempty"`
	Probability    float64   `json:"probability"`
}

// Summary returns the compact prediction/probability pair.
func (r PredictionResponse) Summary() PredictResponse {
	return PredictResponse{Prediction: r.Prediction, Probability: r.Probability}
}

// PredictionListResponse is a page of a customer's predictions.
type PredictionListResponse struct {
	Predictions []PredictionResponse `json:"predictions"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// FromModel maps a domain model to the response DTO.
func FromModel(p *model.ChurnPrediction) PredictionResponse {
	unseen := p.UnseenColumns()
	if unseen == nil {
		unseen = []string{}
	}
	return PredictionResponse{
		ID:             p.ID(),
		CustomerID:     p.CustomerID(),
		Prediction:     p.Label().String(),
		Probability:    p.Probability(),
		RiskBand:       p.RiskBand().String(),
		UnseenColumns:  unseen,
		MonthlyCharges: p.MonthlyCharges().String(),
		TotalCharges:   p.TotalCharges().String(),
		ModelVersion:   p.ModelVersion(),
		CreatedAt:      p.CreatedAt(),
	}
}
