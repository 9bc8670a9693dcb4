package port

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bib/pkg/events"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
)

// ErrPredictionNotFound is returned by repositories when no prediction matches.
var ErrPredictionNotFound = errors.New("prediction not found")

// PredictionRepository defines the persistence port for audited predictions.
type PredictionRepository interface {
	// Save persists a new prediction.
	Save(ctx context.Context, prediction *model.ChurnPrediction) error

	// FindByID retrieves a prediction by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*model.ChurnPrediction, error)

	// FindByCustomerID retrieves a customer's predictions, newest first.
	FindByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*model.ChurnPrediction, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}

// Scorer scores a single feature record. *service.Predictor implements it.
type Scorer interface {
	PredictOne(rec feature.Record) (service.Decision, error)
	Version() string
}

// PredictionMetrics records serving telemetry for scored records.
type PredictionMetrics interface {
	RecordPrediction(ctx context.Context, label string, latency time.Duration, unseen []feature.UnseenCategory)
	RecordFailure(ctx context.Context, reason string)
}
