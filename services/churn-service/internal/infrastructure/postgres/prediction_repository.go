package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	pgpkg "github.com/bibbank/bib/pkg/postgres"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
)

// Compile-time interface check
var _ port.PredictionRepository = (*PredictionRepository)(nil)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	pgpkg.Querier
	pgpkg.TxBeginner
}

// PredictionRepository implements port.PredictionRepository using PostgreSQL.
type PredictionRepository struct {
	db DB
}

// NewPredictionRepository creates a new PostgreSQL-backed prediction repository.
func NewPredictionRepository(db DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const selectPrediction = `
	SELECT p.id, p.customer_id, p.label, p.probability, p.risk_band,
		p.monthly_charges, p.total_charges, p.model_version, p.created_at,
		ARRAY(
			SELECT f.column_name FROM prediction_fallbacks f
			WHERE f.prediction_id = p.id ORDER BY f.position
		)
	FROM churn_predictions p
`

// Save persists a prediction and its fallback columns in one transaction.
func (r *PredictionRepository) Save(ctx context.Context, p *model.ChurnPrediction) error {
	return pgpkg.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO churn_predictions (
				id, customer_id, label, probability, risk_band,
				monthly_charges, total_charges, model_version, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			p.ID(),
			p.CustomerID(),
			p.Label().String(),
			p.Probability(),
			p.RiskBand().String(),
			p.MonthlyCharges(),
			p.TotalCharges(),
			p.ModelVersion(),
			p.CreatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to save prediction: %w", err)
		}

		for i, col := range p.UnseenColumns() {
			_, err = tx.Exec(ctx,
				`INSERT INTO prediction_fallbacks (prediction_id, position, column_name) VALUES ($1, $2, $3)`,
				p.ID(), i, col,
			)
			if err != nil {
				return fmt.Errorf("failed to save fallback column %s: %w", col, err)
			}
		}
		return nil
	})
}

// FindByID retrieves a prediction by its unique identifier.
func (r *PredictionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ChurnPrediction, error) {
	p, err := scanPrediction(r.db.QueryRow(ctx, selectPrediction+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prediction %s: %w", id, port.ErrPredictionNotFound)
	}
	return p, err
}

// FindByCustomerID retrieves a customer's predictions, newest first.
func (r *PredictionRepository) FindByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*model.ChurnPrediction, error) {
	rows, err := r.db.Query(ctx, selectPrediction+`
		WHERE p.customer_id = $1
		ORDER BY p.created_at DESC, p.id
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*model.ChurnPrediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return predictions, nil
}

func scanPrediction(row pgx.Row) (*model.ChurnPrediction, error) {
	var (
		id             uuid.UUID
		customerID     string
		labelStr       string
		probability    float64
		riskBandStr    string
		monthlyCharges decimal.Decimal
		totalCharges   decimal.Decimal
		modelVersion   string
		createdAt      time.Time
		fallbacks      []string
	)

	err := row.Scan(
		&id, &customerID, &labelStr, &probability, &riskBandStr,
		&monthlyCharges, &totalCharges, &modelVersion, &createdAt,
		&fallbacks,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan prediction: %w", err)
	}

	return reconstruct(id, customerID, labelStr, probability, riskBandStr,
		fallbacks, monthlyCharges, totalCharges, modelVersion, createdAt)
}

func reconstruct(
	id uuid.UUID,
	customerID, labelStr string,
	probability float64,
	riskBandStr string,
	fallbacks []string,
	monthlyCharges, totalCharges decimal.Decimal,
	modelVersion string,
	createdAt time.Time,
) (*model.ChurnPrediction, error) {
	label, err := valueobject.ChurnLabelFromString(labelStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label: %w", err)
	}
	band, err := valueobject.RiskBandFromString(riskBandStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk band: %w", err)
	}
	if len(fallbacks) == 0 {
		fallbacks = nil
	}
	return model.Reconstruct(id, customerID, label, probability, band, fallbacks,
		monthlyCharges, totalCharges, modelVersion, createdAt.UTC()), nil
}
