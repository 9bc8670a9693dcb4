// Package sqlite stores the prediction audit trail in an embedded SQLite
// database for single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Fixed-width UTC layout so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS churn_predictions (
	id              TEXT PRIMARY KEY,
	customer_id     TEXT NOT NULL DEFAULT '',
	label           TEXT NOT NULL,
	probability     REAL NOT NULL,
	risk_band       TEXT NOT NULL,
	unseen_columns  TEXT NOT NULL DEFAULT '[]',
	monthly_charges TEXT NOT NULL DEFAULT '0',
	total_charges   TEXT NOT NULL DEFAULT '0',
	model_version   TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_churn_predictions_customer
	ON churn_predictions (customer_id, created_at);
`

// Compile-time interface check
var _ port.PredictionRepository = (*PredictionRepository)(nil)

// PredictionRepository implements port.PredictionRepository on SQLite.
type PredictionRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*PredictionRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite serialises writers and each :memory: connection
	// is a separate database.
	db.SetMaxOpenConns(1)

	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PredictionRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *PredictionRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection.
func (r *PredictionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save persists a new prediction.
func (r *PredictionRepository) Save(ctx context.Context, p *model.ChurnPrediction) error {
	unseen, err := json.Marshal(p.UnseenColumns())
	if err != nil {
		return fmt.Errorf("failed to encode unseen columns: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO churn_predictions (
			id, customer_id, label, probability, risk_band, unseen_columns,
			monthly_charges, total_charges, model_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID().String(),
		p.CustomerID(),
		p.Label().String(),
		p.Probability(),
		p.RiskBand().String(),
		string(unseen),
		p.MonthlyCharges().String(),
		p.TotalCharges().String(),
		p.ModelVersion(),
		p.CreatedAt().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

const selectPrediction = `
	SELECT id, customer_id, label, probability, risk_band, unseen_columns,
		monthly_charges, total_charges, model_version, created_at
	FROM churn_predictions`

// FindByID retrieves a prediction by its unique identifier.
func (r *PredictionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ChurnPrediction, error) {
	p, err := scanPrediction(r.db.QueryRowContext(ctx, selectPrediction+` WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prediction %s: %w", id, port.ErrPredictionNotFound)
	}
	return p, err
}

// FindByCustomerID retrieves a customer's predictions, newest first.
func (r *PredictionRepository) FindByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*model.ChurnPrediction, error) {
	rows, err := r.db.QueryContext(ctx, selectPrediction+`
		WHERE customer_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var out []*model.ChurnPrediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row scanner) (*model.ChurnPrediction, error) {
	var (
		idStr, customerID, labelStr, bandStr string
		unseenJSON, monthlyStr, totalStr     string
		modelVersion, createdStr             string
		probability                          float64
	)
	err := row.Scan(&idStr, &customerID, &labelStr, &probability, &bandStr, &unseenJSON,
		&monthlyStr, &totalStr, &modelVersion, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan prediction: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}
	label, err := valueobject.ChurnLabelFromString(labelStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label: %w", err)
	}
	band, err := valueobject.RiskBandFromString(bandStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk band: %w", err)
	}
	var unseen []string
	if err := json.Unmarshal([]byte(unseenJSON), &unseen); err != nil {
		return nil, fmt.Errorf("failed to parse unseen columns: %w", err)
	}
	if len(unseen) == 0 {
		unseen = nil
	}
	monthly, err := decimal.NewFromString(monthlyStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse monthly charges: %w", err)
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total charges: %w", err)
	}
	createdAt, err := time.Parse(timeLayout, createdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return model.Reconstruct(id, customerID, label, probability, band, unseen,
		monthly, total, modelVersion, createdAt), nil
}
