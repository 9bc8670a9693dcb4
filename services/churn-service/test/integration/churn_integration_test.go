//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/pkg/events"
	pkgkafka "github.com/bibbank/bib/pkg/kafka"
	"github.com/bibbank/bib/pkg/testutil"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/event"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
	"github.com/bibbank/bib/services/churn-service/internal/domain/valueobject"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/artifact"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/dataset"
	churnkafka "github.com/bibbank/bib/services/churn-service/internal/infrastructure/kafka"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/messaging"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/postgres"
)

const highRiskThreshold = 0.7

func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func setupRepo(t *testing.T) *postgres.PredictionRepository {
	t.Helper()
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pg.Cleanup(t) })

	pg.RunMigrations(t, migrationsDir())
	return postgres.NewPredictionRepository(pg.Pool)
}

func newTestPrediction(t *testing.T, customerID string, probability float64, unseen []string) *model.ChurnPrediction {
	t.Helper()
	label := valueobject.LabelNotChurn
	if probability >= 0.5 {
		label = valueobject.LabelChurn
	}
	p, err := model.NewChurnPrediction(
		customerID, label, probability, unseen,
		decimal.RequireFromString("70.35"), decimal.RequireFromString("1397.47"),
		"run-1", highRiskThreshold,
	)
	require.NoError(t, err)
	return p
}

func TestPredictionRepository_SaveAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := newTestPrediction(t, "7590-VHVEG", 0.83, []string{feature.ColContract, feature.ColPaymentMethod})
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.FindByID(ctx, p.ID())
	require.NoError(t, err)

	assert.Equal(t, p.ID(), got.ID())
	assert.Equal(t, p.CustomerID(), got.CustomerID())
	assert.True(t, p.Label().Equal(got.Label()))
	assert.InDelta(t, p.Probability(), got.Probability(), 1e-9)
	assert.Equal(t, p.RiskBand(), got.RiskBand())
	assert.True(t, p.MonthlyCharges().Equal(got.MonthlyCharges()))
	assert.True(t, p.TotalCharges().Equal(got.TotalCharges()))
	assert.Equal(t, p.ModelVersion(), got.ModelVersion())
	assert.Equal(t, []string{feature.ColContract, feature.ColPaymentMethod}, got.UnseenColumns())
	assert.WithinDuration(t, p.CreatedAt(), got.CreatedAt(), time.Millisecond)
}

func TestPredictionRepository_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, port.ErrPredictionNotFound)
}

func TestPredictionRepository_FindByCustomerID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var saved []*model.ChurnPrediction
	for i := 0; i < 5; i++ {
		p := newTestPrediction(t, "3668-QPYBK", 0.1*float64(i+1), nil)
		require.NoError(t, repo.Save(ctx, p))
		saved = append(saved, p)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, repo.Save(ctx, newTestPrediction(t, "other", 0.2, nil)))

	page, err := repo.FindByCustomerID(ctx, "3668-QPYBK", 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, saved[4].ID(), page[0].ID(), "newest first")
	assert.Equal(t, saved[2].ID(), page[2].ID())

	rest, err := repo.FindByCustomerID(ctx, "3668-QPYBK", 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, saved[0].ID(), rest[1].ID())
}

func TestKafkaPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kc := testutil.NewKafkaContainer(ctx, t)
	t.Cleanup(func() { kc.Cleanup(t) })

	cfg := pkgkafka.Config{Brokers: kc.Brokers, ConsumerGroup: "churn-it"}
	producer, err := pkgkafka.NewProducer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = producer.Close() })

	const topic = "churn.predictions.it"
	publisher := churnkafka.NewPublisher(producer, topic, testLogger())

	p := newTestPrediction(t, "9237-HQITU", 0.91, nil)
	domainEvents := p.DomainEvents()
	require.Len(t, domainEvents, 2)
	require.NoError(t, publisher.Publish(ctx, domainEvents...))

	received := make(chan pkgkafka.Message, 2)
	consumer, err := pkgkafka.NewConsumer(cfg, topic, func(_ context.Context, msg pkgkafka.Message) error {
		received <- msg
		return nil
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = consumer.Close() })

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Start(consumeCtx) }()

	var types []string
	for len(types) < 2 {
		select {
		case msg := <-received:
			assert.Equal(t, p.ID().String(), string(msg.Key))
			env, err := events.DecodeEnvelope(msg.Value)
			require.NoError(t, err)
			assert.Equal(t, p.ID(), env.AggregateID)
			assert.Equal(t, env.Type, msg.Headers["event_type"])
			types = append(types, env.Type)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for events, got %v", types)
		}
	}
	assert.ElementsMatch(t,
		[]string{event.EventTypePredictionCompleted, event.EventTypeHighChurnRiskDetected},
		types,
	)
}

func TestTrainSaveLoadPredict(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	table, err := dataset.LoadCSV(testutil.WriteChurnCSV(t, 400, 7))
	require.NoError(t, err)

	cfg := training.DefaultConfig()
	for i := range cfg.Fit.Members {
		cfg.Fit.Members[i].Rounds = 30
	}
	res, err := training.NewPipeline(feature.ChurnSchema, cfg, testLogger()).Run(ctx, table)
	require.NoError(t, err)
	assert.Greater(t, res.Report.Accuracy, 0.7)

	meta := artifact.NewMetadata(res, cfg)
	store := artifact.NewStore(t.TempDir())
	require.NoError(t, store.Save(service.Artifacts{
		Schema:     feature.ChurnSchema,
		Registry:   res.Registry,
		Order:      res.Order,
		Scaler:     res.Scaler,
		Classifier: res.Classifier,
		Version:    meta.RunID.String(),
	}, &meta))

	loaded, err := store.Load()
	require.NoError(t, err)
	predictor, err := service.NewPredictor(loaded)
	require.NoError(t, err)
	assert.Equal(t, meta.RunID.String(), predictor.Version())

	predict := usecase.NewPredictChurn(repo, messaging.NewLogPublisher(testLogger()), predictor, nil, highRiskThreshold)

	body, err := json.Marshal(testutil.ChurnFeatures(map[string]any{"Contract": "Quarterly"}))
	require.NoError(t, err)
	var req dto.PredictRequest
	require.NoError(t, json.Unmarshal(body, &req))
	req.CustomerID = "7590-VHVEG"

	resp, err := predict.Execute(ctx, req)
	require.NoError(t, err)
	testutil.AssertProbability(t, resp.Probability)
	testutil.AssertLabel(t, resp.Prediction, resp.Probability)
	assert.Contains(t, resp.UnseenColumns, feature.ColContract)
	assert.Equal(t, meta.RunID.String(), resp.ModelVersion)

	history, err := usecase.NewListCustomerPredictions(repo).Execute(ctx, "7590-VHVEG", 10, 0)
	require.NoError(t, err)
	require.Len(t, history.Predictions, 1)
	assert.Equal(t, resp.ID, history.Predictions[0].ID)
}
