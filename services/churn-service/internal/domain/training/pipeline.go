package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// Config holds pipeline settings.
type Config struct {
	Seed          uint64
	TestSize      float64
	PositiveClass string
	Fit           FitConfig
}

// DefaultConfig returns seed 42, a 20% hold-out, "Yes" as the positive class
// and the default ensemble.
func DefaultConfig() Config {
	return Config{
		Seed:          42,
		TestSize:      0.2,
		PositiveClass: "Yes",
		Fit:           DefaultFitConfig(42),
	}
}

// Result carries the fitted artifacts and run statistics.
type Result struct {
	Registry   *feature.Registry
	Order      feature.FeatureOrder
	Scaler     *feature.Scaler
	Classifier *ensemble.VotingClassifier
	Report     Report
	Clean      CleanReport
	Balanced   int
	TrainRows  int
	TestRows   int
}

// Pipeline runs the training stages in order.
type Pipeline struct {
	schema feature.Schema
	cfg    Config
	logger *slog.Logger
}

// NewPipeline creates a pipeline for schema.
func NewPipeline(schema feature.Schema, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{schema: schema, cfg: cfg, logger: logger}
}

// Run executes every stage on t. The context is checked between stages.
func (p *Pipeline) Run(ctx context.Context, t RawTable) (Result, error) {
	var res Result

	cleaned, cleanReport, err := Clean(t, p.schema)
	if err != nil {
		return res, fmt.Errorf("failed to clean dataset: %w", err)
	}
	res.Clean = cleanReport
	p.logger.Info("dataset cleaned",
		"input_rows", cleanReport.InputRows,
		"missing_dropped", cleanReport.MissingDropped,
		"duplicates_dropped", cleanReport.DuplicatesDropped,
		"output_rows", cleanReport.OutputRows,
	)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	encoded, registry, order, err := EncodeStage(cleaned, p.schema, p.cfg.PositiveClass)
	if err != nil {
		return res, fmt.Errorf("failed to encode dataset: %w", err)
	}
	res.Registry, res.Order = registry, order
	counts := encoded.ClassCounts()
	p.logger.Info("dataset encoded", "features", order.Len(), "class_0", counts[0], "class_1", counts[1])

	balanced, err := BalanceClasses(encoded, p.cfg.Seed)
	if err != nil {
		return res, err
	}
	res.Balanced = balanced.Len()
	p.logger.Warn("classes balanced before the train/test split; duplicated minority rows can appear in both sets and inflate evaluation metrics",
		"rows", balanced.Len(),
	)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	train, test, err := Split(balanced, p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return res, fmt.Errorf("failed to split dataset: %w", err)
	}
	res.TrainRows, res.TestRows = train.Len(), test.Len()

	scaledTrain, scaledTest, scaler, err := ScaleStage(train, test)
	if err != nil {
		return res, err
	}
	res.Scaler = scaler
	if err := ctx.Err(); err != nil {
		return res, err
	}

	p.logger.Info("fitting classifier", "train_rows", train.Len(), "members", len(p.cfg.Fit.Members))
	clf, err := FitStage(scaledTrain, p.cfg.Fit)
	if err != nil {
		return res, fmt.Errorf("failed to fit classifier: %w", err)
	}
	res.Classifier = clf
	if err := ctx.Err(); err != nil {
		return res, err
	}

	target, _ := registry.Encoder(p.schema.Target())
	var names [2]string
	for code := 0; code < 2; code++ {
		names[code], _ = target.Category(code)
	}
	report, err := Evaluate(clf, scaledTest, names)
	if err != nil {
		return res, fmt.Errorf("failed to evaluate classifier: %w", err)
	}
	res.Report = report
	p.logger.Info("classifier evaluated", "accuracy", report.Accuracy, "test_rows", test.Len())

	return res, nil
}
