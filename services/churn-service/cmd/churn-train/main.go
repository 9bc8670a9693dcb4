// Command churn-train fits the churn classifier on a CSV export and writes
// the artifact set churnd serves.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/bib/pkg/observability"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/artifact"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/dataset"
)

func main() {
	dataPath := flag.String("data", "", "path to the customer churn CSV")
	outDir := flag.String("out", "models", "directory to write model artifacts to")
	seed := flag.Uint64("seed", 42, "random seed for balancing, splitting and fitting")
	testSize := flag.Float64("test-size", 0.2, "fraction of rows held out for evaluation")
	positive := flag.String("positive", "Yes", "target value of the churning class")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	logFormat := flag.String("log-format", "text", "text or json")
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "usage: churn-train -data customers.csv [-out models] [-seed 42] [-test-size 0.2] [-positive Yes]")
		os.Exit(2)
	}
	if *testSize <= 0 || *testSize >= 1 {
		fmt.Fprintln(os.Stderr, "-test-size must be between 0 and 1")
		os.Exit(2)
	}

	logger := observability.InitLogger(observability.LogConfig{Level: *logLevel, Format: *logFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table, err := dataset.LoadCSV(*dataPath)
	if err != nil {
		logger.Error("failed to load dataset", "path", *dataPath, "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded", "path", *dataPath, "rows", len(table.Rows), "columns", len(table.Header))

	cfg := training.Config{
		Seed:          *seed,
		TestSize:      *testSize,
		PositiveClass: *positive,
		Fit:           training.DefaultFitConfig(*seed),
	}

	start := time.Now()
	res, err := training.NewPipeline(feature.ChurnSchema, cfg, logger).Run(ctx, table)
	if err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
	logger.Info("training finished", "duration", time.Since(start).Round(time.Millisecond).String())
	fmt.Println(res.Report.String())

	meta := artifact.NewMetadata(res, cfg)
	artifacts := service.Artifacts{
		Schema:     feature.ChurnSchema,
		Registry:   res.Registry,
		Order:      res.Order,
		Scaler:     res.Scaler,
		Classifier: res.Classifier,
		Version:    meta.RunID.String(),
	}
	store := artifact.NewStore(*outDir)
	if err := store.Save(artifacts, &meta); err != nil {
		logger.Error("failed to save artifacts", "dir", *outDir, "error", err)
		os.Exit(1)
	}
	logger.Info("artifacts saved", "dir", store.Dir(), "run_id", meta.RunID.String(), "accuracy", res.Report.Accuracy)
}
