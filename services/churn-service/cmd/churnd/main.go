package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/bib/pkg/auth"
	kafkapkg "github.com/bibbank/bib/pkg/kafka"
	"github.com/bibbank/bib/pkg/observability"
	pgpkg "github.com/bibbank/bib/pkg/postgres"
	"github.com/bibbank/bib/pkg/tlsutil"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/artifact"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/config"
	infraKafka "github.com/bibbank/bib/services/churn-service/internal/infrastructure/kafka"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/messaging"
	infraPG "github.com/bibbank/bib/services/churn-service/internal/infrastructure/postgres"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/sqlite"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/telemetry"
	grpcPresentation "github.com/bibbank/bib/services/churn-service/internal/presentation/grpc"
	"github.com/bibbank/bib/services/churn-service/internal/presentation/rest"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting churn-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"artifact_dir", cfg.ArtifactDir,
		"database_driver", cfg.DB.Driver,
	)

	// Initialize tracing
	shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	switch {
	case errors.Is(err, observability.ErrNoTracingEndpoint):
		logger.Info("tracing disabled, OTEL_EXPORTER_OTLP_ENDPOINT not set")
	case err != nil:
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	default:
		defer func() { _ = shutdown(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
	}

	// Initialize metrics
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush
	instruments, err := telemetry.NewInstruments(meterProvider)
	if err != nil {
		logger.Error("failed to create metric instruments", "error", err)
		os.Exit(1)
	}

	// Load model artifacts; the service refuses to start without them.
	artifacts, err := artifact.NewStore(cfg.ArtifactDir).Load()
	if err != nil {
		logger.Error("failed to load model artifacts", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}
	predictor, err := service.NewPredictor(artifacts)
	if err != nil {
		logger.Error("failed to initialize predictor", "error", err)
		os.Exit(1)
	}
	logger.Info("model artifacts loaded", "version", predictor.Version())

	// Initialize prediction store
	repo, storeCheck, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open prediction store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Initialize event publisher
	kafkaCfg := kafkapkg.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		TLS:           cfg.Kafka.TLS,
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
	}
	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkapkg.NewProducer(kafkaCfg)
		if err != nil {
			logger.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = infraKafka.NewPublisher(producer, cfg.Kafka.EventsTopic, logger)
	} else {
		logger.Info("KAFKA_BROKERS not set, logging domain events instead of publishing")
		publisher = messaging.NewLogPublisher(logger)
	}

	// Use cases
	predictUC := usecase.NewPredictChurn(repo, publisher, predictor, instruments, cfg.HighRiskThreshold)
	getPredictionUC := usecase.NewGetPrediction(repo)
	listPredictionsUC := usecase.NewListCustomerPredictions(repo)

	// Authentication
	var validator auth.TokenValidator
	if cfg.Auth.Enabled() {
		jwtSvc, err := newJWTService(cfg.Auth)
		if err != nil {
			logger.Error("failed to initialize JWT service", "error", err)
			os.Exit(1)
		}
		validator = jwtSvc
	} else {
		logger.Warn("JWT_SECRET and JWT_PUBLIC_KEY_FILE not set, API is unauthenticated")
	}

	// gRPC server
	grpcOpts := grpcPresentation.ServerOptions{Validator: validator, Reflection: cfg.GRPCReflection}
	if cfg.TLS.Enabled() {
		creds, err := tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			logger.Error("failed to load TLS credentials", "error", err)
			os.Exit(1)
		}
		grpcOpts.Creds = creds
	}
	grpcHandler := grpcPresentation.NewChurnServiceHandler(predictUC, getPredictionUC, listPredictionsUC, logger, validator != nil)
	grpcServer := grpcPresentation.NewServer(grpcHandler, cfg.GRPCAddress(), logger, grpcOpts)

	// HTTP server
	router := rest.NewRouter(rest.RouterConfig{
		Churn: rest.NewChurnHandler(predictUC, getPredictionUC, listPredictionsUC, logger, validator != nil),
		Health: rest.NewHealthHandler(cfg.Telemetry.ServiceName, map[string]rest.CheckFunc{
			"database": storeCheck,
		}, logger),
		Metrics:   metricsHandler,
		Validator: validator,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start servers
	errCh := make(chan error, 3)

	go func() {
		errCh <- grpcServer.Start()
	}()

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Asynchronous scoring requests
	if cfg.Kafka.ScoringTopic != "" {
		handler := infraKafka.NewScoringHandler(predictUC, logger)
		consumer, err := kafkapkg.NewConsumer(kafkaCfg, cfg.Kafka.ScoringTopic, handler.Handle, logger)
		if err != nil {
			logger.Error("failed to create scoring consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("scoring consumer: %w", err)
			}
		}()
	}

	// Wait for shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	grpcServer.Stop()
	logger.Info("churn-service stopped")
}

// openStore opens the configured prediction store and returns it with a
// readiness check and a close function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.PredictionRepository, rest.CheckFunc, func(), error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := pgpkg.NewPool(ctx, pgpkg.Config{
			URL:      cfg.DB.URL,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pgpkg.RunMigrations(cfg.DB.URL, cfg.DB.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("postgres prediction store ready", "migrations", cfg.DB.MigrationsDir)
		check := func(ctx context.Context) error { return pgpkg.HealthCheck(ctx, pool) }
		return infraPG.NewPredictionRepository(pool), check, pool.Close, nil

	default:
		path := cfg.DB.SQLitePath
		if cfg.DB.Driver == config.DriverMemory {
			path = sqlite.MemoryPath
		}
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("sqlite prediction store ready", "path", path)
		return repo, repo.Ping, func() { _ = repo.Close() }, nil
	}
}

// newJWTService builds a validation-only JWT service: public key preferred,
// shared secret as fallback.
func newJWTService(cfg config.AuthConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{Issuer: cfg.JWTIssuer}
	if cfg.JWTPublicKeyFile != "" {
		keyData, err := auth.LoadKeyFromFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	} else {
		jwtCfg.Secret = cfg.JWTSecret
	}
	return auth.NewJWTService(jwtCfg)
}
