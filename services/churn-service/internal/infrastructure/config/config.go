package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the churn service.
type Config struct {
	Telemetry         TelemetryConfig
	Environment       string
	LogLevel          string
	LogFormat         string
	ArtifactDir       string
	DB                DBConfig
	Auth              AuthConfig
	TLS               TLSConfig
	Kafka             KafkaConfig
	HighRiskThreshold float64
	HTTPPort          int
	GRPCPort          int
	GRPCReflection    bool
}

// DBConfig selects and configures the prediction audit store.
type DBConfig struct {
	Driver        string
	URL           string
	SQLitePath    string
	MigrationsDir string
	MaxConns      int32
	MinConns      int32
}

// KafkaConfig holds Kafka broker configuration. Empty Brokers disables Kafka.
type KafkaConfig struct {
	ConsumerGroup string
	EventsTopic   string
	ScoringTopic  string
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	Brokers       []string
	TLS           bool
}

// AuthConfig enables JWT validation when a secret or public key is set.
type AuthConfig struct {
	JWTSecret        string
	JWTPublicKeyFile string
	JWTIssuer        string
}

// Enabled reports whether requests must carry a valid token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || a.JWTPublicKeyFile != ""
}

// TLSConfig holds the gRPC server certificate paths.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether both certificate and key are configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 8000),
		GRPCPort:    getEnvInt("GRPC_PORT", 9090),
		ArtifactDir: getEnv("ARTIFACT_DIR", "models"),
		DB: DBConfig{
			Driver:        strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
			URL:           getEnv("DATABASE_URL", ""),
			SQLitePath:    getEnv("SQLITE_PATH", "churn.db"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "services/churn-service/migrations"),
			MaxConns:      int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:      int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			EventsTopic:   getEnv("EVENTS_TOPIC", "churn.events"),
			ScoringTopic:  getEnv("SCORING_TOPIC", ""),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "churn-service"),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
		},
		HighRiskThreshold: getEnvFloat("HIGH_RISK_THRESHOLD", 0.7),
		Auth: AuthConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			JWTPublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			JWTIssuer:        getEnv("JWT_ISSUER", "bib-identity"),
		},
		TLS: TLSConfig{
			CertFile: getEnv("GRPC_TLS_CERT_FILE", ""),
			KeyFile:  getEnv("GRPC_TLS_KEY_FILE", ""),
		},
		GRPCReflection: getEnvBool("GRPC_REFLECTION", false),
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  "churn-service",
		},
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort))
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT out of range: %d", c.GRPCPort))
	}
	if c.HTTPPort == c.GRPCPort {
		errs = append(errs, fmt.Errorf("HTTP_PORT and GRPC_PORT must differ"))
	}
	if c.ArtifactDir == "" {
		errs = append(errs, fmt.Errorf("ARTIFACT_DIR is required"))
	}
	if c.HighRiskThreshold <= 0 || c.HighRiskThreshold > 1 {
		errs = append(errs, fmt.Errorf("HIGH_RISK_THRESHOLD must be in (0, 1], got %v", c.HighRiskThreshold))
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DB.Driver))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, fmt.Errorf("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together"))
	}
	if c.Kafka.ScoringTopic != "" && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("SCORING_TOPIC requires KAFKA_BROKERS"))
	}
	if c.Kafka.SASLMechanism != "" && c.Kafka.SASLUsername == "" {
		errs = append(errs, fmt.Errorf("KAFKA_SASL_USERNAME is required with KAFKA_SASL_MECHANISM"))
	}
	if c.Environment == "production" && c.Auth.JWTSecret == "" && c.Auth.JWTPublicKeyFile == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY_FILE is required in production"))
	}
	return errors.Join(errs...)
}

// GRPCAddress returns the full gRPC listen address.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddress returns the full HTTP listen address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
