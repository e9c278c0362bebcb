// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "nora-development-secret"

// Config holds the application configuration
type Config struct {
	Environment string
	Port        int
	LogLevel    string
	LogFormat   string

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string

	Store StoreConfig
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend string

	// sqlite
	DBPath string
	// postgres
	DatabaseURL string

	// dynamodb
	AWSRegion          string
	DynamoEndpoint     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DynamoTablePrefix  string
	DynamoTables       map[string]string
	DynamoCreateTables bool

	// redis
	RedisURL    string
	RedisPrefix string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	environment := getEnv("ENVIRONMENT", "development")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret = devJWTSecret
	}

	store, err := loadStore()
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:        environment,
		Port:               port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		JWTSecret:          secret,
		JWTTTL:             ttl,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		Store:              *store,
	}, nil
}

func loadStore() (*StoreConfig, error) {
	backend := strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite))
	if useMemory, _ := strconv.ParseBool(os.Getenv("USE_IN_MEMORY")); useMemory {
		backend = BackendMemory
	}
	switch backend {
	case BackendSQLite, BackendPostgres, BackendMemory, BackendDynamoDB, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q", backend)
	}

	createTables := false
	if v := os.Getenv("DYNAMODB_CREATE_TABLES"); v != "" {
		var err error
		if createTables, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid DYNAMODB_CREATE_TABLES: %w", err)
		}
	}

	cfg := &StoreConfig{
		Backend:            backend,
		DBPath:             getEnv("DB_PATH", "./data/nora.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		DynamoEndpoint:     os.Getenv("DYNAMODB_ENDPOINT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		DynamoTablePrefix:  getEnv("DYNAMODB_TABLE_PREFIX", "nora-"),
		DynamoTables:       tableOverrides(),
		DynamoCreateTables: createTables,
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisPrefix:        getEnv("REDIS_PREFIX", "nora"),
	}

	if backend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	// DynamoDB Local accepts any credentials but the SDK still wants some.
	if backend == BackendDynamoDB && cfg.DynamoEndpoint != "" && cfg.AWSAccessKeyID == "" {
		cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey = "local", "local"
	}
	return cfg, nil
}

// tableOverrides collects DYNAMODB_TABLE_<COLLECTION> variables, keyed by the
// lower-cased collection name.
func tableOverrides() map[string]string {
	const prefix = "DYNAMODB_TABLE_"
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(key, prefix) || key == "DYNAMODB_TABLE_PREFIX" {
			continue
		}
		out[strings.ToLower(strings.TrimPrefix(key, prefix))] = value
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
