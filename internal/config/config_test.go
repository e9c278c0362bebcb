package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "")
		t.Setenv("USE_IN_MEMORY", "")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("ENVIRONMENT", "")
		t.Setenv("PORT", "")
		t.Setenv("JWT_TTL", "")
		t.Setenv("DB_PATH", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != 8080 {
			t.Errorf("Expected port 8080, got %d", cfg.Port)
		}
		if cfg.Store.Backend != BackendSQLite {
			t.Errorf("Expected sqlite backend, got %s", cfg.Store.Backend)
		}
		if cfg.Store.DBPath != "./data/nora.db" {
			t.Errorf("Unexpected DB path %s", cfg.Store.DBPath)
		}
		if cfg.JWTTTL != time.Hour {
			t.Errorf("Expected 1h token lifetime, got %v", cfg.JWTTTL)
		}
		if cfg.JWTSecret == "" {
			t.Error("Expected a development JWT secret")
		}
	})

	t.Run("in-memory switch wins", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "postgres")
		t.Setenv("USE_IN_MEMORY", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Store.Backend != BackendMemory {
			t.Errorf("Expected memory backend, got %s", cfg.Store.Backend)
		}
	})

	t.Run("dynamodb local gets dummy credentials and table overrides", func(t *testing.T) {
		t.Setenv("USE_IN_MEMORY", "")
		t.Setenv("STORE_BACKEND", "dynamodb")
		t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
		t.Setenv("AWS_ACCESS_KEY_ID", "")
		t.Setenv("DYNAMODB_TABLE_TIME_ENTRIES", "nora-time-worked")
		t.Setenv("DYNAMODB_CREATE_TABLES", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Store.AWSAccessKeyID == "" {
			t.Error("Expected dummy credentials for a local endpoint")
		}
		if got := cfg.Store.DynamoTables["time_entries"]; got != "nora-time-worked" {
			t.Errorf("Expected table override, got %q", got)
		}
		if !cfg.Store.DynamoCreateTables {
			t.Error("Expected table creation to be enabled")
		}
	})

	invalid := map[string]map[string]string{
		"bad port":             {"PORT": "eighty"},
		"bad ttl":              {"JWT_TTL": "forever"},
		"unknown backend":      {"STORE_BACKEND": "mongo"},
		"postgres without dsn": {"STORE_BACKEND": "postgres", "DATABASE_URL": ""},
		"production secret":    {"ENVIRONMENT": "production", "JWT_SECRET": ""},
	}
	for name, env := range invalid {
		t.Run(name, func(t *testing.T) {
			t.Setenv("USE_IN_MEMORY", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
