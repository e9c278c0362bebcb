// Package backend opens the storage backend selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/norahq/nora/internal/config"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
	"github.com/norahq/nora/internal/storage/document/dynamo"
	"github.com/norahq/nora/internal/storage/document/redis"
	"github.com/norahq/nora/internal/storage/relational"
)

// Open returns the store for cfg.Backend. The caller owns the store and must
// close it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := relational.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("Storage initialized", "backend", cfg.Backend, "database", cfg.DBPath)
		return store, nil

	case config.BackendPostgres:
		store, err := relational.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		logger.Info("Storage initialized", "backend", cfg.Backend)
		return store, nil

	case config.BackendMemory:
		logger.Warn("Storage initialized in memory; data is lost on restart", "backend", cfg.Backend)
		return document.NewStore(document.NewMemoryEngine()), nil

	case config.BackendDynamoDB:
		engine, err := dynamo.NewFromConfig(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			TablePrefix:     cfg.DynamoTablePrefix,
			Tables:          cfg.DynamoTables,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open dynamodb store: %w", err)
		}
		if cfg.DynamoCreateTables {
			if err := engine.EnsureTables(ctx); err != nil {
				return nil, fmt.Errorf("failed to create dynamodb tables: %w", err)
			}
		}
		logger.Info("Storage initialized", "backend", cfg.Backend,
			"region", cfg.AWSRegion, "endpoint", cfg.DynamoEndpoint, "users_table", engine.Table(string(storage.KindUser)))
		return document.NewStore(engine), nil

	case config.BackendRedis:
		engine, err := redis.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		logger.Info("Storage initialized", "backend", cfg.Backend, "prefix", cfg.RedisPrefix)
		return document.NewStore(engine), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
