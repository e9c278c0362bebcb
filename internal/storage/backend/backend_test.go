package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/norahq/nora/internal/config"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
	"github.com/norahq/nora/internal/storage/relational"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(ctx, config.StoreConfig{
			Backend: config.BackendSQLite,
			DBPath:  filepath.Join(t.TempDir(), "nora.db"),
		}, logger)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*relational.Store); !ok {
			t.Errorf("Expected a relational store, got %T", store)
		}
		if err := storage.Ping(ctx, store); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("memory", func(t *testing.T) {
		store, err := Open(ctx, config.StoreConfig{Backend: config.BackendMemory}, logger)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*document.Store); !ok {
			t.Errorf("Expected a document store, got %T", store)
		}
	})

	t.Run("memory stores are independent", func(t *testing.T) {
		a, _ := Open(ctx, config.StoreConfig{Backend: config.BackendMemory}, logger)
		b, _ := Open(ctx, config.StoreConfig{Backend: config.BackendMemory}, logger)
		if _, err := a.Create(ctx, storage.KindContact, storage.Fields{"full_name": "A", "email": "a@example.com"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		list, err := b.List(ctx, storage.KindContact, nil)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("Expected no shared state between stores, got %d records", len(list))
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := Open(ctx, config.StoreConfig{Backend: "mongo"}, logger); err == nil {
			t.Error("Expected an error")
		}
	})
}
