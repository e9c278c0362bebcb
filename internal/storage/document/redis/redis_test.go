package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
	"github.com/norahq/nora/internal/storage/storetest"
)

// newEngine connects to REDIS_URL under a prefix unique to the test, so runs
// never see each other's keys.
func newEngine(t *testing.T) *Engine {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	prefix := fmt.Sprintf("nora-test-%d", time.Now().UnixNano())
	engine, err := New(context.Background(), url, prefix)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := engine.rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			engine.rdb.Del(ctx, keys...)
		}
		engine.Close()
	})
	return engine
}

func TestRedisContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return document.NewStore(newEngine(t))
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	if err := engine.Replace(ctx, "contacts", "x", document.Doc{"id": "x"}); !errors.Is(err, document.ErrMissing) {
		t.Errorf("Expected ErrMissing, got %v", err)
	}
	if err := engine.Insert(ctx, "contacts", "x", document.Doc{"id": "x"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := engine.Insert(ctx, "contacts", "x", document.Doc{"id": "x"}); !errors.Is(err, document.ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}

	docs, err := engine.Scan(ctx, "contacts", nil)
	if err != nil || len(docs) != 1 {
		t.Fatalf("Expected one document, got %v, %v", docs, err)
	}

	if err := engine.Delete(ctx, "contacts", "x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	docs, err = engine.Scan(ctx, "contacts", nil)
	if err != nil || len(docs) != 0 {
		t.Errorf("Expected empty collection after delete, got %v, %v", docs, err)
	}
}

func TestInsertIndexesDocument(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	if err := engine.Insert(ctx, "users", "u1", document.Doc{"id": "u1", "username": "ada"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	indexed, err := engine.rdb.SIsMember(ctx, engine.indexKey("users"), "u1").Result()
	if err != nil || !indexed {
		t.Fatalf("Expected u1 in the collection index, got %v, %v", indexed, err)
	}

	err = engine.Insert(ctx, "users", "u1", document.Doc{"id": "u1", "username": "other"})
	if !errors.Is(err, document.ErrExists) {
		t.Fatalf("Expected ErrExists, got %v", err)
	}
	doc, err := engine.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["username"] != "ada" {
		t.Errorf("Expected the first document to be kept, got %v", doc)
	}
	n, err := engine.rdb.SCard(ctx, engine.indexKey("users")).Result()
	if err != nil || n != 1 {
		t.Errorf("Expected one index entry, got %d, %v", n, err)
	}
}

func TestInvalidURL(t *testing.T) {
	if _, err := New(context.Background(), "not a url", "nora"); err == nil {
		t.Error("Expected an error for an invalid url")
	}
}
