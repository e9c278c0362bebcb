package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
)

func TestTracedStore(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	store := TraceStoreWith(document.NewStore(document.NewMemoryEngine()), "memory", tp)

	rec, err := store.Create(ctx, storage.KindContact, storage.Fields{"full_name": "A", "email": "a@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Get(ctx, storage.KindContact, "missing"); err == nil {
		t.Fatal("Expected not found")
	}
	if _, err := store.List(ctx, storage.KindContact, nil); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("Expected 3 spans, got %d", len(spans))
	}
	names := []string{"store.create", "store.get", "store.list"}
	for i, span := range spans {
		if span.Name() != names[i] {
			t.Errorf("Span %d: expected %s, got %s", i, names[i], span.Name())
		}
	}
	if spans[0].Status().Code == codes.Error {
		t.Errorf("Create span should not be an error, id %s", rec.ID())
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("Expected the failed get to mark its span as an error")
	}
}
