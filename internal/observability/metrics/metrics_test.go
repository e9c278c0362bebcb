package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
)

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := InstrumentStore(document.NewStore(document.NewMemoryEngine()), "test", logger)
	defer store.Close()

	okBefore := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "create", "ok"))
	invalidBefore := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "create", "ValidationError"))
	missingBefore := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "get", "NotFound"))

	if _, err := store.Create(ctx, storage.KindContact, storage.Fields{"full_name": "A", "email": "a@example.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, storage.KindContact, storage.Fields{}); err == nil {
		t.Fatal("Expected a validation error")
	}
	if _, err := store.Get(ctx, storage.KindContact, "missing"); err == nil {
		t.Fatal("Expected not found")
	}

	if got := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "create", "ok")); got != okBefore+1 {
		t.Errorf("Expected one successful create, got %v", got-okBefore)
	}
	if got := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "create", "ValidationError")); got != invalidBefore+1 {
		t.Errorf("Expected one failed create, got %v", got-invalidBefore)
	}
	if got := testutil.ToFloat64(storeOperations.WithLabelValues("test", "contacts", "get", "NotFound")); got != missingBefore+1 {
		t.Errorf("Expected one not found get, got %v", got-missingBefore)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	handler := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/teapot", "418"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/teapot", "418")); got != before+1 {
		t.Errorf("Expected counter to increase by one, got %v", got-before)
	}
}
