package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/norahq/nora/internal/storage"
)

// Ensure InstrumentedStore implements storage.Store
var _ storage.Store = (*InstrumentedStore)(nil)

// InstrumentedStore records metrics for every call to the wrapped store and
// logs backend failures.
type InstrumentedStore struct {
	next    storage.Store
	backend string
	logger  *slog.Logger
}

// InstrumentStore wraps next. backend labels the metrics.
func InstrumentStore(next storage.Store, backend string, logger *slog.Logger) *InstrumentedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedStore{next: next, backend: backend, logger: logger}
}

func (s *InstrumentedStore) observe(kind storage.Kind, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		code := storage.CodeOf(err)
		result = string(code)
		if code == storage.CodeBackend {
			s.logger.Error("Storage operation failed",
				"backend", s.backend, "kind", kind, "op", op, "error", err)
		}
	}
	ObserveStoreOperation(s.backend, string(kind), op, result, time.Since(start))
}

func (s *InstrumentedStore) Create(ctx context.Context, kind storage.Kind, fields storage.Fields) (storage.Record, error) {
	start := time.Now()
	rec, err := s.next.Create(ctx, kind, fields)
	s.observe(kind, "create", start, err)
	return rec, err
}

func (s *InstrumentedStore) Get(ctx context.Context, kind storage.Kind, id string) (storage.Record, error) {
	start := time.Now()
	rec, err := s.next.Get(ctx, kind, id)
	s.observe(kind, "get", start, err)
	return rec, err
}

func (s *InstrumentedStore) GetByKey(ctx context.Context, kind storage.Kind, field, value string) (storage.Record, error) {
	start := time.Now()
	rec, err := s.next.GetByKey(ctx, kind, field, value)
	s.observe(kind, "get_by_key", start, err)
	return rec, err
}

func (s *InstrumentedStore) Update(ctx context.Context, kind storage.Kind, id string, patch storage.Fields) (storage.Record, error) {
	start := time.Now()
	rec, err := s.next.Update(ctx, kind, id, patch)
	s.observe(kind, "update", start, err)
	return rec, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, kind storage.Kind, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, kind, id)
	s.observe(kind, "delete", start, err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, kind storage.Kind, filter *storage.Filter) ([]storage.Record, error) {
	start := time.Now()
	recs, err := s.next.List(ctx, kind, filter)
	s.observe(kind, "list", start, err)
	return recs, err
}

// Ping forwards to the wrapped store.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return storage.Ping(ctx, s.next)
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
