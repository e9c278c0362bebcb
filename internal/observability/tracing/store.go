package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/norahq/nora/internal/storage"
)

const tracerName = "github.com/norahq/nora/internal/storage"

// Ensure TracedStore implements storage.Store
var _ storage.Store = (*TracedStore)(nil)

// TracedStore opens a span around every call to the wrapped store.
type TracedStore struct {
	next    storage.Store
	backend string
	tracer  trace.Tracer
}

// TraceStore wraps next using the global tracer provider.
func TraceStore(next storage.Store, backend string) *TracedStore {
	return TraceStoreWith(next, backend, otel.GetTracerProvider())
}

// TraceStoreWith wraps next using the given tracer provider.
func TraceStoreWith(next storage.Store, backend string, tp trace.TracerProvider) *TracedStore {
	return &TracedStore{next: next, backend: backend, tracer: tp.Tracer(tracerName)}
}

func (s *TracedStore) start(ctx context.Context, op string, kind storage.Kind) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("db.system", s.backend),
		attribute.String("nora.kind", string(kind)),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("nora.error_code", string(storage.CodeOf(err))))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracedStore) Create(ctx context.Context, kind storage.Kind, fields storage.Fields) (storage.Record, error) {
	ctx, span := s.start(ctx, "create", kind)
	rec, err := s.next.Create(ctx, kind, fields)
	if err == nil {
		span.SetAttributes(attribute.String("nora.id", rec.ID()))
	}
	end(span, err)
	return rec, err
}

func (s *TracedStore) Get(ctx context.Context, kind storage.Kind, id string) (storage.Record, error) {
	ctx, span := s.start(ctx, "get", kind)
	span.SetAttributes(attribute.String("nora.id", id))
	rec, err := s.next.Get(ctx, kind, id)
	end(span, err)
	return rec, err
}

func (s *TracedStore) GetByKey(ctx context.Context, kind storage.Kind, field, value string) (storage.Record, error) {
	ctx, span := s.start(ctx, "get_by_key", kind)
	span.SetAttributes(attribute.String("nora.field", field))
	rec, err := s.next.GetByKey(ctx, kind, field, value)
	end(span, err)
	return rec, err
}

func (s *TracedStore) Update(ctx context.Context, kind storage.Kind, id string, patch storage.Fields) (storage.Record, error) {
	ctx, span := s.start(ctx, "update", kind)
	span.SetAttributes(attribute.String("nora.id", id))
	rec, err := s.next.Update(ctx, kind, id, patch)
	end(span, err)
	return rec, err
}

func (s *TracedStore) Delete(ctx context.Context, kind storage.Kind, id string) error {
	ctx, span := s.start(ctx, "delete", kind)
	span.SetAttributes(attribute.String("nora.id", id))
	err := s.next.Delete(ctx, kind, id)
	end(span, err)
	return err
}

func (s *TracedStore) List(ctx context.Context, kind storage.Kind, filter *storage.Filter) ([]storage.Record, error) {
	ctx, span := s.start(ctx, "list", kind)
	recs, err := s.next.List(ctx, kind, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("nora.count", len(recs)))
	}
	end(span, err)
	return recs, err
}

// Ping forwards to the wrapped store.
func (s *TracedStore) Ping(ctx context.Context) error {
	return storage.Ping(ctx, s.next)
}

func (s *TracedStore) Close() error {
	return s.next.Close()
}
