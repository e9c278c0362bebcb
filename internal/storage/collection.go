package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view of one kind. T is the model a record decodes into;
// writes accept any struct whose JSON form matches the schema field names.
type Collection[T any] struct {
	store Store
	kind  Kind
}

// NewCollection returns a typed view of kind backed by store.
func NewCollection[T any](store Store, kind Kind) *Collection[T] {
	return &Collection[T]{store: store, kind: kind}
}

// Kind returns the kind this collection reads and writes.
func (c *Collection[T]) Kind() Kind {
	return c.kind
}

func (c *Collection[T]) Create(ctx context.Context, fields any) (*T, error) {
	encoded, err := Encode(fields)
	if err != nil {
		return nil, err
	}
	rec, err := c.store.Create(ctx, c.kind, encoded)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func (c *Collection[T]) Update(ctx context.Context, id string, patch any) (*T, error) {
	encoded, err := Encode(patch)
	if err != nil {
		return nil, err
	}
	rec, err := c.store.Update(ctx, c.kind, id, encoded)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.kind, id)
}

func (c *Collection[T]) List(ctx context.Context, filter *Filter) ([]T, error) {
	recs, err := c.store.List(ctx, c.kind, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := Decode[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Encode converts a struct (or map) into Fields through its JSON form. Numbers
// are kept as json.Number so integer and decimal values survive untouched.
func Encode(v any) (Fields, error) {
	switch f := v.(type) {
	case Fields:
		return f, nil
	case map[string]any:
		return Fields(f), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, Validationf("failed to encode fields: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, Validationf("fields must encode to an object: %v", err)
	}
	return fields, nil
}

// Decode converts a stored record into T.
func Decode[T any](rec Record) (*T, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &out, nil
}
