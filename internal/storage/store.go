// Package storage provides the engine-independent persistence contract.
//
// Route-level code talks to a single Store interface. Two adapters implement it:
// relational (integer keys, native filtering, transactions) and document
// (opaque string keys, embedded child collections, client-side filtering).
// Everything both adapters must agree on lives here: the schema registry, write
// preparation and validation, filter evaluation, identifiers and the error taxonomy.
package storage

import (
	"context"
	"fmt"
)

// Kind names an entity kind (one table or collection).
type Kind string

const (
	KindUser      Kind = "users"
	KindContact   Kind = "contacts"
	KindInvoice   Kind = "invoices"
	KindExpense   Kind = "expenses"
	KindTimeEntry Kind = "time_entries"
)

// FieldID is the identifier attribute present on every record.
const FieldID = "id"

// FieldCreatedAt is the store-assigned creation timestamp present on every record.
const FieldCreatedAt = "created_at"

// Fields is a set of attribute values supplied by a caller.
// For updates, a key that is present (even with a nil value) is written;
// absent keys keep their stored value.
type Fields map[string]any

// Record is a stored entity as returned by a Store.
type Record map[string]any

// ID returns the record identifier.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Store defines the operations every storage backend implements.
// This abstraction lets the services run unchanged against a relational
// engine or a document engine.
type Store interface {
	// Create validates and persists a new entity, returning the stored record
	// with its assigned id.
	Create(ctx context.Context, kind Kind, fields Fields) (Record, error)

	// Get retrieves an entity by id. Returns a NotFound error if absent.
	Get(ctx context.Context, kind Kind, id string) (Record, error)

	// GetByKey retrieves an entity by a field declared unique in its schema.
	GetByKey(ctx context.Context, kind Kind, field, value string) (Record, error)

	// Update overwrites only the supplied fields and returns the updated record.
	// Returns a NotFound error if the entity does not exist.
	Update(ctx context.Context, kind Kind, id string, patch Fields) (Record, error)

	// Delete removes an entity and anything it owns. Deleting an id that does
	// not exist succeeds.
	Delete(ctx context.Context, kind Kind, id string) error

	// List returns the entities matching filter, or all of them when filter is nil.
	List(ctx context.Context, kind Kind, filter *Filter) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// Lookup returns the schema registered for kind, or a ValidationError.
func Lookup(kind Kind) (*Schema, error) {
	schema, ok := registry[kind]
	if !ok {
		return nil, Validationf("unknown entity kind %q", kind)
	}
	return schema, nil
}

// Kinds returns every registered kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindUser, KindContact, KindInvoice, KindExpense, KindTimeEntry}
}

func (k Kind) String() string {
	return string(k)
}

// MustLookup is Lookup for kinds known at compile time.
func MustLookup(kind Kind) *Schema {
	schema, err := Lookup(kind)
	if err != nil {
		panic(fmt.Sprintf("storage: %v", err))
	}
	return schema
}

// Pinger is implemented by stores that can check their backend connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the store's backend if it supports it.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
