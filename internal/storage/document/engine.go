package document

import (
	"context"
	"errors"

	"github.com/norahq/nora/internal/storage"
)

// Engine errors. Engines must return these (possibly wrapped) so the adapter
// can tell a lost race from an outage.
var (
	ErrExists  = errors.New("document already exists")
	ErrMissing = errors.New("document does not exist")
)

// Doc is one stored document. It always carries its key under "id".
type Doc = map[string]any

// Engine is the key-value contract a document backend provides. Every call is
// a single round-trip with single-document atomicity and nothing more.
type Engine interface {
	// Insert writes doc under id, failing with ErrExists if id is taken.
	Insert(ctx context.Context, collection, id string, doc Doc) error

	// Replace overwrites the document under id, failing with ErrMissing if absent.
	Replace(ctx context.Context, collection, id string, doc Doc) error

	// Get returns the document under id or ErrMissing.
	Get(ctx context.Context, collection, id string) (Doc, error)

	// Delete removes the document under id. Missing ids are not an error.
	Delete(ctx context.Context, collection, id string) error

	// Scan returns every document in the collection. Engines may use hint to
	// drop non-matching documents early; the adapter re-checks every result.
	Scan(ctx context.Context, collection string, hint *storage.Filter) ([]Doc, error)

	Close() error
}

// Pinger is implemented by engines that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UniqueCollection holds the markers that enforce unique fields.
const UniqueCollection = "unique_keys"

// Collections lists every collection the adapter uses, for engines that need
// them provisioned up front.
func Collections() []string {
	kinds := storage.Kinds()
	out := make([]string, 0, len(kinds)+1)
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return append(out, UniqueCollection)
}
