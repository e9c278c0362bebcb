package document

import (
	"context"
	"sync"

	"github.com/norahq/nora/internal/storage"
)

// Ensure MemoryEngine implements Engine
var _ Engine = (*MemoryEngine)(nil)

// MemoryEngine keeps documents in process memory. Nothing survives a restart.
// Documents are copied on the way in and out so callers never share state
// with the engine.
type MemoryEngine struct {
	mu          sync.RWMutex
	collections map[string]map[string]Doc
}

// NewMemoryEngine creates an empty engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{collections: make(map[string]map[string]Doc)}
}

func (m *MemoryEngine) Insert(_ context.Context, collection, id string, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collection(collection)
	if _, ok := docs[id]; ok {
		return ErrExists
	}
	docs[id] = cloneDoc(doc)
	return nil
}

func (m *MemoryEngine) Replace(_ context.Context, collection, id string, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collection(collection)
	if _, ok := docs[id]; !ok {
		return ErrMissing
	}
	docs[id] = cloneDoc(doc)
	return nil
}

func (m *MemoryEngine) Get(_ context.Context, collection, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrMissing
	}
	return cloneDoc(doc), nil
}

func (m *MemoryEngine) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// Scan ignores the hint; the adapter filters.
func (m *MemoryEngine) Scan(_ context.Context, collection string, _ *storage.Filter) ([]Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		out = append(out, cloneDoc(doc))
	}
	return out, nil
}

func (m *MemoryEngine) Ping(context.Context) error {
	return nil
}

func (m *MemoryEngine) Close() error {
	return nil
}

// collection must be called with mu held for writing.
func (m *MemoryEngine) collection(name string) map[string]Doc {
	docs, ok := m.collections[name]
	if !ok {
		docs = make(map[string]Doc)
		m.collections[name] = docs
	}
	return docs
}

func cloneDoc(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneDoc(x)
	case storage.Fields:
		return cloneDoc(x)
	case storage.Record:
		return cloneDoc(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneDoc(item)
		}
		return out
	case []string:
		return append([]string{}, x...)
	default:
		return v
	}
}
