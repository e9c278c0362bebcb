// Package document implements storage.Store on a schema-less key-value engine.
//
// Ids are generated by the adapter. Child collections (invoice items) are
// embedded in the parent document, so a parent and its children are always
// written and deleted in one engine call. Filtering happens client-side after
// a scan; recency ordering uses created_at since ids carry no order.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/norahq/nora/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store over an Engine.
type Store struct {
	engine Engine
	now    func() time.Time
	newID  func() string
}

// NewStore wraps engine. The engine is closed by Store.Close.
func NewStore(engine Engine) *Store {
	return &Store{
		engine: engine,
		now:    time.Now,
		newID:  storage.NewDocumentID,
	}
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.engine.Close()
}

// Ping checks the engine connection when the engine supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.engine.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Create writes the full entity, children included, as one document. Unique
// fields are claimed first and released again if the document write fails.
func (s *Store) Create(ctx context.Context, kind storage.Kind, fields storage.Fields) (storage.Record, error) {
	schema, prepared, err := storage.PrepareCreate(kind, fields, s.now())
	if err != nil {
		return nil, err
	}

	id := s.newID()
	doc := make(Doc, len(prepared.Fields)+2)
	for k, v := range prepared.Fields {
		doc[k] = v
	}
	doc[storage.FieldID] = id
	if schema.Children != nil {
		items := make([]any, len(prepared.Children))
		for i, child := range prepared.Children {
			items[i] = map[string]any(child)
		}
		doc[schema.Children.Name] = items
	}

	var claimed []string
	for _, f := range schema.UniqueFields() {
		key := uniqueKey(kind, f.Name, prepared.Fields[f.Name])
		if err := s.claim(ctx, key, kind, id); err != nil {
			s.release(ctx, claimed, id)
			if errors.Is(err, ErrExists) {
				return nil, storage.Conflict(kind, f.Name, fmt.Sprint(prepared.Fields[f.Name]))
			}
			return nil, storage.Backend("claim unique "+f.Name, err)
		}
		claimed = append(claimed, key)
	}

	if err := s.engine.Insert(ctx, string(kind), id, doc); err != nil {
		s.release(ctx, claimed, id)
		return nil, storage.Backend("insert "+string(kind), err)
	}
	return storage.Normalize(schema, doc), nil
}

func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	doc, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return storage.Normalize(schema, doc), nil
}

// GetByKey resolves the unique marker, then reads the document it points to.
func (s *Store) GetByKey(ctx context.Context, kind storage.Kind, field, value string) (storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	f, ok := schema.Field(field)
	if !ok || !f.Unique {
		return nil, storage.Validationf("%s is not a unique field of %s", field, kind)
	}

	marker, err := s.engine.Get(ctx, UniqueCollection, uniqueKey(kind, field, value))
	if errors.Is(err, ErrMissing) {
		return nil, storage.NotFound(kind, value)
	}
	if err != nil {
		return nil, storage.Backend("get unique "+field, err)
	}

	ref, _ := marker["ref"].(string)
	doc, err := s.get(ctx, kind, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.NotFound(kind, value)
	}
	if err != nil {
		return nil, err
	}
	rec := storage.Normalize(schema, doc)
	if rec[field] != value {
		return nil, storage.NotFound(kind, value)
	}
	return rec, nil
}

// Update merges the patch into the stored document and replaces it.
// Concurrent updates are last-write-wins.
func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, patch storage.Fields) (storage.Record, error) {
	schema, changes, err := storage.PrepareUpdate(kind, patch)
	if err != nil {
		return nil, err
	}
	doc, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return storage.Normalize(schema, doc), nil
	}

	for k, v := range changes {
		doc[k] = v
	}
	if err := s.engine.Replace(ctx, string(kind), id, doc); err != nil {
		if errors.Is(err, ErrMissing) {
			return nil, storage.NotFound(kind, id)
		}
		return nil, storage.Backend("replace "+string(kind), err)
	}
	return storage.Normalize(schema, doc), nil
}

// Delete removes the document, and with it any embedded children, then frees
// its unique markers.
func (s *Store) Delete(ctx context.Context, kind storage.Kind, id string) error {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	var doc Doc
	unique := schema.UniqueFields()
	if len(unique) > 0 {
		doc, err = s.get(ctx, kind, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := s.engine.Delete(ctx, string(kind), id); err != nil {
		return storage.Backend("delete "+string(kind), err)
	}

	keys := make([]string, 0, len(unique))
	for _, f := range unique {
		keys = append(keys, uniqueKey(kind, f.Name, doc[f.Name]))
	}
	s.release(ctx, keys, id)
	return nil
}

// List scans the collection and keeps matching records, newest first.
func (s *Store) List(ctx context.Context, kind storage.Kind, filter *storage.Filter) ([]storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	filter, err = storage.ValidateFilter(schema, filter)
	if err != nil {
		return nil, err
	}

	docs, err := s.engine.Scan(ctx, string(kind), filter)
	if err != nil {
		return nil, storage.Backend("scan "+string(kind), err)
	}

	out := make([]storage.Record, 0, len(docs))
	for _, doc := range docs {
		rec := storage.Normalize(schema, doc)
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) get(ctx context.Context, kind storage.Kind, id string) (Doc, error) {
	if id == "" {
		return nil, storage.NotFound(kind, id)
	}
	doc, err := s.engine.Get(ctx, string(kind), id)
	if errors.Is(err, ErrMissing) {
		return nil, storage.NotFound(kind, id)
	}
	if err != nil {
		return nil, storage.Backend("get "+string(kind), err)
	}
	return doc, nil
}

// staleClaimAfter is how long a marker whose document never appeared is
// still treated as an in-flight create.
const staleClaimAfter = time.Minute

// claim takes the unique marker key for id. A marker left behind by a write
// that never completed (its document is gone) is taken over once it is older
// than staleClaimAfter.
func (s *Store) claim(ctx context.Context, key string, kind storage.Kind, id string) error {
	now := s.now().UTC()
	marker := Doc{storage.FieldID: key, "ref": id, "claimed_at": now.Format(storage.TimestampLayout)}
	err := s.engine.Insert(ctx, UniqueCollection, key, marker)
	if !errors.Is(err, ErrExists) {
		return err
	}

	existing, err := s.engine.Get(ctx, UniqueCollection, key)
	if errors.Is(err, ErrMissing) {
		return s.engine.Insert(ctx, UniqueCollection, key, marker)
	}
	if err != nil {
		return err
	}
	if claimedAt, _ := existing["claimed_at"].(string); claimedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, claimedAt); err == nil && now.Sub(t) < staleClaimAfter {
			return ErrExists
		}
	}
	ref, _ := existing["ref"].(string)
	if _, err := s.engine.Get(ctx, string(kind), ref); !errors.Is(err, ErrMissing) {
		if err != nil {
			return err
		}
		return ErrExists
	}
	return s.engine.Replace(ctx, UniqueCollection, key, marker)
}

// release deletes markers still pointing at id. Failures are ignored: a stale
// marker is taken over by the next claim.
func (s *Store) release(ctx context.Context, keys []string, id string) {
	for _, key := range keys {
		marker, err := s.engine.Get(ctx, UniqueCollection, key)
		if err != nil {
			continue
		}
		if ref, _ := marker["ref"].(string); ref == id {
			_ = s.engine.Delete(ctx, UniqueCollection, key)
		}
	}
}

func uniqueKey(kind storage.Kind, field string, value any) string {
	return fmt.Sprintf("%s/%s/%v", kind, field, value)
}

func sortNewestFirst(recs []storage.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, _ := recs[i][storage.FieldCreatedAt].(string)
		b, _ := recs[j][storage.FieldCreatedAt].(string)
		if a != b {
			return a > b
		}
		return recs[i].ID() > recs[j].ID()
	})
}
