// Package redis is a document.Engine backed by Redis. Each document is a JSON
// string under <prefix>:<collection>:<id>, and each collection keeps a set of
// its ids under <prefix>:<collection> for scans.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
)

// Ensure Engine implements document.Engine
var _ document.Engine = (*Engine)(nil)

// Engine stores documents in Redis.
type Engine struct {
	rdb    *redis.Client
	prefix string
}

// New connects to the Redis server at url and checks the connection.
func New(ctx context.Context, url, prefix string) (*Engine, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(rdb, prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, prefix string) *Engine {
	return &Engine{rdb: rdb, prefix: prefix}
}

func (e *Engine) docKey(collection, id string) string {
	return e.prefix + ":" + collection + ":" + id
}

func (e *Engine) indexKey(collection string) string {
	return e.prefix + ":" + collection
}

// insertScript writes the document and indexes its id in one step, so a
// document is never visible without its index entry.
var insertScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("SADD", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

func (e *Engine) Insert(ctx context.Context, collection, id string, doc document.Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	created, err := insertScript.Run(ctx, e.rdb,
		[]string{e.docKey(collection, id), e.indexKey(collection)}, data, id).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return document.ErrExists
	}
	return nil
}

func (e *Engine) Replace(ctx context.Context, collection, id string, doc document.Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	ok, err := e.rdb.SetXX(ctx, e.docKey(collection, id), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return document.ErrMissing
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, collection, id string) (document.Doc, error) {
	data, err := e.rdb.Get(ctx, e.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, document.ErrMissing
	}
	if err != nil {
		return nil, err
	}
	var doc document.Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func (e *Engine) Delete(ctx context.Context, collection, id string) error {
	_, err := e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, e.docKey(collection, id))
		pipe.SRem(ctx, e.indexKey(collection), id)
		return nil
	})
	return err
}

// Scan reads every id in the collection index and fetches the documents in one
// MGET. The hint is not used.
func (e *Engine) Scan(ctx context.Context, collection string, _ *storage.Filter) ([]document.Doc, error) {
	ids, err := e.rdb.SMembers(ctx, e.indexKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = e.docKey(collection, id)
	}
	values, err := e.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]document.Doc, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		var doc document.Doc
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Ping checks connectivity
func (e *Engine) Ping(ctx context.Context) error {
	return e.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (e *Engine) Close() error {
	return e.rdb.Close()
}
