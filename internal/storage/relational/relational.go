// Package relational implements storage.Store on a SQL engine (SQLite or
// PostgreSQL). Keys are engine-issued integers, filters become WHERE clauses
// and parent/child writes share one transaction.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver (no CGO)

	"github.com/norahq/nora/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the SQLite database at path and runs migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(SQLite.Driver, path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; a single connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store, err := New(ctx, db, SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgres connects to PostgreSQL with the given DSN and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := New(ctx, db, Postgres)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database handle. The schema is created if missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := runMigrations(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db, dialect: dialect, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts the record and, for kinds with children, every child row in
// the same transaction. Nothing is left behind if any statement fails.
func (s *Store) Create(ctx context.Context, kind storage.Kind, fields storage.Fields) (storage.Record, error) {
	schema, prepared, err := storage.PrepareCreate(kind, fields, s.now())
	if err != nil {
		return nil, err
	}
	for _, f := range schema.UniqueFields() {
		if err := s.checkUnique(ctx, schema, f.Name, prepared.Fields[f.Name]); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Backend("begin transaction", err)
	}
	defer tx.Rollback()

	cols := make([]string, 0, len(schema.Fields))
	args := make([]any, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		cols = append(cols, quote(f.Name))
		args = append(args, toColumn(f, prepared.Fields[f.Name]))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		quote(string(kind)), strings.Join(cols, ", "), placeholders(len(cols)))

	var id int64
	if err := tx.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&id); err != nil {
		return nil, s.writeError(kind, schema, prepared.Fields, "insert "+string(kind), err)
	}

	if schema.Children != nil {
		if err := s.insertChildren(ctx, tx, schema.Children, id, prepared.Children); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Backend("commit transaction", err)
	}

	raw := make(map[string]any, len(prepared.Fields)+2)
	for k, v := range prepared.Fields {
		raw[k] = v
	}
	raw[storage.FieldID] = storage.FormatSequenceID(id)
	if schema.Children != nil {
		items := make([]any, len(prepared.Children))
		for i, child := range prepared.Children {
			items[i] = map[string]any(child)
		}
		raw[schema.Children.Name] = items
	}
	return storage.Normalize(schema, raw), nil
}

// Get retrieves a record and its children by id.
func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	n, ok := storage.ParseSequenceID(id)
	if !ok {
		return nil, storage.NotFound(kind, id)
	}

	recs, err := s.query(ctx, schema, "WHERE id = ?", []any{n})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.NotFound(kind, id)
	}
	return recs[0], nil
}

// GetByKey retrieves a record by a unique field.
func (s *Store) GetByKey(ctx context.Context, kind storage.Kind, field, value string) (storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	f, ok := schema.Field(field)
	if !ok || !f.Unique {
		return nil, storage.Validationf("%s is not a unique field of %s", field, kind)
	}

	recs, err := s.query(ctx, schema, fmt.Sprintf("WHERE %s = ?", quote(field)), []any{value})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.NotFound(kind, value)
	}
	return recs[0], nil
}

// Update overwrites the supplied columns only.
func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, patch storage.Fields) (storage.Record, error) {
	schema, changes, err := storage.PrepareUpdate(kind, patch)
	if err != nil {
		return nil, err
	}
	n, ok := storage.ParseSequenceID(id)
	if !ok {
		return nil, storage.NotFound(kind, id)
	}
	if len(changes) == 0 {
		return s.Get(ctx, kind, id)
	}

	sets := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, f := range schema.Fields {
		v, ok := changes[f.Name]
		if !ok {
			continue
		}
		sets = append(sets, quote(f.Name)+" = ?")
		args = append(args, toColumn(f, v))
	}
	args = append(args, n)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quote(string(kind)), strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, storage.Backend("update "+string(kind), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storage.Backend("update "+string(kind), err)
	}
	if affected == 0 {
		return nil, storage.NotFound(kind, id)
	}
	return s.Get(ctx, kind, id)
}

// Delete removes the record and its children. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, kind storage.Kind, id string) error {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return err
	}
	n, ok := storage.ParseSequenceID(id)
	if !ok {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Backend("begin transaction", err)
	}
	defer tx.Rollback()

	if c := schema.Children; c != nil {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(c.Table), quote(c.ParentColumn))
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), n); err != nil {
			return storage.Backend("delete "+c.Table, err)
		}
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", quote(string(kind)))
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), n); err != nil {
		return storage.Backend("delete "+string(kind), err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Backend("commit transaction", err)
	}
	return nil
}

// List returns matching records, newest id first.
func (s *Store) List(ctx context.Context, kind storage.Kind, filter *storage.Filter) ([]storage.Record, error) {
	schema, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	filter, err = storage.ValidateFilter(schema, filter)
	if err != nil {
		return nil, err
	}

	where, args := whereClause(schema, filter)
	return s.query(ctx, schema, where, args)
}

func (s *Store) checkUnique(ctx context.Context, schema *storage.Schema, field string, value any) error {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", quote(string(schema.Kind)), quote(field))
	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), value).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return storage.Backend("check unique "+field, err)
	default:
		return storage.Conflict(schema.Kind, field, fmt.Sprint(value))
	}
}

// writeError maps a unique violation raced past checkUnique to a conflict.
func (s *Store) writeError(kind storage.Kind, schema *storage.Schema, fields storage.Fields, op string, err error) error {
	if unique := schema.UniqueFields(); len(unique) > 0 && s.dialect.isUniqueViolation(err) {
		return storage.Conflict(kind, unique[0].Name, fmt.Sprint(fields[unique[0].Name]))
	}
	return storage.Backend(op, err)
}

// query selects parent rows matching where, ordered by id descending, and
// attaches their children.
func (s *Store) query(ctx context.Context, schema *storage.Schema, where string, args []any) ([]storage.Record, error) {
	cols := []string{"id"}
	for _, f := range schema.Fields {
		cols = append(cols, quote(f.Name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY id DESC",
		strings.Join(cols, ", "), quote(string(schema.Kind)), where)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, storage.Backend("query "+string(schema.Kind), err)
	}
	defer rows.Close()

	var raws []map[string]any
	var ids []int64
	for rows.Next() {
		var id int64
		raw, err := scanRow(rows, schema.Fields, &id)
		if err != nil {
			return nil, storage.Backend("scan "+string(schema.Kind), err)
		}
		raw[storage.FieldID] = storage.FormatSequenceID(id)
		raws = append(raws, raw)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend("query "+string(schema.Kind), err)
	}
	if err := rows.Close(); err != nil {
		return nil, storage.Backend("query "+string(schema.Kind), err)
	}

	if schema.Children != nil && len(ids) > 0 {
		children, err := s.loadChildren(ctx, schema.Children, ids)
		if err != nil {
			return nil, err
		}
		for i, raw := range raws {
			raw[schema.Children.Name] = children[ids[i]]
		}
	}

	out := make([]storage.Record, 0, len(raws))
	for _, raw := range raws {
		out = append(out, storage.Normalize(schema, raw))
	}
	return out, nil
}

// whereClause translates a validated filter into a WHERE clause.
func whereClause(schema *storage.Schema, filter *storage.Filter) (string, []any) {
	if filter.IsEmpty() {
		return "", nil
	}

	var conds []string
	var args []any
	for _, f := range schema.Fields {
		v, ok := filter.Equal[f.Name]
		if !ok {
			continue
		}
		if v == nil {
			conds = append(conds, quote(f.Name)+" IS NULL")
			continue
		}
		conds = append(conds, quote(f.Name)+" = ?")
		args = append(args, toColumn(f, v))
	}
	for _, r := range filter.Between {
		f, _ := schema.Field(r.Field)
		col := quote(r.Field)
		switch {
		case r.From != nil && r.To != nil:
			conds = append(conds, col+" BETWEEN ? AND ?")
			args = append(args, toColumn(f, r.From), toColumn(f, r.To))
		case r.From != nil:
			conds = append(conds, col+" >= ?")
			args = append(args, toColumn(f, r.From))
		default:
			conds = append(conds, col+" <= ?")
			args = append(args, toColumn(f, r.To))
		}
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
