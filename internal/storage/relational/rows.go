package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/norahq/nora/internal/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

// scanRow reads one row laid out as the optional lead columns followed by fields.
func scanRow(row scanner, fields []storage.Field, lead ...any) (map[string]any, error) {
	dest := make([]any, 0, len(lead)+len(fields))
	dest = append(dest, lead...)
	for _, f := range fields {
		dest = append(dest, scanTarget(f.Type))
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	raw := make(map[string]any, len(fields)+1)
	for i, f := range fields {
		v, err := fromColumn(f, dest[len(lead)+i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		raw[f.Name] = v
	}
	return raw, nil
}

func scanTarget(t storage.FieldType) any {
	switch t {
	case storage.TypeNumber:
		return new(sql.NullFloat64)
	case storage.TypeInteger:
		return new(sql.NullInt64)
	case storage.TypeBool:
		return new(sql.NullBool)
	default:
		return new(sql.NullString)
	}
}

func fromColumn(f storage.Field, target any) (any, error) {
	switch v := target.(type) {
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64, nil
		}
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64, nil
		}
	case *sql.NullBool:
		if v.Valid {
			return v.Bool, nil
		}
	case *sql.NullString:
		if !v.Valid {
			return nil, nil
		}
		if f.Type == storage.TypeStringList {
			var list []string
			if err := json.Unmarshal([]byte(v.String), &list); err != nil {
				return nil, err
			}
			if list == nil {
				list = []string{}
			}
			return list, nil
		}
		return v.String, nil
	}
	return nil, nil
}

// toColumn converts a prepared value into a driver argument.
func toColumn(f storage.Field, v any) any {
	if v == nil {
		return nil
	}
	if f.Type == storage.TypeStringList {
		data, err := json.Marshal(v)
		if err != nil {
			return "[]"
		}
		return string(data)
	}
	return v
}

func (s *Store) insertChildren(ctx context.Context, tx *sql.Tx, set *storage.ChildSet, parentID int64, children []storage.Fields) error {
	cols := []string{quote(set.ParentColumn), quote(positionColumn)}
	for _, f := range set.Fields {
		cols = append(cols, quote(f.Name))
	}
	query := s.dialect.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(set.Table), strings.Join(cols, ", "), placeholders(len(cols))))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return storage.Backend("prepare "+set.Table+" insert", err)
	}
	defer stmt.Close()

	for i, child := range children {
		args := []any{parentID, i}
		for _, f := range set.Fields {
			args = append(args, toColumn(f, child[f.Name]))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return storage.Backend("insert "+set.Table, err)
		}
	}
	return nil
}

// childBatchSize bounds the ids bound into one child query. SQLite caps host
// parameters per statement.
var childBatchSize = 500

// loadChildren returns the child rows of every parent in ids, keyed by parent
// id and kept in submission order.
func (s *Store) loadChildren(ctx context.Context, set *storage.ChildSet, ids []int64) (map[int64][]any, error) {
	out := make(map[int64][]any, len(ids))
	for _, id := range ids {
		out[id] = []any{}
	}
	for start := 0; start < len(ids); start += childBatchSize {
		end := min(start+childBatchSize, len(ids))
		if err := s.loadChildBatch(ctx, set, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadChildBatch(ctx context.Context, set *storage.ChildSet, ids []int64, out map[int64][]any) error {
	cols := []string{quote(set.ParentColumn)}
	for _, f := range set.Fields {
		cols = append(cols, quote(f.Name))
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) ORDER BY %s, %s",
		strings.Join(cols, ", "), quote(set.Table), quote(set.ParentColumn), placeholders(len(ids)),
		quote(set.ParentColumn), quote(positionColumn))

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return storage.Backend("query "+set.Table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var parent int64
		raw, err := scanRow(rows, set.Fields, &parent)
		if err != nil {
			return storage.Backend("scan "+set.Table, err)
		}
		out[parent] = append(out[parent], raw)
	}
	if err := rows.Err(); err != nil {
		return storage.Backend("query "+set.Table, err)
	}
	return nil
}
