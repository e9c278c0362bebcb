package relational

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/norahq/nora/internal/storage"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name   string
	Driver string

	idColumn  string
	refType   string
	types     map[storage.FieldType]string
	numbered  bool
	uniqueErr func(error) bool
}

// SQLite is the embedded engine used for local runs and tests.
var SQLite = Dialect{
	Name:     "sqlite",
	Driver:   "sqlite",
	idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT",
	refType:  "INTEGER",
	types: map[storage.FieldType]string{
		storage.TypeString:     "TEXT",
		storage.TypeNumber:     "REAL",
		storage.TypeInteger:    "INTEGER",
		storage.TypeBool:       "INTEGER",
		storage.TypeDate:       "TEXT",
		storage.TypeTimestamp:  "TEXT",
		storage.TypeStringList: "TEXT",
	},
	uniqueErr: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
}

// Postgres is the server engine, reached through the pgx database/sql driver.
var Postgres = Dialect{
	Name:     "postgres",
	Driver:   "pgx",
	idColumn: "id BIGSERIAL PRIMARY KEY",
	refType:  "BIGINT",
	numbered: true,
	types: map[storage.FieldType]string{
		storage.TypeString:     "TEXT",
		storage.TypeNumber:     "DOUBLE PRECISION",
		storage.TypeInteger:    "BIGINT",
		storage.TypeBool:       "BOOLEAN",
		storage.TypeDate:       "TEXT",
		storage.TypeTimestamp:  "TEXT",
		storage.TypeStringList: "TEXT",
	},
	uniqueErr: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

// rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) columnType(t storage.FieldType) string {
	return d.types[t]
}

func (d Dialect) isUniqueViolation(err error) bool {
	return d.uniqueErr != nil && d.uniqueErr(err)
}

// quote wraps an identifier so names like "date" and "number" stay portable.
func quote(name string) string {
	return `"` + name + `"`
}
