package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/norahq/nora/internal/storage"
)

// positionColumn keeps child rows in the order they were submitted.
const positionColumn = "position"

// schemaStatements generates the DDL for every registered kind.
// Parent tables are created before their child tables.
func schemaStatements(d Dialect) []string {
	var stmts []string
	for _, kind := range storage.Kinds() {
		schema := storage.MustLookup(kind)
		table := string(kind)

		cols := []string{d.idColumn}
		for _, f := range schema.Fields {
			cols = append(cols, columnDef(d, f))
		}
		stmts = append(stmts, createTable(table, cols))

		for _, f := range schema.Fields {
			if f.Type == storage.TypeDate {
				stmts = append(stmts, createIndex(table, f.Name))
			}
		}

		if c := schema.Children; c != nil {
			childCols := []string{
				d.idColumn,
				fmt.Sprintf("%s %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE", quote(c.ParentColumn), d.refType, quote(table)),
				fmt.Sprintf("%s INTEGER NOT NULL", quote(positionColumn)),
			}
			for _, f := range c.Fields {
				childCols = append(childCols, columnDef(d, f))
			}
			stmts = append(stmts, createTable(c.Table, childCols))
			stmts = append(stmts, createIndex(c.Table, c.ParentColumn))
		}
	}
	return stmts
}

func columnDef(d Dialect, f storage.Field) string {
	def := quote(f.Name) + " " + d.columnType(f.Type)
	if f.Required {
		def += " NOT NULL"
	}
	if f.Unique {
		def += " UNIQUE"
	}
	return def
}

func createTable(table string, cols []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", quote(table), strings.Join(cols, ",\n    "))
}

func createIndex(table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		quote("idx_"+table+"_"+column), quote(table), quote(column))
}

// runMigrations creates any missing tables and indexes.
func runMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range schemaStatements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute ddl: %w", err)
		}
	}
	return nil
}
