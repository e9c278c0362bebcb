package relational

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/storetest"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newSQLiteStore(t)
	})
}

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	storetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		store, err := OpenPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("Failed to open postgres: %v", err)
		}
		_, err = store.db.ExecContext(ctx,
			`TRUNCATE "line_items", "invoices", "expenses", "time_entries", "contacts", "users" RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("Failed to reset tables: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("ids are sequential integers", func(t *testing.T) {
		store := newSQLiteStore(t)
		first, err := store.Create(ctx, storage.KindContact, storage.Fields{"full_name": "A", "email": "a@example.com"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		second, err := store.Create(ctx, storage.KindContact, storage.Fields{"full_name": "B", "email": "b@example.com"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if first.ID() != "1" || second.ID() != "2" {
			t.Errorf("Expected ids 1 and 2, got %s and %s", first.ID(), second.ID())
		}
	})

	t.Run("delete removes line item rows", func(t *testing.T) {
		store := newSQLiteStore(t)
		inv, err := store.Create(ctx, storage.KindInvoice, storage.Fields{
			"number": "INV-1",
			"items": []any{
				map[string]any{"quantity": 1, "unit_price": 10},
				map[string]any{"quantity": 2, "unit_price": 5},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if n := countLineItems(t, store, inv.ID()); n != 2 {
			t.Fatalf("Expected 2 line item rows, got %d", n)
		}
		if err := store.Delete(ctx, storage.KindInvoice, inv.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if n := countLineItems(t, store, inv.ID()); n != 0 {
			t.Errorf("Expected line items to be deleted, found %d", n)
		}
	})

	t.Run("failed child insert leaves no invoice behind", func(t *testing.T) {
		store := newSQLiteStore(t)
		if _, err := store.db.ExecContext(ctx, `DROP TABLE "line_items"`); err != nil {
			t.Fatalf("Failed to drop table: %v", err)
		}

		_, err := store.Create(ctx, storage.KindInvoice, storage.Fields{
			"number": "INV-1",
			"items":  []any{map[string]any{"quantity": 1, "unit_price": 10}},
		})
		if storage.CodeOf(err) != storage.CodeBackend {
			t.Fatalf("Expected backend error, got %v", err)
		}

		var n int
		if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "invoices"`).Scan(&n); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected the invoice insert to be rolled back, found %d rows", n)
		}
	})

	t.Run("line items load across several batches", func(t *testing.T) {
		defer func(n int) { childBatchSize = n }(childBatchSize)
		childBatchSize = 2

		store := newSQLiteStore(t)
		for i := 1; i <= 5; i++ {
			items := make([]any, i)
			for j := range items {
				items[j] = map[string]any{"quantity": j + 1, "unit_price": 10}
			}
			if _, err := store.Create(ctx, storage.KindInvoice, storage.Fields{
				"number": fmt.Sprintf("INV-%d", i),
				"items":  items,
			}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		invoices, err := store.List(ctx, storage.KindInvoice, nil)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(invoices) != 5 {
			t.Fatalf("Expected 5 invoices, got %d", len(invoices))
		}
		for _, inv := range invoices {
			var want int
			fmt.Sscanf(inv["number"].(string), "INV-%d", &want)
			items := inv["items"].([]storage.Record)
			if len(items) != want {
				t.Errorf("Invoice %v: expected %d items, got %d", inv["number"], want, len(items))
				continue
			}
			for j, item := range items {
				if item["quantity"] != float64(j+1) {
					t.Errorf("Invoice %v item %d: expected quantity %d, got %v", inv["number"], j, j+1, item["quantity"])
				}
			}
		}
	})

	t.Run("closed database is a backend error", func(t *testing.T) {
		store := newSQLiteStore(t)
		store.Close()
		_, err := store.List(ctx, storage.KindContact, nil)
		if storage.CodeOf(err) != storage.CodeBackend {
			t.Errorf("Expected backend error, got %v", err)
		}
	})

	t.Run("data survives reopening", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "nora.db")
		store, err := OpenSQLite(ctx, dbPath)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		rec, err := store.Create(ctx, storage.KindExpense, storage.Fields{"date": "2024-01-01", "amount": 9.99})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		store.Close()

		reopened, err := OpenSQLite(ctx, dbPath)
		if err != nil {
			t.Fatalf("Reopen failed: %v", err)
		}
		defer reopened.Close()
		got, err := reopened.Get(ctx, storage.KindExpense, rec.ID())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got["amount"] != 9.99 {
			t.Errorf("Expected amount 9.99, got %v", got["amount"])
		}
	})
}

func TestDialects(t *testing.T) {
	t.Run("postgres placeholders are numbered", func(t *testing.T) {
		got := Postgres.rebind(`SELECT 1 FROM "x" WHERE "a" = ? AND "b" BETWEEN ? AND ?`)
		want := `SELECT 1 FROM "x" WHERE "a" = $1 AND "b" BETWEEN $2 AND $3`
		if got != want {
			t.Errorf("rebind = %q, want %q", got, want)
		}
		if SQLite.rebind("a = ?") != "a = ?" {
			t.Error("SQLite placeholders must be left alone")
		}
	})

	t.Run("generated schema", func(t *testing.T) {
		ddl := strings.Join(schemaStatements(Postgres), ";\n")
		for _, want := range []string{
			`CREATE TABLE IF NOT EXISTS "users"`,
			`"username" TEXT NOT NULL UNIQUE`,
			`"invoice_id" BIGINT NOT NULL REFERENCES "invoices"(id) ON DELETE CASCADE`,
			`"is_paid" BOOLEAN`,
			`"hours" BIGINT`,
			`id BIGSERIAL PRIMARY KEY`,
		} {
			if !strings.Contains(ddl, want) {
				t.Errorf("Expected DDL to contain %q", want)
			}
		}
	})
}

func countLineItems(t *testing.T, store *Store, invoiceID string) int {
	t.Helper()
	var n int
	err := store.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM "line_items" WHERE "invoice_id" = ?`, invoiceID).Scan(&n)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}
