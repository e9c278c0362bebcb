// Package storetest is the behavioral contract every storage.Store must meet.
// Adapter packages call Run from their own tests with a constructor for a
// fresh, empty store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norahq/nora/internal/models"
	"github.com/norahq/nora/internal/reports"
	"github.com/norahq/nora/internal/storage"
)

// Factory returns an empty store. It should register cleanup with t.
type Factory func(t *testing.T) storage.Store

// Run exercises the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create then get returns every submitted field", func(t *testing.T) {
		s := newStore(t)
		in := storage.Fields{
			"full_name":    "Ada Lovelace",
			"email":        "ada@example.com",
			"company_name": "Analytical Engines",
			"category":     "customer",
			"language":     "en",
			"currency":     "GBP",
		}

		created, err := s.Create(ctx, storage.KindContact, in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID())
		assert.NotEmpty(t, created[storage.FieldCreatedAt])

		got, err := s.Get(ctx, storage.KindContact, created.ID())
		require.NoError(t, err)
		for k, v := range in {
			assert.Equal(t, v, got[k], k)
		}
		assert.Equal(t, created, got)
	})

	t.Run("missing required fields are a validation error", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, storage.KindContact, storage.Fields{"full_name": "No Email"})
		assert.ErrorIs(t, err, storage.ErrValidation)

		list, err := s.List(ctx, storage.KindContact, nil)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("blank required text is a validation error", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, storage.KindContact, storage.Fields{"full_name": "", "email": ""})
		assert.ErrorIs(t, err, storage.ErrValidation)
		_, err = s.Create(ctx, storage.KindUser, storage.Fields{"username": "", "password": ""})
		assert.ErrorIs(t, err, storage.ErrValidation)
		_, err = s.Create(ctx, storage.KindExpense, storage.Fields{"date": " "})
		assert.ErrorIs(t, err, storage.ErrValidation)

		contact, err := s.Create(ctx, storage.KindContact, storage.Fields{"full_name": "Ada", "email": "ada@example.com"})
		require.NoError(t, err)
		_, err = s.Update(ctx, storage.KindContact, contact.ID(), storage.Fields{"email": "   "})
		assert.ErrorIs(t, err, storage.ErrValidation)

		got, err := s.Get(ctx, storage.KindContact, contact.ID())
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got["email"])
		_, err = s.GetByKey(ctx, storage.KindUser, "username", "")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("get of unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"999999", "not-an-id", ""} {
			_, err := s.Get(ctx, storage.KindExpense, id)
			assert.ErrorIs(t, err, storage.ErrNotFound, id)
		}
	})

	t.Run("invoice total is the exact sum of its items", func(t *testing.T) {
		s := newStore(t)
		items := make([]any, 0, 100)
		for i := 0; i < 100; i++ {
			items = append(items, map[string]any{"description": "line", "quantity": 1, "unit_price": 0.1})
		}
		items = append(items, map[string]any{"quantity": 3, "unit_price": 19.99, "taxes": []string{"VAT"}})

		created, err := s.Create(ctx, storage.KindInvoice, storage.Fields{
			"number": "INV-100",
			"date":   "2024-01-10",
			"items":  items,
		})
		require.NoError(t, err)
		assert.Equal(t, 69.97, created["total"])
		assert.Equal(t, "draft", created["status"])

		got, err := s.Get(ctx, storage.KindInvoice, created.ID())
		require.NoError(t, err)
		assert.Equal(t, 69.97, got["total"])
		gotItems, ok := got["items"].([]storage.Record)
		require.True(t, ok)
		require.Len(t, gotItems, 101)
		assert.Equal(t, []string{"VAT"}, gotItems[100]["taxes"])
		assert.Equal(t, []string{}, gotItems[0]["taxes"])
	})

	t.Run("invoice without items is rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, storage.KindInvoice, storage.Fields{"number": "INV-0", "items": []any{}})
		assert.ErrorIs(t, err, storage.ErrValidation)
		_, err = s.Create(ctx, storage.KindInvoice, storage.Fields{"number": "INV-0"})
		assert.ErrorIs(t, err, storage.ErrValidation)

		list, err := s.List(ctx, storage.KindInvoice, nil)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete of a missing id succeeds", func(t *testing.T) {
		s := newStore(t)
		for _, kind := range storage.Kinds() {
			assert.NoError(t, s.Delete(ctx, kind, "424242"), kind)
			assert.NoError(t, s.Delete(ctx, kind, "does-not-exist"), kind)
			assert.NoError(t, s.Delete(ctx, kind, ""), kind)
		}
	})

	t.Run("partial update keeps unspecified fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, storage.KindContact, storage.Fields{
			"full_name":    "Grace Hopper",
			"email":        "grace@navy.mil",
			"company_name": "US Navy",
		})
		require.NoError(t, err)

		updated, err := s.Update(ctx, storage.KindContact, created.ID(), storage.Fields{"email": "grace@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", updated["email"])
		assert.Equal(t, "Grace Hopper", updated["full_name"])
		assert.Equal(t, "US Navy", updated["company_name"])
		assert.Equal(t, created[storage.FieldCreatedAt], updated[storage.FieldCreatedAt])

		got, err := s.Get(ctx, storage.KindContact, created.ID())
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("explicit nil clears an optional field", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, storage.KindExpense, storage.Fields{
			"date":        "2024-01-01",
			"vendor_name": "Coffee Co",
			"amount":      12.5,
		})
		require.NoError(t, err)

		updated, err := s.Update(ctx, storage.KindExpense, created.ID(), storage.Fields{"vendor_name": nil, "is_paid": true})
		require.NoError(t, err)
		assert.Nil(t, updated["vendor_name"])
		assert.Equal(t, true, updated["is_paid"])
		assert.Equal(t, 12.5, updated["amount"])
	})

	t.Run("update of a missing id is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(ctx, storage.KindContact, "123456", storage.Fields{"email": "x@example.com"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Update(ctx, storage.KindContact, "nope", storage.Fields{"email": "x@example.com"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invoice items and total cannot be updated", func(t *testing.T) {
		s := newStore(t)
		created := createInvoice(t, s, "INV-7", "2024-01-01", 10)

		_, err := s.Update(ctx, storage.KindInvoice, created.ID(), storage.Fields{"total": 1})
		assert.ErrorIs(t, err, storage.ErrValidation)
		_, err = s.Update(ctx, storage.KindInvoice, created.ID(), storage.Fields{
			"items": []any{map[string]any{"quantity": 1, "unit_price": 1}},
		})
		assert.ErrorIs(t, err, storage.ErrValidation)

		voided, err := s.Update(ctx, storage.KindInvoice, created.ID(), storage.Fields{"status": "void"})
		require.NoError(t, err)
		assert.Equal(t, "void", voided["status"])
		assert.Equal(t, 10.0, voided["total"])
		assert.Len(t, voided["items"], 1)
	})

	t.Run("duplicate username conflicts and keeps the first password", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Create(ctx, storage.KindUser, storage.Fields{"username": "alice", "password": "hash-1"})
		require.NoError(t, err)

		_, err = s.Create(ctx, storage.KindUser, storage.Fields{"username": "alice", "password": "hash-2"})
		assert.ErrorIs(t, err, storage.ErrConflict)

		got, err := s.GetByKey(ctx, storage.KindUser, "username", "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID(), got.ID())
		assert.Equal(t, "hash-1", got["password"])

		users, err := s.List(ctx, storage.KindUser, nil)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("get by key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetByKey(ctx, storage.KindUser, "username", "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetByKey(ctx, storage.KindContact, "email", "a@example.com")
		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("username is released when the user is deleted", func(t *testing.T) {
		s := newStore(t)
		u, err := s.Create(ctx, storage.KindUser, storage.Fields{"username": "bob", "password": "h"})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, storage.KindUser, u.ID()))

		_, err = s.Create(ctx, storage.KindUser, storage.Fields{"username": "bob", "password": "h2"})
		assert.NoError(t, err)
	})

	t.Run("deleting an invoice removes its items", func(t *testing.T) {
		s := newStore(t)
		inv := createInvoice(t, s, "INV-9", "2024-01-01", 5)
		keep := createInvoice(t, s, "INV-10", "2024-01-02", 6)

		require.NoError(t, s.Delete(ctx, storage.KindInvoice, inv.ID()))
		_, err := s.Get(ctx, storage.KindInvoice, inv.ID())
		assert.ErrorIs(t, err, storage.ErrNotFound)

		list, err := s.List(ctx, storage.KindInvoice, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, keep.ID(), list[0].ID())
		assert.Len(t, list[0]["items"], 1)
	})

	t.Run("list filters by equality and inclusive date range", func(t *testing.T) {
		s := newStore(t)
		for _, e := range []storage.Fields{
			{"date": "2024-01-01", "amount": 10, "is_paid": true},
			{"date": "2024-01-15", "amount": 20, "is_paid": false},
			{"date": "2024-01-31", "amount": 30, "is_paid": true, "vendor_name": "Rent"},
			{"date": "2024-02-01", "amount": 40, "is_paid": true},
		} {
			_, err := s.Create(ctx, storage.KindExpense, e)
			require.NoError(t, err)
		}

		all, err := s.List(ctx, storage.KindExpense, nil)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		january, err := s.List(ctx, storage.KindExpense, storage.Within("date", "2024-01-01", "2024-01-31"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []float64{10, 20, 30}, amounts(january))

		paidJanuary, err := s.List(ctx, storage.KindExpense,
			storage.Where("is_paid", true).In("date", "2024-01-01", "2024-01-31"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []float64{10, 30}, amounts(paidJanuary))

		noVendor, err := s.List(ctx, storage.KindExpense, storage.Where("vendor_name", nil))
		require.NoError(t, err)
		assert.Len(t, noVendor, 3)

		_, err = s.List(ctx, storage.KindExpense, storage.Where("colour", "red"))
		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("list returns newest first", func(t *testing.T) {
		s := newStore(t)
		var ids []string
		for _, name := range []string{"first", "second", "third"} {
			rec, err := s.Create(ctx, storage.KindContact, storage.Fields{"full_name": name, "email": name + "@example.com"})
			require.NoError(t, err)
			ids = append(ids, rec.ID())
			time.Sleep(2 * time.Millisecond)
		}

		list, err := s.List(ctx, storage.KindContact, nil)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID(), list[1].ID(), list[2].ID()})
	})

	t.Run("integer fields round trip as integers", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, storage.KindTimeEntry, storage.Fields{"date": "2024-03-01", "hours": 2, "minutes": 30})
		require.NoError(t, err)

		got, err := s.Get(ctx, storage.KindTimeEntry, created.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(2), got["hours"])
		assert.Equal(t, int64(30), got["minutes"])
	})

	t.Run("dashboard over empty store is zero", func(t *testing.T) {
		s := newStore(t)
		dash, err := reports.NewBuilder(s).Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Dashboard{}, *dash)
	})

	t.Run("dashboard folds invoices and expenses", func(t *testing.T) {
		s := newStore(t)
		createInvoice(t, s, "INV-1", "2024-01-01", 100)
		createInvoice(t, s, "INV-2", "2024-02-01", 50.5)
		_, err := s.Create(ctx, storage.KindExpense, storage.Fields{"date": "2024-01-02", "amount": 40})
		require.NoError(t, err)
		_, err = s.Create(ctx, storage.KindExpense, storage.Fields{"date": "2024-01-03"})
		require.NoError(t, err)

		dash, err := reports.NewBuilder(s).Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Dashboard{GrossProfit: 150.5, NetProfit: -40, CashInBank: 110.5}, *dash)
	})

	t.Run("calendar feed for a single day", func(t *testing.T) {
		s := newStore(t)
		createInvoice(t, s, "42", "2024-05-05", 100)
		createInvoice(t, s, "43", "2024-06-05", 999)
		_, err := s.Create(ctx, storage.KindExpense, storage.Fields{"date": "2024-05-05", "amount": 40, "vendor_name": "Printer"})
		require.NoError(t, err)

		feed, err := reports.NewBuilder(s).Calendar(ctx, "2024-05-05", "2024-05-05")
		require.NoError(t, err)
		assert.Equal(t, []models.CalendarEvent{
			{Date: "2024-05-05", Type: models.EventInvoice, Title: "Invoice #42", Amount: 100},
			{Date: "2024-05-05", Type: models.EventExpense, Title: "Printer", Amount: -40},
		}, feed.Events)
	})

	t.Run("typed collection round trip", func(t *testing.T) {
		s := newStore(t)
		contacts := storage.NewCollection[models.Contact](s, storage.KindContact)
		name, email := "Typed", "typed@example.com"

		created, err := contacts.Create(ctx, models.ContactFields{FullName: &name, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "Typed", created.FullName)

		lang := "fr"
		updated, err := contacts.Update(ctx, created.ID, models.ContactFields{Language: &lang})
		require.NoError(t, err)
		assert.Equal(t, "fr", updated.Language)
		assert.Equal(t, "typed@example.com", updated.Email)
	})
}

func createInvoice(t *testing.T, s storage.Store, number, date string, amount float64) storage.Record {
	t.Helper()
	rec, err := s.Create(context.Background(), storage.KindInvoice, storage.Fields{
		"number": number,
		"date":   date,
		"items":  []any{map[string]any{"description": "services", "quantity": 1, "unit_price": amount}},
	})
	require.NoError(t, err)
	return rec
}

func amounts(recs []storage.Record) []float64 {
	out := make([]float64, 0, len(recs))
	for _, r := range recs {
		v, _ := r["amount"].(float64)
		out = append(out, v)
	}
	return out
}
