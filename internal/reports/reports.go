// Package reports builds the derived views (calendar feed and dashboard) by
// composing plain store reads. It works the same on every backend because it
// only filters each kind separately and merges the results in memory.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/norahq/nora/internal/calculator"
	"github.com/norahq/nora/internal/models"
	"github.com/norahq/nora/internal/storage"
)

// Builder computes derived views over a store.
type Builder struct {
	invoices *storage.Collection[models.Invoice]
	expenses *storage.Collection[models.Expense]
}

// NewBuilder creates a Builder reading from store.
func NewBuilder(store storage.Store) *Builder {
	return &Builder{
		invoices: storage.NewCollection[models.Invoice](store, storage.KindInvoice),
		expenses: storage.NewCollection[models.Expense](store, storage.KindExpense),
	}
}

// Calendar returns invoice and expense events dated within [start, end].
// Invoices come first, then expenses; neither group is sorted.
func (b *Builder) Calendar(ctx context.Context, start, end string) (*models.CalendarFeed, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	invoices, err := b.invoices.List(ctx, storage.Within("date", start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	expenses, err := b.expenses.List(ctx, storage.Within("date", start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(invoices)+len(expenses))
	for _, inv := range invoices {
		events = append(events, models.CalendarEvent{
			Date:   inv.Date,
			Type:   models.EventInvoice,
			Title:  "Invoice #" + inv.Number,
			Amount: inv.Total,
		})
	}
	for _, exp := range expenses {
		events = append(events, models.CalendarEvent{
			Date:   exp.Date,
			Type:   models.EventExpense,
			Title:  exp.VendorName,
			Amount: -exp.Amount,
		})
	}
	return &models.CalendarFeed{Events: events}, nil
}

// Dashboard folds every invoice and expense into the summary figures.
func (b *Builder) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	invoices, err := b.invoices.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	expenses, err := b.expenses.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	totals := make([]float64, len(invoices))
	for i, inv := range invoices {
		totals[i] = inv.Total
	}
	amounts := make([]float64, len(expenses))
	for i, exp := range expenses {
		amounts[i] = exp.Amount
	}

	summary := calculator.Dashboard(totals, amounts)
	return &models.Dashboard{
		NetProfit:   summary.NetProfit,
		GrossProfit: summary.GrossProfit,
		CashInBank:  summary.CashInBank,
	}, nil
}

// SortByDate orders events by date, keeping the relative order of events on
// the same day.
func SortByDate(events []models.CalendarEvent, descending bool) {
	sort.SliceStable(events, func(i, j int) bool {
		if descending {
			return events[i].Date > events[j].Date
		}
		return events[i].Date < events[j].Date
	})
}

func validateRange(start, end string) error {
	if start == "" || end == "" {
		return storage.Validationf("start_date and end_date are required")
	}
	s, err := time.Parse(storage.DateLayout, start)
	if err != nil {
		return storage.Validationf("start_date must be a date formatted YYYY-MM-DD")
	}
	e, err := time.Parse(storage.DateLayout, end)
	if err != nil {
		return storage.Validationf("end_date must be a date formatted YYYY-MM-DD")
	}
	if e.Before(s) {
		return storage.Validationf("end_date is before start_date")
	}
	return nil
}
