// Package calculator holds the money arithmetic shared by the store and the reports.
//
// All sums are computed with decimal arithmetic and converted back to float64 once,
// so that totals like 3 × 0.1 + 0.2 come out as 0.5 instead of accumulating binary
// rounding error line by line.
package calculator

import "github.com/shopspring/decimal"

// LineItem is the priced part of an invoice line.
type LineItem struct {
	Quantity  float64
	UnitPrice float64
}

// Summary is the dashboard figure set.
type Summary struct {
	NetProfit   float64
	GrossProfit float64
	CashInBank  float64
}

// InvoiceTotal computes Σ quantity × unit_price over the given items.
// An empty slice totals to zero; rejecting empty invoices is the caller's job.
func InvoiceTotal(items []LineItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.UnitPrice))
		total = total.Add(line)
	}
	return total.InexactFloat64()
}

// Sum adds the amounts exactly.
func Sum(amounts []float64) float64 {
	return sum(amounts).InexactFloat64()
}

// Dashboard folds invoice totals and expense amounts into the dashboard figures:
//
//	gross_profit = Σ invoice totals
//	net_profit   = −Σ expense amounts
//	cash_in_bank = gross_profit + net_profit
func Dashboard(invoiceTotals, expenseAmounts []float64) Summary {
	gross := sum(invoiceTotals)
	net := sum(expenseAmounts).Neg()
	return Summary{
		NetProfit:   net.InexactFloat64(),
		GrossProfit: gross.InexactFloat64(),
		CashInBank:  gross.Add(net).InexactFloat64(),
	}
}

func sum(amounts []float64) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(decimal.NewFromFloat(amount))
	}
	return total
}
