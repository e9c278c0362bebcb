package models

// Calendar event types.
const (
	EventInvoice = "invoice"
	EventExpense = "expense"
)

// CalendarEvent is one dated money movement on the calendar.
// Amount is positive for invoices and negative for expenses.
type CalendarEvent struct {
	Date   string  `json:"date"`
	Type   string  `json:"type"`
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
}

// CalendarFeed is the calendar view for a date range.
type CalendarFeed struct {
	Events []CalendarEvent `json:"events"`
}

// Dashboard summarizes all invoices and expenses.
type Dashboard struct {
	NetProfit   float64 `json:"net_profit"`
	GrossProfit float64 `json:"gross_profit"`
	CashInBank  float64 `json:"cash_in_bank"`
}
