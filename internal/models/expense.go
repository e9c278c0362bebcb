package models

// Expense is money paid out by the business.
type Expense struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	CategoryID  string  `json:"category_id,omitempty"`
	VendorName  string  `json:"vendor_name,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	TaxAmount   float64 `json:"tax_amount"`
	IsPaid      bool    `json:"is_paid"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// ExpenseFields is the create/update payload for an expense.
type ExpenseFields struct {
	Date        *string  `json:"date,omitempty"`
	CategoryID  *string  `json:"category_id,omitempty"`
	VendorName  *string  `json:"vendor_name,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	TaxAmount   *float64 `json:"tax_amount,omitempty"`
	IsPaid      *bool    `json:"is_paid,omitempty"`
	Description *string  `json:"description,omitempty"`
}
