package models

// Invoice statuses.
const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

// Invoice is a bill sent to a contact.
//
// Items are owned by the invoice: they are written with it, deleted with it
// and cannot be changed afterwards. Total is computed once at creation as
// Σ quantity × unit_price.
type Invoice struct {
	ID string `json:"id"`

	// ContactID references a Contact. Not enforced.
	ContactID string `json:"contact_id,omitempty"`

	Number   string `json:"number,omitempty"`
	Date     string `json:"date,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
	Currency string `json:"currency,omitempty"`

	// Total is read-only.
	Total float64 `json:"total"`

	// Status is one of draft, sent, paid or void.
	Status string `json:"status"`

	Items     []LineItem `json:"items"`
	CreatedAt string     `json:"created_at"`
}

// LineItem is one priced line of an invoice.
type LineItem struct {
	Description string   `json:"description,omitempty"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	Taxes       []string `json:"taxes,omitempty"`
}

// LineItemFields is one line of an invoice create payload. A nil Quantity or
// UnitPrice is sent as absent and rejected as missing.
type LineItemFields struct {
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Taxes       []string `json:"taxes,omitempty"`
}

// InvoiceFields is the create/update payload for an invoice.
// Items are accepted on create only.
type InvoiceFields struct {
	ContactID *string          `json:"contact_id,omitempty"`
	Number    *string          `json:"number,omitempty"`
	Date      *string          `json:"date,omitempty"`
	DueDate   *string          `json:"due_date,omitempty"`
	Currency  *string          `json:"currency,omitempty"`
	Status    *string          `json:"status,omitempty"`
	Items     []LineItemFields `json:"items,omitempty"`
}
