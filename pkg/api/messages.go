// Package api holds the request and response messages of the nora RPC API,
// its procedure paths, and the JSON codec both servers and clients use.
package api

import "github.com/norahq/nora/internal/models"

// ErrorKindHeader is the error metadata key carrying the storage error code.
const ErrorKindHeader = "Error-Kind"

// StatusUserCreated is returned by a successful Register.
const StatusUserCreated = "user_created"

// Sort orders accepted by Events.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type MeRequest struct{}

type MeResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// GetRequest addresses one entity by id.
type GetRequest struct {
	ID string `json:"id"`
}

// DeleteRequest addresses one entity by id. Deleting a missing id succeeds.
type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct {
	ID string `json:"id"`
}

// Contacts

type CreateContactRequest struct {
	models.ContactFields
}

// UpdateContactRequest changes only the fields that are set. Names listed in
// Clear are reset to null.
type UpdateContactRequest struct {
	ID string `json:"id"`
	models.ContactFields
	Clear []string `json:"clear,omitempty"`
}

type ContactResponse struct {
	Contact *models.Contact `json:"contact"`
}

type ListContactsRequest struct{}

type ListContactsResponse struct {
	Contacts []models.Contact `json:"contacts"`
}

// Invoices

type CreateInvoiceRequest struct {
	models.InvoiceFields
}

// UpdateInvoiceRequest changes top-level invoice fields. Items cannot change.
type UpdateInvoiceRequest struct {
	ID string `json:"id"`
	models.InvoiceFields
	Clear []string `json:"clear,omitempty"`
}

type InvoiceResponse struct {
	Invoice *models.Invoice `json:"invoice"`
}

type ListInvoicesRequest struct {
	Status    string `json:"status,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
}

type ListInvoicesResponse struct {
	Invoices []models.Invoice `json:"invoices"`
}

// Expenses

type CreateExpenseRequest struct {
	models.ExpenseFields
}

type UpdateExpenseRequest struct {
	ID string `json:"id"`
	models.ExpenseFields
	Clear []string `json:"clear,omitempty"`
}

type ExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

// ListExpensesRequest filters by an inclusive date range (either end may be
// open) and payment state.
type ListExpensesRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	IsPaid    *bool  `json:"is_paid,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

// Time entries

type LogTimeRequest struct {
	models.TimeEntryFields
}

type UpdateTimeEntryRequest struct {
	ID string `json:"id"`
	models.TimeEntryFields
	Clear []string `json:"clear,omitempty"`
}

type TimeEntryResponse struct {
	TimeEntry *models.TimeEntry `json:"time_entry"`
}

type ListTimeEntriesRequest struct {
	ContactID string `json:"contact_id,omitempty"`
}

type ListTimeEntriesResponse struct {
	TimeEntries []models.TimeEntry `json:"time_entries"`
}

// Calendar

// EventsRequest selects events dated within [StartDate, EndDate]. Sort is
// "asc", "desc" or empty for invoices-then-expenses order.
type EventsRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Sort      string `json:"sort,omitempty"`
}

type EventsResponse = models.CalendarFeed

type DashboardRequest struct{}

type DashboardResponse = models.Dashboard
