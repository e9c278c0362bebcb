package api

// Service names.
const (
	AuthServiceName     = "nora.v1.AuthService"
	ContactServiceName  = "nora.v1.ContactService"
	InvoiceServiceName  = "nora.v1.InvoiceService"
	ExpenseServiceName  = "nora.v1.ExpenseService"
	TimeServiceName     = "nora.v1.TimeService"
	CalendarServiceName = "nora.v1.CalendarService"
)

// Fully-qualified procedure paths, as mounted on the HTTP mux.
const (
	AuthServiceRegisterProcedure = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure    = "/" + AuthServiceName + "/Login"
	AuthServiceMeProcedure       = "/" + AuthServiceName + "/Me"

	ContactServiceCreateContactProcedure = "/" + ContactServiceName + "/CreateContact"
	ContactServiceGetContactProcedure    = "/" + ContactServiceName + "/GetContact"
	ContactServiceUpdateContactProcedure = "/" + ContactServiceName + "/UpdateContact"
	ContactServiceDeleteContactProcedure = "/" + ContactServiceName + "/DeleteContact"
	ContactServiceListContactsProcedure  = "/" + ContactServiceName + "/ListContacts"

	InvoiceServiceCreateInvoiceProcedure = "/" + InvoiceServiceName + "/CreateInvoice"
	InvoiceServiceGetInvoiceProcedure    = "/" + InvoiceServiceName + "/GetInvoice"
	InvoiceServiceUpdateInvoiceProcedure = "/" + InvoiceServiceName + "/UpdateInvoice"
	InvoiceServiceVoidInvoiceProcedure   = "/" + InvoiceServiceName + "/VoidInvoice"
	InvoiceServiceDeleteInvoiceProcedure = "/" + InvoiceServiceName + "/DeleteInvoice"
	InvoiceServiceListInvoicesProcedure  = "/" + InvoiceServiceName + "/ListInvoices"

	ExpenseServiceCreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceGetExpenseProcedure    = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceUpdateExpenseProcedure = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceListExpensesProcedure  = "/" + ExpenseServiceName + "/ListExpenses"

	TimeServiceLogTimeProcedure         = "/" + TimeServiceName + "/LogTime"
	TimeServiceGetTimeEntryProcedure    = "/" + TimeServiceName + "/GetTimeEntry"
	TimeServiceUpdateTimeEntryProcedure = "/" + TimeServiceName + "/UpdateTimeEntry"
	TimeServiceDeleteTimeEntryProcedure = "/" + TimeServiceName + "/DeleteTimeEntry"
	TimeServiceListTimeEntriesProcedure = "/" + TimeServiceName + "/ListTimeEntries"

	CalendarServiceEventsProcedure    = "/" + CalendarServiceName + "/Events"
	CalendarServiceDashboardProcedure = "/" + CalendarServiceName + "/Dashboard"
)

// PublicProcedures can be called without a bearer token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}
