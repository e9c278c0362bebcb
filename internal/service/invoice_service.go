package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/norahq/nora/internal/models"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/pkg/api"
)

// InvoiceService implements the InvoiceService RPC interface.
type InvoiceService struct {
	invoices *storage.Collection[models.Invoice]
	logger   *slog.Logger
}

// NewInvoiceService creates an InvoiceService with the given storage backend.
func NewInvoiceService(store storage.Store, logger *slog.Logger) *InvoiceService {
	return &InvoiceService{
		invoices: storage.NewCollection[models.Invoice](store, storage.KindInvoice),
		logger:   logger,
	}
}

func (s *InvoiceService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.InvoiceServiceCreateInvoiceProcedure, s.CreateInvoice, opts)
	handle(mux, api.InvoiceServiceGetInvoiceProcedure, s.GetInvoice, opts)
	handle(mux, api.InvoiceServiceUpdateInvoiceProcedure, s.UpdateInvoice, opts)
	handle(mux, api.InvoiceServiceVoidInvoiceProcedure, s.VoidInvoice, opts)
	handle(mux, api.InvoiceServiceDeleteInvoiceProcedure, s.DeleteInvoice, opts)
	handle(mux, api.InvoiceServiceListInvoicesProcedure, s.ListInvoices, opts)
}

// CreateInvoice stores an invoice with its line items. The total is computed
// by the store.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req *connect.Request[api.CreateInvoiceRequest]) (*connect.Response[api.InvoiceResponse], error) {
	invoice, err := s.invoices.Create(ctx, req.Msg.InvoiceFields)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Invoice created",
		"invoice_id", invoice.ID,
		"items", len(invoice.Items),
		"total", invoice.Total,
	)
	return connect.NewResponse(&api.InvoiceResponse{Invoice: invoice}), nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, req *connect.Request[api.GetRequest]) (*connect.Response[api.InvoiceResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	invoice, err := s.invoices.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.InvoiceResponse{Invoice: invoice}), nil
}

// UpdateInvoice changes top-level fields only. Items and total are rejected.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, req *connect.Request[api.UpdateInvoiceRequest]) (*connect.Response[api.InvoiceResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	patch, err := patchOf(req.Msg.InvoiceFields, req.Msg.Clear)
	if err != nil {
		return nil, toConnectError(err)
	}
	invoice, err := s.invoices.Update(ctx, req.Msg.ID, patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.InvoiceResponse{Invoice: invoice}), nil
}

// VoidInvoice marks an invoice void. Voiding twice is harmless.
func (s *InvoiceService) VoidInvoice(ctx context.Context, req *connect.Request[api.GetRequest]) (*connect.Response[api.InvoiceResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	invoice, err := s.invoices.Update(ctx, req.Msg.ID, storage.Fields{"status": models.InvoiceVoid})
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Invoice voided", "invoice_id", invoice.ID)
	return connect.NewResponse(&api.InvoiceResponse{Invoice: invoice}), nil
}

// DeleteInvoice removes the invoice and its line items.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.DeleteResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.invoices.Delete(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Invoice deleted", "invoice_id", req.Msg.ID)
	return connect.NewResponse(&api.DeleteResponse{ID: req.Msg.ID}), nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, req *connect.Request[api.ListInvoicesRequest]) (*connect.Response[api.ListInvoicesResponse], error) {
	filter := &storage.Filter{}
	if req.Msg.Status != "" {
		filter.Eq("status", req.Msg.Status)
	}
	if req.Msg.ContactID != "" {
		filter.Eq("contact_id", req.Msg.ContactID)
	}

	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListInvoicesResponse{Invoices: orEmpty(invoices)}), nil
}
