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

// ExpenseService implements the ExpenseService RPC interface.
type ExpenseService struct {
	expenses *storage.Collection[models.Expense]
	logger   *slog.Logger
}

// NewExpenseService creates an ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{
		expenses: storage.NewCollection[models.Expense](store, storage.KindExpense),
		logger:   logger,
	}
}

func (s *ExpenseService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.ExpenseServiceCreateExpenseProcedure, s.CreateExpense, opts)
	handle(mux, api.ExpenseServiceGetExpenseProcedure, s.GetExpense, opts)
	handle(mux, api.ExpenseServiceUpdateExpenseProcedure, s.UpdateExpense, opts)
	handle(mux, api.ExpenseServiceDeleteExpenseProcedure, s.DeleteExpense, opts)
	handle(mux, api.ExpenseServiceListExpensesProcedure, s.ListExpenses, opts)
}

func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	expense, err := s.expenses.Create(ctx, req.Msg.ExpenseFields)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Expense created", "expense_id", expense.ID, "amount", expense.Amount)
	return connect.NewResponse(&api.ExpenseResponse{Expense: expense}), nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetRequest]) (*connect.Response[api.ExpenseResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	expense, err := s.expenses.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ExpenseResponse{Expense: expense}), nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	patch, err := patchOf(req.Msg.ExpenseFields, req.Msg.Clear)
	if err != nil {
		return nil, toConnectError(err)
	}
	expense, err := s.expenses.Update(ctx, req.Msg.ID, patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ExpenseResponse{Expense: expense}), nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.DeleteResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.expenses.Delete(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteResponse{ID: req.Msg.ID}), nil
}

// ListExpenses filters by date range and payment state. Either end of the
// range may be left open.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	filter := &storage.Filter{}
	if req.Msg.StartDate != "" || req.Msg.EndDate != "" {
		filter.In("date", optional(req.Msg.StartDate), optional(req.Msg.EndDate))
	}
	if req.Msg.IsPaid != nil {
		filter.Eq("is_paid", *req.Msg.IsPaid)
	}

	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: orEmpty(expenses)}), nil
}

// optional turns an empty string into an open range bound.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
