package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/norahq/nora/internal/reports"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/pkg/api"
)

// CalendarService implements the CalendarService RPC interface.
type CalendarService struct {
	reports *reports.Builder
	logger  *slog.Logger
}

// NewCalendarService creates a CalendarService with the given storage backend.
func NewCalendarService(store storage.Store, logger *slog.Logger) *CalendarService {
	return &CalendarService{
		reports: reports.NewBuilder(store),
		logger:  logger,
	}
}

func (s *CalendarService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.CalendarServiceEventsProcedure, s.Events, opts)
	handle(mux, api.CalendarServiceDashboardProcedure, s.Dashboard, opts)
}

// Events returns invoice and expense events within the requested range.
func (s *CalendarService) Events(ctx context.Context, req *connect.Request[api.EventsRequest]) (*connect.Response[api.EventsResponse], error) {
	sortOrder := req.Msg.Sort
	if sortOrder != "" && sortOrder != api.SortAsc && sortOrder != api.SortDesc {
		return nil, toConnectError(storage.Validationf("sort must be %q or %q", api.SortAsc, api.SortDesc))
	}

	feed, err := s.reports.Calendar(ctx, req.Msg.StartDate, req.Msg.EndDate)
	if err != nil {
		return nil, toConnectError(err)
	}
	if sortOrder != "" {
		reports.SortByDate(feed.Events, sortOrder == api.SortDesc)
	}

	s.logger.Debug("Calendar events",
		"start_date", req.Msg.StartDate,
		"end_date", req.Msg.EndDate,
		"events", len(feed.Events),
	)
	return connect.NewResponse(feed), nil
}

func (s *CalendarService) Dashboard(ctx context.Context, req *connect.Request[api.DashboardRequest]) (*connect.Response[api.DashboardResponse], error) {
	dashboard, err := s.reports.Dashboard(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(dashboard), nil
}
