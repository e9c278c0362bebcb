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

// TimeService implements the TimeService RPC interface.
type TimeService struct {
	entries *storage.Collection[models.TimeEntry]
	logger  *slog.Logger
}

// NewTimeService creates a TimeService with the given storage backend.
func NewTimeService(store storage.Store, logger *slog.Logger) *TimeService {
	return &TimeService{
		entries: storage.NewCollection[models.TimeEntry](store, storage.KindTimeEntry),
		logger:  logger,
	}
}

func (s *TimeService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.TimeServiceLogTimeProcedure, s.LogTime, opts)
	handle(mux, api.TimeServiceGetTimeEntryProcedure, s.GetTimeEntry, opts)
	handle(mux, api.TimeServiceUpdateTimeEntryProcedure, s.UpdateTimeEntry, opts)
	handle(mux, api.TimeServiceDeleteTimeEntryProcedure, s.DeleteTimeEntry, opts)
	handle(mux, api.TimeServiceListTimeEntriesProcedure, s.ListTimeEntries, opts)
}

func (s *TimeService) LogTime(ctx context.Context, req *connect.Request[api.LogTimeRequest]) (*connect.Response[api.TimeEntryResponse], error) {
	entry, err := s.entries.Create(ctx, req.Msg.TimeEntryFields)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Time logged",
		"time_entry_id", entry.ID,
		"hours", entry.Hours,
		"minutes", entry.Minutes,
	)
	return connect.NewResponse(&api.TimeEntryResponse{TimeEntry: entry}), nil
}

func (s *TimeService) GetTimeEntry(ctx context.Context, req *connect.Request[api.GetRequest]) (*connect.Response[api.TimeEntryResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	entry, err := s.entries.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.TimeEntryResponse{TimeEntry: entry}), nil
}

func (s *TimeService) UpdateTimeEntry(ctx context.Context, req *connect.Request[api.UpdateTimeEntryRequest]) (*connect.Response[api.TimeEntryResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	patch, err := patchOf(req.Msg.TimeEntryFields, req.Msg.Clear)
	if err != nil {
		return nil, toConnectError(err)
	}
	entry, err := s.entries.Update(ctx, req.Msg.ID, patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.TimeEntryResponse{TimeEntry: entry}), nil
}

func (s *TimeService) DeleteTimeEntry(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.DeleteResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.entries.Delete(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteResponse{ID: req.Msg.ID}), nil
}

func (s *TimeService) ListTimeEntries(ctx context.Context, req *connect.Request[api.ListTimeEntriesRequest]) (*connect.Response[api.ListTimeEntriesResponse], error) {
	var filter *storage.Filter
	if req.Msg.ContactID != "" {
		filter = storage.Where("contact_id", req.Msg.ContactID)
	}

	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListTimeEntriesResponse{TimeEntries: orEmpty(entries)}), nil
}
