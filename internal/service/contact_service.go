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

// ContactService implements the ContactService RPC interface.
type ContactService struct {
	contacts *storage.Collection[models.Contact]
	logger   *slog.Logger
}

// NewContactService creates a ContactService with the given storage backend.
func NewContactService(store storage.Store, logger *slog.Logger) *ContactService {
	return &ContactService{
		contacts: storage.NewCollection[models.Contact](store, storage.KindContact),
		logger:   logger,
	}
}

func (s *ContactService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.ContactServiceCreateContactProcedure, s.CreateContact, opts)
	handle(mux, api.ContactServiceGetContactProcedure, s.GetContact, opts)
	handle(mux, api.ContactServiceUpdateContactProcedure, s.UpdateContact, opts)
	handle(mux, api.ContactServiceDeleteContactProcedure, s.DeleteContact, opts)
	handle(mux, api.ContactServiceListContactsProcedure, s.ListContacts, opts)
}

func (s *ContactService) CreateContact(ctx context.Context, req *connect.Request[api.CreateContactRequest]) (*connect.Response[api.ContactResponse], error) {
	contact, err := s.contacts.Create(ctx, req.Msg.ContactFields)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Contact created", "contact_id", contact.ID)
	return connect.NewResponse(&api.ContactResponse{Contact: contact}), nil
}

func (s *ContactService) GetContact(ctx context.Context, req *connect.Request[api.GetRequest]) (*connect.Response[api.ContactResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	contact, err := s.contacts.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ContactResponse{Contact: contact}), nil
}

// UpdateContact changes only the supplied fields; omitted ones keep their
// stored values.
func (s *ContactService) UpdateContact(ctx context.Context, req *connect.Request[api.UpdateContactRequest]) (*connect.Response[api.ContactResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	patch, err := patchOf(req.Msg.ContactFields, req.Msg.Clear)
	if err != nil {
		return nil, toConnectError(err)
	}
	contact, err := s.contacts.Update(ctx, req.Msg.ID, patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ContactResponse{Contact: contact}), nil
}

func (s *ContactService) DeleteContact(ctx context.Context, req *connect.Request[api.DeleteRequest]) (*connect.Response[api.DeleteResponse], error) {
	if err := requireID(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.contacts.Delete(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Contact deleted", "contact_id", req.Msg.ID)
	return connect.NewResponse(&api.DeleteResponse{ID: req.Msg.ID}), nil
}

// ListContacts returns every contact, newest first.
func (s *ContactService) ListContacts(ctx context.Context, req *connect.Request[api.ListContactsRequest]) (*connect.Response[api.ListContactsResponse], error) {
	contacts, err := s.contacts.List(ctx, nil)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListContactsResponse{Contacts: orEmpty(contacts)}), nil
}
