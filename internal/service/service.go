// Package service implements the nora Connect RPC services on top of the
// entity store. Every service mounts its procedures on a mux with Register.
package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/pkg/api"
)

var errUnavailable = errors.New("storage backend unavailable")

// Registrar mounts a service's procedures.
type Registrar interface {
	Register(mux *http.ServeMux, opts ...connect.HandlerOption)
}

// handle mounts one unary procedure using the JSON codec.
func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	options := append([]connect.HandlerOption{api.WithCodec()}, opts...)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, options...))
}

// toConnectError maps a storage error onto a Connect error and tags it with
// the storage error kind.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	kind := storage.CodeOf(err)

	var connectErr *connect.Error
	switch kind {
	case storage.CodeValidation:
		connectErr = connect.NewError(connect.CodeInvalidArgument, err)
	case storage.CodeNotFound:
		connectErr = connect.NewError(connect.CodeNotFound, err)
	case storage.CodeConflict:
		connectErr = connect.NewError(connect.CodeAlreadyExists, err)
	default:
		// Engine details stay in the server log.
		connectErr = connect.NewError(connect.CodeUnavailable, errUnavailable)
	}
	connectErr.Meta().Set(api.ErrorKindHeader, string(kind))
	return connectErr
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return storage.Validationf("id is required")
	}
	return nil
}

// patchOf builds a partial update from the set fields of a payload plus the
// names to clear.
func patchOf(fields any, clear []string) (storage.Fields, error) {
	patch, err := storage.Encode(fields)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		patch = storage.Fields{}
	}
	for _, name := range clear {
		if _, set := patch[name]; set {
			return nil, storage.Validationf("%s cannot be both set and cleared", name)
		}
		patch[name] = nil
	}
	return patch, nil
}

// orEmpty keeps list responses from encoding as null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
