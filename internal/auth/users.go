package auth

import (
	"context"
	"errors"

	"github.com/norahq/nora/internal/models"
	"github.com/norahq/nora/internal/storage"
)

// StoreUsers implements UserStorage on top of the entity store, so accounts
// live in whichever backend the process was started with.
type StoreUsers struct {
	store storage.Store
	users *storage.Collection[models.User]
}

var _ UserStorage = (*StoreUsers)(nil)

// NewStoreUsers returns a UserStorage backed by store.
func NewStoreUsers(store storage.Store) *StoreUsers {
	return &StoreUsers{
		store: store,
		users: storage.NewCollection[models.User](store, storage.KindUser),
	}
}

func (s *StoreUsers) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user, err := s.users.Create(ctx, models.UserFields{Username: username, PasswordHash: passwordHash})
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrUsernameExists
	}
	return user, err
}

func (s *StoreUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	rec, err := s.store.GetByKey(ctx, storage.KindUser, "username", username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return storage.Decode[models.User](rec)
}

func (s *StoreUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
