package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/norahq/nora/internal/models"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUsernameExists     = errors.New("username already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStorage defines the interface for user persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	// CreateUser stores a new user and returns it with its assigned id.
	// Returns ErrUsernameExists if the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	// GetUserByUsername returns ErrUserNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUserByID returns ErrUserNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, credential string) (*models.User, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	// Cheap early answer; CreateUser still enforces uniqueness.
	existing, err := a.storage.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUsernameExists
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.storage.CreateUser(ctx, username, string(hashedPassword))
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the username and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, credential string) (*models.User, error) {
	user, err := a.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
