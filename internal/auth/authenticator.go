package auth

import (
	"context"

	"github.com/norahq/nora/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The service layer only sees this, so the credential scheme can change
// without touching it.
type Authenticator interface {
	// Register creates a new user account with the given username and credential.
	// Returns ErrUsernameExists if the username is taken.
	Register(ctx context.Context, username, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, username, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
