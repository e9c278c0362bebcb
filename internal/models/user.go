package models

// User represents a registered user account.
type User struct {
	// ID is assigned by the store. Opaque.
	ID string `json:"id"`

	// Username is unique and cannot change after registration.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash. The plaintext is never stored.
	PasswordHash string `json:"password"`

	// CreatedAt is the RFC 3339 registration time.
	CreatedAt string `json:"created_at"`
}

// UserFields is the create payload for a user.
type UserFields struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
}
