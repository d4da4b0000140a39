package core

import (
	"context"
	"errors"
	"time"
)

// User represents an authenticated principal returned to handlers.
type User struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// Unknown user and bad password are deliberately collapsed into this
	// single value so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned by the credential store when no record
	// exists for a username. It never crosses the AuthService boundary.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionInvalid is returned for unknown or expired session tokens.
	ErrSessionInvalid = errors.New("session invalid")
)

// AuthService defines authentication behaviour.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
}
