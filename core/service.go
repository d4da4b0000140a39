package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// RepositoryAuthService verifies credentials against the user repository.
type RepositoryAuthService struct {
	users UserRepository
}

func NewRepositoryAuthService(users UserRepository) *RepositoryAuthService {
	return &RepositoryAuthService{users: users}
}

// Authenticate looks up the user and checks the password hash.
// Unknown username and wrong password both come back as
// ErrInvalidCredentials; to keep call timing comparable, a bcrypt pass runs
// against a dummy hash even when the user does not exist.
func (s *RepositoryAuthService) Authenticate(ctx context.Context, username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		verifyAgainstDummy(password)
		return User{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			verifyAgainstDummy(password)
			log.Printf("auth: unknown user %q", username)
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("auth: lookup %q: %w", username, err)
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		// Corrupt stored hash. This account cannot authenticate until the
		// record is repaired; surface as an internal failure, never as a
		// credential mismatch.
		log.Printf("auth: corrupt hash for user %q: %v", username, err)
		return User{}, fmt.Errorf("auth: user %q: %w", username, err)
	}
	if !ok {
		log.Printf("auth: bad password for user %q", username)
		return User{}, ErrInvalidCredentials
	}

	return User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}
