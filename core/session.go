package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// Session is server-held proof of a prior successful login, referenced by an
// opaque token. The principal is bound at creation and never changes.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore issues, validates, and invalidates sessions. Validate extends
// the expiry window (sliding timeout), so idle sessions eventually die while
// active ones live on. Implementations must be safe for concurrent use.
type SessionStore interface {
	Create(ctx context.Context, username string) (string, error)
	Validate(ctx context.Context, token string) (Session, error)
	Invalidate(ctx context.Context, token string) error
}

// newSessionToken mints an unguessable 32-byte token.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemorySessionStore keeps sessions in process memory. It is the default
// backend when no Redis is configured and the backend used in tests.
type MemorySessionStore struct {
	mu    sync.Mutex
	idle  time.Duration
	byTok map[string]Session
	now   func() time.Time
}

func NewMemorySessionStore(idle time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		idle:  idle,
		byTok: make(map[string]Session),
		now:   time.Now,
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, username string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	s.mu.Lock()
	// Opportunistic sweep so abandoned sessions do not accumulate; expired
	// entries are otherwise only removed when their own token is presented.
	for tok, sess := range s.byTok {
		if now.After(sess.ExpiresAt) {
			delete(s.byTok, tok)
		}
	}
	s.byTok[token] = Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.idle),
	}
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessionStore) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionInvalid
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byTok[token]
	if !ok {
		return Session{}, ErrSessionInvalid
	}
	if now.After(sess.ExpiresAt) {
		delete(s.byTok, token)
		return Session{}, ErrSessionInvalid
	}
	// Sliding expiry: never move the deadline backward.
	if exp := now.Add(s.idle); exp.After(sess.ExpiresAt) {
		sess.ExpiresAt = exp
		s.byTok[token] = sess
	}
	return sess, nil
}

func (s *MemorySessionStore) Invalidate(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.byTok, token)
	s.mu.Unlock()
	return nil
}
