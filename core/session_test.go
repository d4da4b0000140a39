package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySessionCreateValidate(t *testing.T) {
	store := NewMemorySessionStore(30 * time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}

	sess, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if sess.Username != "alice" {
		t.Fatalf("wrong principal: %q", sess.Username)
	}
}

func TestMemorySessionTokensAreUnique(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := store.Create(ctx, "alice")
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued")
		}
		seen[token] = true
	}
}

func TestMemorySessionSlidingExpiry(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Minute)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	token, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Validate at +8m keeps the session alive and pushes expiry forward.
	now = now.Add(8 * time.Minute)
	first, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate at +8m: %v", err)
	}

	// Another 8 minutes of activity: still valid only because of the slide.
	now = now.Add(8 * time.Minute)
	second, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate at +16m: %v", err)
	}
	if second.ExpiresAt.Before(first.ExpiresAt) {
		t.Fatalf("expiry moved backward: %v -> %v", first.ExpiresAt, second.ExpiresAt)
	}

	// Idle past the window: gone.
	now = now.Add(11 * time.Minute)
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("idle session: want ErrSessionInvalid, got %v", err)
	}
}

func TestMemorySessionInvalidateIdempotent(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := store.Invalidate(ctx, token); err != nil {
		t.Fatalf("first Invalidate: %v", err)
	}
	if err := store.Invalidate(ctx, token); err != nil {
		t.Fatalf("second Invalidate must be a no-op, got %v", err)
	}
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("invalidated token validated, err=%v", err)
	}
}

func TestMemorySessionUnknownToken(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	for _, token := range []string{"", "no-such-token"} {
		if _, err := store.Validate(context.Background(), token); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("token %q: want ErrSessionInvalid, got %v", token, err)
		}
	}
}

func TestMemorySessionCreateSweepsExpired(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Minute)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	abandoned, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Nobody touches the first session again; a later login must still
	// clear it out once it is past its window.
	now = now.Add(11 * time.Minute)
	fresh, err := store.Create(ctx, "bob")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if len(store.byTok) != 1 {
		t.Fatalf("abandoned session not swept, %d entries remain", len(store.byTok))
	}
	if _, err := store.Validate(ctx, abandoned); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("swept session validated, err=%v", err)
	}
	if _, err := store.Validate(ctx, fresh); err != nil {
		t.Fatalf("fresh session must survive the sweep: %v", err)
	}
}

func TestMemorySessionConcurrentLogins(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	t1, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	t2, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// One identity, many sessions: killing one leaves the other alive.
	if err := store.Invalidate(ctx, t1); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if _, err := store.Validate(ctx, t2); err != nil {
		t.Fatalf("sibling session died too: %v", err)
	}
}
