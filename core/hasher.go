package core

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashFormat is returned when a stored password hash cannot be parsed,
// e.g. it was produced by an incompatible scheme or truncated in storage.
// This is distinct from a plain mismatch, which is not an error at all.
var ErrHashFormat = errors.New("malformed password hash")

// dummyHash is a well-formed bcrypt hash that belongs to no account.
// Verification runs against it when the username does not exist so the call
// does the same bcrypt work either way.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword produces a salted bcrypt hash. Two calls on the same input
// yield different outputs because the salt is random.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks plaintext against a stored bcrypt hash.
// A mismatch is a normal (false, nil) outcome; only an unparseable hash
// reports ErrHashFormat.
func VerifyPassword(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrHashFormat
	}
}

// verifyAgainstDummy burns a bcrypt comparison without revealing anything.
func verifyAgainstDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
}
