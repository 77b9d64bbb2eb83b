package database

import (
	"errors"
	"time"
)

// UserRecord is one enrolled identity with its reference embeddings.
type UserRecord struct {
	// Identity is the unique, case-sensitive account name.
	Identity string
	// Embeddings is the reference set, oldest first. Never empty for a
	// persisted record; it grows only through the verification update path.
	Embeddings [][]float32
	// RegisteredAt is set once at enrollment and never mutated.
	RegisteredAt time.Time
}

// ErrIdentityExists is returned by CreateUser when the identity is taken.
// The store enforces uniqueness atomically, which closes the
// check-then-insert race between concurrent enrollments of the same name.
var ErrIdentityExists = errors.New("identity already exists")
