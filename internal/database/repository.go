package database

import "context"

// UserReader provides read-only access to enrolled users.
type UserReader interface {
	// GetUser retrieves a user by identity, returns nil if not found.
	GetUser(ctx context.Context, identity string) (*UserRecord, error)
	// ListUsers returns every user with their full embedding sets, ordered
	// by identity. Verification and enrollment dedup scan this linearly.
	ListUsers(ctx context.Context) ([]UserRecord, error)
	// CountUsers returns the number of enrolled users.
	CountUsers(ctx context.Context) (int, error)
}

// UserStore provides full access to enrolled users.
type UserStore interface {
	UserReader

	// CreateUser persists a new user with its initial embedding set in one
	// atomic write. Returns ErrIdentityExists if the identity is taken.
	CreateUser(ctx context.Context, user *UserRecord) error

	// AppendEmbedding atomically appends one embedding to a user's sequence
	// and trims the oldest entries beyond maxEmbeddings. Scoped to one
	// identity; never a read-modify-write of the whole record.
	AppendEmbedding(ctx context.Context, identity string, embedding []float32, maxEmbeddings int) error

	// DeleteUser removes a user and all embeddings. Returns false if the
	// identity was not enrolled; that is reported, not an error.
	DeleteUser(ctx context.Context, identity string) (bool, error)
}
