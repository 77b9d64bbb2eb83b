package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// UserRepository provides PostgreSQL-backed user storage.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetUser retrieves a user with all reference embeddings, oldest first.
// Returns nil without error when the identity is not enrolled.
func (r *UserRepository) GetUser(ctx context.Context, identity string) (*database.UserRecord, error) {
	user := database.UserRecord{Identity: identity}
	err := r.pool.QueryRow(
		ctx, "SELECT registered_at FROM users WHERE identity = $1", identity,
	).Scan(&user.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	rows, err := r.pool.Query(
		ctx, "SELECT embedding FROM user_embeddings WHERE identity = $1 ORDER BY id", identity,
	)
	if err != nil {
		return nil, fmt.Errorf("query user embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		user.Embeddings = append(user.Embeddings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return &user, nil
}

// ListUsers returns every user with their full embedding sets, ordered by
// identity. Embeddings within a user come back in insertion order. A
// persisted user always has at least one embedding row, so the inner join
// drops nothing.
func (r *UserRepository) ListUsers(ctx context.Context) ([]database.UserRecord, error) {
	query := `
		SELECT u.identity, u.registered_at, e.embedding
		FROM users u
		JOIN user_embeddings e ON e.identity = u.identity
		ORDER BY u.identity, e.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []database.UserRecord
	for rows.Next() {
		var (
			rec database.UserRecord
			vec pgvector.Vector
		)
		if err := rows.Scan(&rec.Identity, &rec.RegisteredAt, &vec); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}

		if len(users) > 0 && users[len(users)-1].Identity == rec.Identity {
			last := &users[len(users)-1]
			last.Embeddings = append(last.Embeddings, vec.Slice())
			continue
		}
		rec.Embeddings = [][]float32{vec.Slice()}
		users = append(users, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// CountUsers returns the number of enrolled users.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CreateUser persists a new user with its initial embeddings in one
// transaction. The primary key on users(identity) enforces uniqueness; a
// concurrent enrollment of the same identity loses the race here and gets
// ErrIdentityExists, never a second row.
func (r *UserRepository) CreateUser(ctx context.Context, user *database.UserRecord) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx, "INSERT INTO users (identity, registered_at) VALUES ($1, $2)",
		user.Identity, user.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrIdentityExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for i, embedding := range user.Embeddings {
		_, err = tx.ExecContext(
			ctx, "INSERT INTO user_embeddings (identity, embedding) VALUES ($1, $2::vector)",
			user.Identity, pgvector.NewVector(embedding),
		)
		if err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendEmbedding appends one embedding to a user's reference set and trims
// the oldest rows beyond maxEmbeddings, all in one transaction. A missing
// identity is a no-op; the caller verified the user moments ago and a
// concurrent delete should not fail the login that triggered the append.
func (r *UserRepository) AppendEmbedding(
	ctx context.Context, identity string, embedding []float32, maxEmbeddings int,
) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(
		ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE identity = $1)", identity,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil
	}

	_, err = tx.ExecContext(
		ctx, "INSERT INTO user_embeddings (identity, embedding) VALUES ($1, $2::vector)",
		identity, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}

	if maxEmbeddings > 0 {
		// Keep the newest maxEmbeddings rows, drop the rest.
		_, err = tx.ExecContext(ctx, `
			DELETE FROM user_embeddings
			WHERE identity = $1 AND id NOT IN (
				SELECT id FROM user_embeddings
				WHERE identity = $1
				ORDER BY id DESC
				LIMIT $2
			)
		`, identity, maxEmbeddings)
		if err != nil {
			return fmt.Errorf("trim embeddings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteUser removes a user; embeddings go with it via ON DELETE CASCADE.
func (r *UserRepository) DeleteUser(ctx context.Context, identity string) (bool, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM users WHERE identity = $1", identity)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Verify interface compliance.
var _ database.UserStore = (*UserRepository)(nil)
