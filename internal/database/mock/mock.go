// Package mock provides an in-memory implementation of the database
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
)

// MockUserStore is an in-memory implementation of database.UserStore.
// Uniqueness and appends are enforced under one mutex, giving the same
// atomicity guarantees the Postgres store provides with constraints and
// transactions.
type MockUserStore struct {
	mu    sync.RWMutex
	users map[string]*database.UserRecord

	// Track calls
	CreateUserCalls      []string
	AppendEmbeddingCalls []AppendEmbeddingCall
	DeleteUserCalls      []string

	// Error injection
	GetUserError         error
	ListUsersError       error
	CountUsersError      error
	CreateUserError      error
	AppendEmbeddingError error
	DeleteUserError      error
}

// AppendEmbeddingCall tracks an AppendEmbedding call.
type AppendEmbeddingCall struct {
	Identity      string
	Embedding     []float32
	MaxEmbeddings int
}

// NewMockUserStore creates a new mock user store.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users: make(map[string]*database.UserRecord),
	}
}

// AddUser seeds a user directly, bypassing uniqueness checks.
func (m *MockUserStore) AddUser(user database.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Identity] = &user
}

// GetUser retrieves a user by identity, nil if not found.
func (m *MockUserStore) GetUser(ctx context.Context, identity string) (*database.UserRecord, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[identity]
	if !ok {
		return nil, nil
	}
	copied := copyRecord(user)
	return &copied, nil
}

// ListUsers returns all users ordered by identity.
func (m *MockUserStore) ListUsers(ctx context.Context) ([]database.UserRecord, error) {
	if m.ListUsersError != nil {
		return nil, m.ListUsersError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]database.UserRecord, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, copyRecord(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Identity < users[j].Identity })
	return users, nil
}

// CountUsers returns the number of users.
func (m *MockUserStore) CountUsers(ctx context.Context) (int, error) {
	if m.CountUsersError != nil {
		return 0, m.CountUsersError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// CreateUser persists a new user, enforcing identity uniqueness.
func (m *MockUserStore) CreateUser(ctx context.Context, user *database.UserRecord) error {
	if m.CreateUserError != nil {
		return m.CreateUserError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Identity]; exists {
		return database.ErrIdentityExists
	}
	m.CreateUserCalls = append(m.CreateUserCalls, user.Identity)
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}
	stored := copyRecord(user)
	m.users[user.Identity] = &stored
	return nil
}

// AppendEmbedding appends one embedding and trims beyond the cap.
func (m *MockUserStore) AppendEmbedding(ctx context.Context, identity string, embedding []float32, maxEmbeddings int) error {
	if m.AppendEmbeddingError != nil {
		return m.AppendEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendEmbeddingCalls = append(m.AppendEmbeddingCalls, AppendEmbeddingCall{
		Identity:      identity,
		Embedding:     embedding,
		MaxEmbeddings: maxEmbeddings,
	})
	user, ok := m.users[identity]
	if !ok {
		return nil // user deleted between scan and append; append is best-effort
	}
	user.Embeddings = append(user.Embeddings, append([]float32(nil), embedding...))
	if maxEmbeddings > 0 && len(user.Embeddings) > maxEmbeddings {
		user.Embeddings = user.Embeddings[len(user.Embeddings)-maxEmbeddings:]
	}
	return nil
}

// DeleteUser removes a user, reporting whether it existed.
func (m *MockUserStore) DeleteUser(ctx context.Context, identity string) (bool, error) {
	if m.DeleteUserError != nil {
		return false, m.DeleteUserError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteUserCalls = append(m.DeleteUserCalls, identity)
	_, ok := m.users[identity]
	delete(m.users, identity)
	return ok, nil
}

// copyRecord deep-copies a record so callers can't mutate stored embeddings.
func copyRecord(u *database.UserRecord) database.UserRecord {
	embeddings := make([][]float32, len(u.Embeddings))
	for i, e := range u.Embeddings {
		embeddings[i] = append([]float32(nil), e...)
	}
	return database.UserRecord{
		Identity:     u.Identity,
		Embeddings:   embeddings,
		RegisteredAt: u.RegisteredAt,
	}
}

// Verify interface compliance
var _ database.UserStore = (*MockUserStore)(nil)
