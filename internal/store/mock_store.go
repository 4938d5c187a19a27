// ABOUTME: In-memory Store implementation for unit tests
// ABOUTME: Thread-safe; mirrors SQLiteStore error semantics exactly

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory implementation of Store for tests.
type MockStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	sessions  map[string]*ChatSession
	messages  map[string][]*ChatMessage // keyed by session ID
	documents map[string][]*Document    // keyed by username

	// FailLookups forces GetUser to fail, simulating an unreachable
	// directory for fail-closed policy tests.
	FailLookups bool
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		users:     make(map[string]*User),
		sessions:  make(map[string]*ChatSession),
		messages:  make(map[string][]*ChatMessage),
		documents: make(map[string][]*Document),
	}
}

func (m *MockStore) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return ErrDuplicateUser
	}
	cp := *user
	m.users[user.Username] = &cp
	return nil
}

func (m *MockStore) GetUser(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailLookups {
		return nil, context.DeadlineExceeded
	}
	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockStore) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	return users, nil
}

func (m *MockStore) UpdatePassword(_ context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *MockStore) TouchLastLogin(_ context.Context, username string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *MockStore) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return ErrNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *MockStore) AppendMessage(_ context.Context, sessionID, username, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if s, ok := m.sessions[sessionID]; ok {
		s.UpdatedAt = now
	} else {
		m.sessions[sessionID] = &ChatSession{ID: sessionID, Username: username, CreatedAt: now, UpdatedAt: now}
	}
	m.messages[sessionID] = append(m.messages[sessionID], &ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	return nil
}

func (m *MockStore) GetHistory(_ context.Context, sessionID string, lastN int) ([]*ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[sessionID]
	if lastN > 0 && len(msgs) > lastN {
		msgs = msgs[len(msgs)-lastN:]
	}
	out := make([]*ChatMessage, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (m *MockStore) RecordDocument(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	cp := *doc
	m.documents[doc.Username] = append(m.documents[doc.Username], &cp)
	return nil
}

func (m *MockStore) ListDocuments(_ context.Context, username string) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.documents[username]
	out := make([]*Document, len(docs))
	for i, d := range docs {
		cp := *d
		out[i] = &cp
	}
	return out, nil
}

func (m *MockStore) DeleteDocuments(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, username)
	return nil
}

func (m *MockStore) Close() error { return nil }
