// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Runs against in-memory databases; covers users, transcripts, documents

package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_CreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Second)
	user := &User{
		Username:     "alice",
		PasswordHash: "$2a$10$fakehash",
		IsAdmin:      true,
		IsActive:     true,
		CreatedAt:    created,
	}

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Username != "alice" || got.PasswordHash != "$2a$10$fakehash" {
		t.Errorf("GetUser() = %+v", got)
	}
	if !got.IsAdmin || !got.IsActive {
		t.Errorf("flags lost: admin=%v active=%v", got.IsAdmin, got.IsActive)
	}
	if got.LastLogin != nil {
		t.Errorf("LastLogin = %v, want nil", got.LastLogin)
	}
}

func TestSQLiteStore_GetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DuplicateUserLeavesFirstIntact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &User{Username: "alice", PasswordHash: "hash-one", IsActive: true, CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	second := &User{Username: "alice", PasswordHash: "hash-two", IsActive: true, CreatedAt: time.Now().UTC()}
	err := s.CreateUser(ctx, second)
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("CreateUser() duplicate error = %v, want ErrDuplicateUser", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.PasswordHash != "hash-one" {
		t.Errorf("original record modified: hash = %q", got.PasswordHash)
	}
}

func TestSQLiteStore_ListUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		user := &User{Username: name, PasswordHash: "h", IsActive: true, CreatedAt: time.Now().UTC()}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Errorf("ListUsers() returned %d users, want 3", len(users))
	}
}

func TestSQLiteStore_UpdatePassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Username: "alice", PasswordHash: "old", IsActive: true, CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := s.UpdatePassword(ctx, "alice", "new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := s.GetUser(ctx, "alice")
	if got.PasswordHash != "new" {
		t.Errorf("hash = %q, want new", got.PasswordHash)
	}

	if err := s.UpdatePassword(ctx, "ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePassword(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_TouchLastLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Username: "alice", PasswordHash: "h", IsActive: true, CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchLastLogin(ctx, "alice", at); err != nil {
		t.Fatalf("TouchLastLogin() error = %v", err)
	}

	got, _ := s.GetUser(ctx, "alice")
	if got.LastLogin == nil {
		t.Fatal("LastLogin still nil after touch")
	}
	if !got.LastLogin.Equal(at) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
	}
}

func TestSQLiteStore_DeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Username: "alice", PasswordHash: "h", IsActive: true, CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := s.GetUser(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteUser(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteUser() twice error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_TranscriptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exchanges := []struct{ role, content string }{
		{RoleUser, "what is in my notes?"},
		{RoleAssistant, "your notes mention three things"},
		{RoleUser, "tell me more about the first"},
		{RoleAssistant, "the first thing is ..."},
	}

	for _, e := range exchanges {
		if err := s.AppendMessage(ctx, "session-1", "alice", e.role, e.content); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		// Keep timestamps strictly increasing
		time.Sleep(5 * time.Millisecond)
	}

	history, err := s.GetHistory(ctx, "session-1", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != len(exchanges) {
		t.Fatalf("GetHistory() returned %d messages, want %d", len(history), len(exchanges))
	}
	for i, m := range history {
		if m.Role != exchanges[i].role || m.Content != exchanges[i].content {
			t.Errorf("message %d = %q/%q, want %q/%q", i, m.Role, m.Content, exchanges[i].role, exchanges[i].content)
		}
	}
}

func TestSQLiteStore_GetHistory_LastN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		content := strings.Repeat("x", i+1)
		if err := s.AppendMessage(ctx, "session-1", "alice", RoleUser, content); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	history, err := s.GetHistory(ctx, "session-1", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("GetHistory(2) returned %d messages", len(history))
	}
	// The two newest, oldest first
	if history[0].Content != "xxxxx" || history[1].Content != "xxxxxx" {
		t.Errorf("GetHistory(2) = [%q, %q]", history[0].Content, history[1].Content)
	}
}

func TestSQLiteStore_Documents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &Document{
		Username:   "alice",
		Filename:   "notes.md",
		FileType:   "md",
		Chunks:     4,
		Characters: 3000,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.RecordDocument(ctx, doc); err != nil {
		t.Fatalf("RecordDocument() error = %v", err)
	}
	if doc.ID == "" {
		t.Error("RecordDocument() did not assign an ID")
	}

	other := &Document{Username: "bob", Filename: "other.txt", FileType: "txt", Chunks: 1, Characters: 10, UploadedAt: time.Now().UTC()}
	if err := s.RecordDocument(ctx, other); err != nil {
		t.Fatalf("RecordDocument() error = %v", err)
	}

	docs, err := s.ListDocuments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "notes.md" {
		t.Errorf("ListDocuments(alice) = %+v", docs)
	}

	if err := s.DeleteDocuments(ctx, "alice"); err != nil {
		t.Fatalf("DeleteDocuments() error = %v", err)
	}
	docs, _ = s.ListDocuments(ctx, "alice")
	if len(docs) != 0 {
		t.Errorf("documents remain after delete: %+v", docs)
	}

	// Other users' documents are untouched
	docs, _ = s.ListDocuments(ctx, "bob")
	if len(docs) != 1 {
		t.Errorf("ListDocuments(bob) = %+v, want 1 document", docs)
	}
}

func TestUserView_RedactsHash(t *testing.T) {
	user := &User{
		Username:     "alice",
		PasswordHash: "super-secret-hash",
		IsAdmin:      true,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user.View())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "super-secret-hash") {
		t.Errorf("serialized view leaks the hash: %s", data)
	}
	if !strings.Contains(string(data), `"username":"alice"`) {
		t.Errorf("serialized view missing username: %s", data)
	}
}
