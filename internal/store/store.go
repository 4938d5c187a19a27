// ABOUTME: Store interfaces and data types for lorekeep persistence
// ABOUTME: Defines User, ChatSession, Document structs and store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when creating a user whose username is taken
var ErrDuplicateUser = errors.New("username already exists")

// User is a credential record in the user directory. PasswordHash never
// leaves the store layer except through credential verification; use View
// for anything client-facing.
type User struct {
	Username     string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// UserView is the redacted representation of a User. It structurally has no
// hash field, so serializing it can never leak credentials.
type UserView struct {
	Username  string     `json:"username"`
	IsAdmin   bool       `json:"is_admin"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// View returns the redacted form of the user.
func (u *User) View() UserView {
	return UserView{
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// Message role constants for chat transcripts
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the messages of one conversation
type ChatSession struct {
	ID        string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is a single transcript entry within a session
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Document records metadata about an ingested upload. The chunk vectors
// themselves live in the vector store, keyed by username.
type Document struct {
	ID         string
	Username   string
	Filename   string
	FileType   string
	Chunks     int
	Characters int
	UploadedAt time.Time
}

// UserStore is the user directory: persistent credential records
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
	DeleteUser(ctx context.Context, username string) error
}

// TranscriptStore is the append-only chat history per session
type TranscriptStore interface {
	AppendMessage(ctx context.Context, sessionID, username, role, content string) error
	GetHistory(ctx context.Context, sessionID string, lastN int) ([]*ChatMessage, error)
}

// DocumentStore tracks uploaded document metadata per user
type DocumentStore interface {
	RecordDocument(ctx context.Context, doc *Document) error
	ListDocuments(ctx context.Context, username string) ([]*Document, error)
	DeleteDocuments(ctx context.Context, username string) error
}

// Store combines all persistence interfaces. SQLiteStore implements the
// whole thing in one struct; consumers should depend on the narrow
// interface they need.
type Store interface {
	UserStore
	TranscriptStore
	DocumentStore
	Close() error
}
