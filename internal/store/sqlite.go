// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite
// ABOUTME: Provides user/transcript/document persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			last_login DATETIME
		);

		CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_sessions_username
			ON chat_sessions(username);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES chat_sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_session_created
			ON chat_messages(session_id, created_at);

		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			characters INTEGER NOT NULL,
			uploaded_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_username
			ON documents(username);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user record. Returns ErrDuplicateUser if the
// username is already taken; the existing record is left untouched.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, is_active, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.IsAdmin, user.IsActive, user.CreatedAt, user.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUser returns the full record including the password hash. Callers
// outside the login path must use User.View before exposing it.
func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, is_admin, is_active, created_at, last_login
		FROM users WHERE username = ?`, username)

	var u User
	var lastLogin sql.NullTime
	err := row.Scan(&u.Username, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, is_admin, is_active, created_at, last_login
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &lastLogin); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if lastLogin.Valid {
			u.LastLogin = &lastLogin.Time
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// UpdatePassword replaces the stored hash for the user.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`, at, username)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// DeleteUser removes a user record.
func (s *SQLiteStore) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends a message to a session transcript, creating the
// session row on first use.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, username, role, content string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, username, now, now)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, role, content, now)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return tx.Commit()
}

// GetHistory returns the last N messages of a session in chronological
// order. lastN <= 0 returns the full transcript.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, lastN int) ([]*ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY created_at DESC`
	args := []any{sessionID}
	if lastN > 0 {
		query += " LIMIT ?"
		args = append(args, lastN)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// RecordDocument stores metadata for an ingested upload.
func (s *SQLiteStore) RecordDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, username, filename, file_type, chunks, characters, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Username, doc.Filename, doc.FileType, doc.Chunks, doc.Characters, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("recording document: %w", err)
	}
	return nil
}

// ListDocuments returns the user's document metadata, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, username string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, filename, file_type, chunks, characters, uploaded_at
		FROM documents WHERE username = ? ORDER BY uploaded_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Username, &d.Filename, &d.FileType, &d.Chunks, &d.Characters, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// DeleteDocuments removes all document metadata for a user.
func (s *SQLiteStore) DeleteDocuments(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
