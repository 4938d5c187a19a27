// Package store provides persistent storage for lorekeep using SQLite.
//
// # Architecture
//
// The package uses an interface-driven architecture with narrow interfaces:
//
//   - UserStore: the user directory (credential records)
//   - TranscriptStore: append-only chat history per session
//   - DocumentStore: metadata for ingested uploads
//
// SQLiteStore implements all interfaces in a single struct; consumers depend
// on the narrowest interface that serves them (the auth policy, for example,
// only needs GetUser).
//
// # Data Models
//
//   - User: credential record with password hash, admin flag, activity fields
//   - UserView: redacted user representation with no hash field
//   - ChatSession/ChatMessage: conversation transcripts
//   - Document: upload metadata (the vectors live in the vector store)
//
// The hash never leaves the store layer except through the login path;
// UserView makes redaction structural rather than a runtime filter.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on startup.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateUser: username already taken
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests, or NewSQLiteStore(":memory:") for
// integration tests with real SQLite.
package store
