// ABOUTME: Package documentation for the HTTP server
// ABOUTME: Describes route layout, auth gating, and response conventions

// Package server implements the lorekeep HTTP API.
//
// # Routes
//
// The API is split into three groups:
//
//   - /auth/* handles registration, login, token refresh, and password
//     changes. Registration and login are open; refresh and change-password
//     verify their own bearer tokens.
//   - /users/* exposes the caller's own profile at /users/me and admin-only
//     user management at /users/ and /users/{username}.
//   - /chat/* covers document upload (single and batch), question answering,
//     transcript history, document metadata, and vector store maintenance.
//
// # Authentication
//
// Requests to /users and /chat pass through the bearer token gate before
// reaching any handler, so those handlers can assume an identity is present
// in the request context. Failed authentication produces a 401 with a
// WWW-Authenticate header and a generic detail message.
//
// Admin-only operations additionally consult the access policy, which reads
// the user directory on every request. A stale token cannot retain admin
// rights after the flag is revoked.
//
// Cross-origin requests from configured origins are granted CORS headers
// before the gate runs, so browser preflights succeed without a token.
//
// # Responses
//
// Handlers respond with JSON. Errors use {"detail": "..."} bodies; mutations
// use an envelope with message, success, and optional data fields.
package server
