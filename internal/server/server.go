// ABOUTME: HTTP server wiring routes, auth middleware, and graceful shutdown
// ABOUTME: All services are injected at construction; no package-level state

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorekeep/lorekeep/internal/auth"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/store"
)

// Path prefix sets for the auth gate. Exclusion is checked first.
var (
	protectedPrefixes = []string{"/users", "/chat"}
	excludedPrefixes  = []string{"/auth/token", "/auth/register", "/health"}
)

// Server is the lorekeep HTTP server. Every collaborator is injected once
// at startup and treated as immutable afterwards.
type Server struct {
	cfg      *config.Config
	store    store.Store
	hasher   *auth.Hasher
	tokens   *auth.TokenService
	policy   *auth.Policy
	rag      *rag.Service
	vectors  rag.VectorStore
	ingestor *ingest.Ingestor
	queue    *ingest.Queue
	logger   *slog.Logger

	httpServer *http.Server
}

// New assembles the server from its collaborators.
func New(cfg *config.Config, st store.Store, hasher *auth.Hasher, tokens *auth.TokenService, policy *auth.Policy, ragSvc *rag.Service, vectors rag.VectorStore, ingestor *ingest.Ingestor, queue *ingest.Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		store:    st,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
		rag:      ragSvc,
		vectors:  vectors,
		ingestor: ingestor,
		queue:    queue,
		logger:   logger.With("component", "server"),
	}

	gate := auth.NewMiddleware(tokens, protectedPrefixes, excludedPrefixes, logger)
	handler := s.loggingMiddleware(s.corsMiddleware(gate.Handler(s.routes())))

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes builds the route table.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/auth/register", s.handleRegister)
	mux.HandleFunc("/auth/token", s.handleLogin)
	mux.HandleFunc("/auth/refresh", s.handleRefresh)
	mux.HandleFunc("/auth/change-password", s.handleChangePassword)

	mux.HandleFunc("/users/", s.handleUsers)

	mux.HandleFunc("/chat/ask", s.handleAsk)
	mux.HandleFunc("/chat/upload", s.handleUpload)
	mux.HandleFunc("/chat/uploads", s.handleBatchUpload)
	mux.HandleFunc("/chat/uploads/", s.handleUploadStatus)
	mux.HandleFunc("/chat/history", s.handleChatHistory)
	mux.HandleFunc("/chat/documents/summary", s.handleDocumentSummary)
	mux.HandleFunc("/chat/documents", s.handleDeleteDocuments)
	mux.HandleFunc("/chat/vector-db", s.handleDeleteVectorDB)
	mux.HandleFunc("/chat/health", s.handleVectorDBHealth)

	return mux
}

// Handler exposes the fully wrapped handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully, draining the ingest queue last.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown error", "error", err)
	}

	if s.queue != nil {
		s.queue.Shutdown()
	}

	if serveErr != nil {
		return fmt.Errorf("serving HTTP: %w", serveErr)
	}
	return nil
}

// handleRoot answers only the exact root path; everything else that falls
// through the mux is a 404.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "welcome to lorekeep",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "lorekeep is running",
	})
}

// identityFromRequest authenticates a request outside the gated prefixes
// (the /auth endpoints verify their own bearer tokens).
func (s *Server) identityFromRequest(r *http.Request) (*auth.Identity, error) {
	token, errMsg := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	return &auth.Identity{Username: sub, Claims: claims}, nil
}
