// ABOUTME: RAG chat handlers: ask, upload, batch upload, history, documents
// ABOUTME: All operations are scoped to the authenticated user's own content

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/auth"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/store"
)

// AskRequest is the JSON body for POST /chat/ask.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	IncludeSources bool   `json:"include_sources"`
}

// AskResponse is the JSON response for POST /chat/ask.
type AskResponse struct {
	Response        string       `json:"response"`
	Sources         []rag.Source `json:"sources,omitempty"`
	Confidence      string       `json:"confidence"`
	RetrievedChunks int          `json:"retrieved_chunks"`
	ConversationID  string       `json:"conversation_id"`
}

// HistoryRequest is the JSON body for POST /chat/history.
type HistoryRequest struct {
	SessionID string `json:"session_id"`
	LastN     int    `json:"last_n,omitempty"`
}

// HistoryMessage is one transcript entry in a history response.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// HistoryResponse is the JSON response for POST /chat/history.
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	History   []HistoryMessage `json:"history"`
}

// DocumentSummary is the JSON response for GET /chat/documents/summary.
type DocumentSummary struct {
	TotalDocuments  int            `json:"total_documents"`
	TotalChunks     int            `json:"total_chunks"`
	FileTypes       map[string]int `json:"file_types"`
	TotalCharacters int            `json:"total_characters"`
	UploadDates     []string       `json:"upload_dates"`
}

// QueuedUpload describes one file accepted into the background queue.
type QueuedUpload struct {
	Filename string `json:"filename"`
	TaskID   string `json:"task_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// BatchUploadResponse is the JSON response for POST /chat/uploads.
type BatchUploadResponse struct {
	Success     bool           `json:"success"`
	TotalFiles  int            `json:"total_files"`
	QueuedTasks []QueuedUpload `json:"queued_tasks"`
}

// handleAsk answers a question from the user's documents and appends both
// sides of the exchange to the session transcript.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if err := s.store.AppendMessage(r.Context(), conversationID, id.Username, store.RoleUser, req.Question); err != nil {
		s.logger.Warn("recording question failed", "username", id.Username, "error", err)
	}

	answer, err := s.rag.Ask(r.Context(), id.Username, req.Question)
	if err != nil {
		s.logger.Error("chat failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate response")
		return
	}

	if err := s.store.AppendMessage(r.Context(), conversationID, id.Username, store.RoleAssistant, answer.Response); err != nil {
		s.logger.Warn("recording answer failed", "username", id.Username, "error", err)
	}

	resp := AskResponse{
		Response:        answer.Response,
		Confidence:      answer.Confidence,
		RetrievedChunks: answer.RetrievedChunks,
		ConversationID:  conversationID,
	}
	if req.IncludeSources {
		resp.Sources = answer.Sources
	}
	writeJSON(w, http.StatusOK, resp)
}

// readUploadFile reads one multipart file, enforcing the size limit.
func (s *Server) readUploadFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.cfg.Uploads.MaxFileSize+1))
	if err != nil {
		return "", nil, err
	}
	if int64(len(content)) > s.cfg.Uploads.MaxFileSize {
		return "", nil, errors.New("file exceeds maximum size")
	}
	return header.Filename, content, nil
}

// handleUpload ingests a single document synchronously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxFileSize*2)
	filename, content, err := s.readUploadFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), id.Username, filename, content)
	if err != nil {
		if errors.Is(err, rag.ErrUnsupportedFileType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("upload failed", "username", id.Username, "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to upload document")
		return
	}

	writeEnvelope(w, http.StatusOK, "document uploaded successfully", result)
}

// handleBatchUpload queues multiple documents for background ingestion.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	if err := r.ParseMultipartForm(s.cfg.Uploads.MaxFileSize * 4); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	queued := make([]QueuedUpload, 0, len(files))
	allOK := true
	for _, header := range files {
		entry := QueuedUpload{Filename: header.Filename}

		file, err := header.Open()
		if err != nil {
			entry.Status = "error"
			entry.Error = err.Error()
			allOK = false
			queued = append(queued, entry)
			continue
		}
		content, err := io.ReadAll(io.LimitReader(file, s.cfg.Uploads.MaxFileSize+1))
		file.Close()
		if err != nil || int64(len(content)) > s.cfg.Uploads.MaxFileSize {
			entry.Status = "error"
			entry.Error = "file unreadable or exceeds maximum size"
			allOK = false
			queued = append(queued, entry)
			continue
		}
		if len(content) == 0 {
			entry.Status = "error"
			entry.Error = "file is empty"
			allOK = false
			queued = append(queued, entry)
			continue
		}

		taskID, err := s.queue.Enqueue(id.Username, header.Filename, content)
		if err != nil {
			entry.Status = "error"
			entry.Error = err.Error()
			allOK = false
			queued = append(queued, entry)
			continue
		}
		entry.TaskID = taskID
		entry.Status = ingest.StatusQueued
		queued = append(queued, entry)
	}

	writeJSON(w, http.StatusOK, BatchUploadResponse{
		Success:     allOK,
		TotalFiles:  len(files),
		QueuedTasks: queued,
	})
}

// handleUploadStatus reports the state of a queued ingestion task.
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	taskID := strings.TrimPrefix(r.URL.Path, "/chat/uploads/")
	if taskID == "" || strings.Contains(taskID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	task, err := s.queue.Status(taskID, id.Username)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleChatHistory returns the last messages of a session transcript.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.LastN <= 0 {
		req.LastN = 5
	}

	messages, err := s.store.GetHistory(r.Context(), req.SessionID, req.LastN)
	if err != nil {
		s.logger.Error("fetching history failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch chat history")
		return
	}

	history := make([]HistoryMessage, len(messages))
	for i, m := range messages {
		history[i] = HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: req.SessionID, History: history})
}

// handleDocumentSummary aggregates the user's upload metadata.
func (s *Server) handleDocumentSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	docs, err := s.store.ListDocuments(r.Context(), id.Username)
	if err != nil {
		s.logger.Error("listing documents failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get document summary")
		return
	}

	summary := DocumentSummary{FileTypes: make(map[string]int)}
	dates := make(map[string]bool)
	for _, d := range docs {
		summary.TotalDocuments++
		summary.TotalChunks += d.Chunks
		summary.TotalCharacters += d.Characters
		summary.FileTypes[d.FileType]++
		dates[d.UploadedAt.UTC().Format("2006-01-02")] = true
	}
	for date := range dates {
		summary.UploadDates = append(summary.UploadDates, date)
	}
	sort.Strings(summary.UploadDates)
	if summary.UploadDates == nil {
		summary.UploadDates = []string{}
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleDeleteDocuments removes all of the user's vectors and metadata.
func (s *Server) handleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	if err := s.vectors.DeleteUser(r.Context(), id.Username); err != nil {
		s.logger.Error("deleting vectors failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete documents")
		return
	}
	if err := s.store.DeleteDocuments(r.Context(), id.Username); err != nil {
		s.logger.Error("deleting document records failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete documents")
		return
	}

	s.logger.Info("documents deleted", "username", id.Username)
	writeEnvelope(w, http.StatusOK, "all your documents have been deleted successfully", nil)
}

// handleDeleteVectorDB drops the whole collection. Admin only.
func (s *Server) handleDeleteVectorDB(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := auth.MustIdentityFromContext(r.Context())

	if !s.requireAdmin(w, r, id) {
		return
	}

	if err := s.vectors.DeleteCollection(r.Context()); err != nil {
		s.logger.Error("deleting collection failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete vector database")
		return
	}

	s.logger.Warn("vector database deleted", "admin", id.Username)
	writeEnvelope(w, http.StatusOK, "vector database has been completely deleted", nil)
}

// handleVectorDBHealth reports collection status.
func (s *Server) handleVectorDBHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	info, err := s.vectors.Info(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, rag.CollectionInfo{
			Collection: info.Collection,
			Status:     "error",
			Error:      err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, info)
}
