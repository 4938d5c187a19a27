// ABOUTME: RAG answer generation: embed query, retrieve chunks, prompt the LLM
// ABOUTME: Thin orchestration over the Embedder, VectorStore, and Completer

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Completer generates an answer from a prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Source describes where a retrieved chunk came from.
type Source struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	UploadDate string  `json:"upload_date,omitempty"`
}

// Answer is the result of one RAG query.
type Answer struct {
	Response        string
	Sources         []Source
	Confidence      string // "high", "medium", "low"
	RetrievedChunks int
}

// Service orchestrates retrieval-augmented generation over a user's
// uploaded documents.
type Service struct {
	embedder  Embedder
	vectors   VectorStore
	completer Completer
	topK      int
	minScore  float32
	logger    *slog.Logger
}

// NewService creates a RAG service.
func NewService(embedder Embedder, vectors VectorStore, completer Completer, topK int, minScore float32, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder:  embedder,
		vectors:   vectors,
		completer: completer,
		topK:      topK,
		minScore:  minScore,
		logger:    logger.With("component", "rag"),
	}
}

const systemPrompt = `You are a helpful assistant that answers questions using only the provided document context. If the context does not contain the answer, say so plainly instead of guessing.`

// Ask answers a question from the user's documents. Retrieval is scoped to
// the given username; other users' content is never consulted.
func (s *Service) Ask(ctx context.Context, username, question string) (*Answer, error) {
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := s.vectors.Search(ctx, username, vectors[0], s.topK, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	if len(results) == 0 {
		return &Answer{
			Response:   "I couldn't find anything in your uploaded documents related to that question.",
			Confidence: "low",
		}, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Context from the user's documents:\n\n")
	for i, r := range results {
		fmt.Fprintf(&prompt, "[%d] (%s)\n%s\n\n", i+1, r.Point.Filename, r.Point.Text)
	}
	prompt.WriteString("Question: ")
	prompt.WriteString(question)

	response, err := s.completer.Complete(ctx, systemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Filename:   r.Point.Filename,
			ChunkIndex: r.Point.ChunkIndex,
			Score:      r.Score,
		}
		if !r.Point.UploadedAt.IsZero() {
			sources[i].UploadDate = r.Point.UploadedAt.Format(time.RFC3339)
		}
	}

	s.logger.Info("answered question", "username", username, "retrieved", len(results))
	return &Answer{
		Response:        response,
		Sources:         sources,
		Confidence:      confidence(results[0].Score),
		RetrievedChunks: len(results),
	}, nil
}

// confidence maps the best retrieval score to a coarse confidence label.
func confidence(topScore float32) string {
	switch {
	case topScore >= 0.85:
		return "high"
	case topScore >= 0.7:
		return "medium"
	default:
		return "low"
	}
}

// OpenAICompleter calls the OpenAI chat completions endpoint.
type OpenAICompleter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAICompleter creates a completer using the given API key and model.
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICompleter{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the system and user messages and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat API status %d: %s", resp.StatusCode, msg)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// ExtractCompleter answers by echoing the most relevant context verbatim.
// Used when no completion API key is configured, and in tests.
type ExtractCompleter struct{}

// Complete returns the prompt's context section as the answer.
func (ExtractCompleter) Complete(_ context.Context, _ string, prompt string) (string, error) {
	return "Based on your documents:\n\n" + prompt, nil
}
