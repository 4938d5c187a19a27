// ABOUTME: Qdrant VectorStore implementation over its REST API
// ABOUTME: Ensures the collection exists and filters every search by username

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QdrantStore implements VectorStore against a Qdrant server.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	vectorSize int
	client     *http.Client
}

// NewQdrantStore creates a client for the given Qdrant URL and ensures the
// collection exists with the expected vector size.
func NewQdrantStore(ctx context.Context, baseURL, apiKey, collection string, vectorSize int) (*QdrantStore, error) {
	q := &QdrantStore{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		vectorSize: vectorSize,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensuring collection %q: %w", collection, err)
	}
	return q, nil
}

func (q *QdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling qdrant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant status %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding qdrant response: %w", err)
		}
	}
	return nil
}

func (q *QdrantStore) ensureCollection(ctx context.Context) error {
	// PUT is idempotent when the collection already exists with matching params
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.vectorSize,
			"distance": "Cosine",
		},
	}
	err := q.do(ctx, http.MethodPut, "/collections/"+q.collection, body, nil)
	if err != nil {
		// Already-exists conflicts are fine
		var info CollectionInfo
		if infoErr := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil, &info); infoErr == nil {
			return nil
		}
		return err
	}
	return nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes the points with their chunk metadata as payload.
func (q *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	qp := make([]qdrantPoint, len(points))
	for i, p := range points {
		qp[i] = qdrantPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				"username":    p.Username,
				"text":        p.Text,
				"filename":    p.Filename,
				"file_type":   p.FileType,
				"chunk_index": p.ChunkIndex,
				"uploaded_at": p.UploadedAt.Format(time.RFC3339),
			},
		}
	}
	return q.do(ctx, http.MethodPut, "/collections/"+q.collection+"/points?wait=true",
		map[string]any{"points": qp}, nil)
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      string         `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search retrieves the nearest chunks belonging to the user.
func (q *QdrantStore) Search(ctx context.Context, username string, vector []float32, limit int, minScore float32) ([]SearchResult, error) {
	body := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": minScore,
		"with_payload":    true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "username", "match": map[string]any{"value": username}},
			},
		},
	}

	var parsed qdrantSearchResponse
	if err := q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/search", body, &parsed); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		p := Point{ID: r.ID, Username: username}
		if s, ok := r.Payload["text"].(string); ok {
			p.Text = s
		}
		if s, ok := r.Payload["filename"].(string); ok {
			p.Filename = s
		}
		if s, ok := r.Payload["file_type"].(string); ok {
			p.FileType = s
		}
		if f, ok := r.Payload["chunk_index"].(float64); ok {
			p.ChunkIndex = int(f)
		}
		if s, ok := r.Payload["uploaded_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				p.UploadedAt = t
			}
		}
		results = append(results, SearchResult{Point: p, Score: r.Score})
	}
	return results, nil
}

// DeleteUser removes all of the user's points from the collection.
func (q *QdrantStore) DeleteUser(ctx context.Context, username string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "username", "match": map[string]any{"value": username}},
			},
		},
	}
	return q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/delete?wait=true", body, nil)
}

// DeleteCollection drops and recreates the whole collection.
func (q *QdrantStore) DeleteCollection(ctx context.Context) error {
	if err := q.do(ctx, http.MethodDelete, "/collections/"+q.collection, nil, nil); err != nil {
		return err
	}
	return q.ensureCollection(ctx)
}

type qdrantInfoResponse struct {
	Result struct {
		Status      string `json:"status"`
		PointsCount int    `json:"points_count"`
	} `json:"result"`
}

// Info reports collection status and size.
func (q *QdrantStore) Info(ctx context.Context) (CollectionInfo, error) {
	var parsed qdrantInfoResponse
	if err := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil, &parsed); err != nil {
		return CollectionInfo{Collection: q.collection, Status: "error", Error: err.Error()}, err
	}
	return CollectionInfo{
		Collection:  q.collection,
		Status:      parsed.Result.Status,
		VectorCount: parsed.Result.PointsCount,
		Indexed:     true,
	}, nil
}
