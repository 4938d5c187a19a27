// ABOUTME: Tests for the Qdrant REST client against a stub server
// ABOUTME: Verifies request shapes, user filters, and response decoding

package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// qdrantStub records requests and replies with canned bodies per path.
type qdrantStub struct {
	t        *testing.T
	requests []stubRequest
	replies  map[string]string // "METHOD path" -> JSON body
}

type stubRequest struct {
	method string
	path   string
	body   map[string]any
}

func (s *qdrantStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := stubRequest{method: r.Method, path: r.URL.Path}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req.body)
	}
	s.requests = append(s.requests, req)

	key := r.Method + " " + r.URL.Path
	if body, ok := s.replies[key]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"result":{},"status":"ok"}`))
}

func newStubStore(t *testing.T, replies map[string]string) (*QdrantStore, *qdrantStub) {
	t.Helper()
	stub := &qdrantStub{t: t, replies: replies}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	q, err := NewQdrantStore(context.Background(), srv.URL, "test-key", "docs", 64)
	require.NoError(t, err)
	return q, stub
}

func TestQdrantStore_EnsureCollectionOnCreate(t *testing.T) {
	_, stub := newStubStore(t, nil)

	require.NotEmpty(t, stub.requests)
	first := stub.requests[0]
	assert.Equal(t, http.MethodPut, first.method)
	assert.Equal(t, "/collections/docs", first.path)

	vectors, ok := first.body["vectors"].(map[string]any)
	require.True(t, ok, "create body missing vectors config")
	assert.Equal(t, float64(64), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestQdrantStore_Upsert(t *testing.T) {
	q, stub := newStubStore(t, nil)

	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := q.Upsert(context.Background(), []Point{
		{
			ID:         "point-1",
			Username:   "alice",
			Vector:     []float32{1, 0},
			Text:       "chunk text",
			Filename:   "notes.txt",
			FileType:   "txt",
			ChunkIndex: 3,
			UploadedAt: uploaded,
		},
	})
	require.NoError(t, err)

	last := stub.requests[len(stub.requests)-1]
	assert.Equal(t, http.MethodPut, last.method)
	assert.Equal(t, "/collections/docs/points", last.path)

	points, ok := last.body["points"].([]any)
	require.True(t, ok)
	require.Len(t, points, 1)

	payload := points[0].(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "alice", payload["username"])
	assert.Equal(t, "chunk text", payload["text"])
	assert.Equal(t, "notes.txt", payload["filename"])
	assert.Equal(t, float64(3), payload["chunk_index"])
	assert.Equal(t, "2026-03-01T12:00:00Z", payload["uploaded_at"])
}

func TestQdrantStore_SearchFiltersAndDecodes(t *testing.T) {
	searchReply := `{
		"result": [
			{
				"id": "point-1",
				"score": 0.91,
				"payload": {
					"text": "retrieved chunk",
					"filename": "notes.txt",
					"file_type": "txt",
					"chunk_index": 2,
					"uploaded_at": "2026-03-01T12:00:00Z"
				}
			}
		]
	}`
	q, stub := newStubStore(t, map[string]string{
		"POST /collections/docs/points/search": searchReply,
	})

	results, err := q.Search(context.Background(), "alice", []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "retrieved chunk", results[0].Point.Text)
	assert.Equal(t, "notes.txt", results[0].Point.Filename)
	assert.Equal(t, 2, results[0].Point.ChunkIndex)
	assert.Equal(t, "alice", results[0].Point.Username)
	assert.InDelta(t, 0.91, float64(results[0].Score), 1e-6)
	assert.Equal(t, 2026, results[0].Point.UploadedAt.Year())

	// The request must scope retrieval to the user
	last := stub.requests[len(stub.requests)-1]
	filter, ok := last.body["filter"].(map[string]any)
	require.True(t, ok, "search request has no filter")
	must := filter["must"].([]any)
	match := must[0].(map[string]any)
	assert.Equal(t, "username", match["key"])
	assert.Equal(t, map[string]any{"value": "alice"}, match["match"])
	assert.Equal(t, float64(0.5), last.body["score_threshold"])
	assert.Equal(t, float64(5), last.body["limit"])
}

func TestQdrantStore_DeleteUser(t *testing.T) {
	q, stub := newStubStore(t, nil)

	err := q.DeleteUser(context.Background(), "alice")
	require.NoError(t, err)

	last := stub.requests[len(stub.requests)-1]
	assert.Equal(t, "/collections/docs/points/delete", last.path)
	filter := last.body["filter"].(map[string]any)
	must := filter["must"].([]any)
	match := must[0].(map[string]any)
	assert.Equal(t, "username", match["key"])
}

func TestQdrantStore_DeleteCollectionRecreates(t *testing.T) {
	q, stub := newStubStore(t, nil)
	before := len(stub.requests)

	err := q.DeleteCollection(context.Background())
	require.NoError(t, err)

	var sawDelete, sawCreate bool
	for _, r := range stub.requests[before:] {
		if r.method == http.MethodDelete && r.path == "/collections/docs" {
			sawDelete = true
		}
		if r.method == http.MethodPut && r.path == "/collections/docs" {
			sawCreate = true
		}
	}
	assert.True(t, sawDelete, "collection was not deleted")
	assert.True(t, sawCreate, "collection was not recreated")
}

func TestQdrantStore_Info(t *testing.T) {
	q, _ := newStubStore(t, map[string]string{
		"GET /collections/docs": `{"result": {"status": "green", "points_count": 42}}`,
	})

	info, err := q.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Collection)
	assert.Equal(t, "green", info.Status)
	assert.Equal(t, 42, info.VectorCount)
}

func TestQdrantStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			// Let collection creation succeed
			_, _ = w.Write([]byte(`{"result": true}`))
			return
		}
		http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	q, err := NewQdrantStore(context.Background(), srv.URL, "", "docs", 64)
	require.NoError(t, err)

	_, err = q.Search(context.Background(), "alice", []float32{1, 0}, 5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant status 500")
}
