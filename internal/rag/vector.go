// ABOUTME: Vector store interface and in-memory cosine-similarity implementation
// ABOUTME: Points are keyed per user so retrieval never crosses user boundaries

package rag

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// Point is one embedded chunk with its metadata.
type Point struct {
	ID         string
	Username   string
	Vector     []float32
	Text       string
	Filename   string
	FileType   string
	ChunkIndex int
	UploadedAt time.Time
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	Point Point
	Score float32
}

// CollectionInfo describes the health and size of the vector collection.
type CollectionInfo struct {
	Collection  string `json:"collection_name"`
	Status      string `json:"status"`
	VectorCount int    `json:"vector_count"`
	Indexed     bool   `json:"indexed"`
	Error       string `json:"error,omitempty"`
}

// VectorStore stores embedded chunks and retrieves the nearest ones.
// Search is always scoped to one user's documents.
type VectorStore interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, username string, vector []float32, limit int, minScore float32) ([]SearchResult, error)
	DeleteUser(ctx context.Context, username string) error
	DeleteCollection(ctx context.Context) error
	Info(ctx context.Context) (CollectionInfo, error)
}

// MemoryStore is an in-memory VectorStore using exact cosine similarity.
// Suitable for tests and small single-node deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	collection string
	points     map[string]Point // keyed by point ID
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore(collection string) *MemoryStore {
	return &MemoryStore{
		collection: collection,
		points:     make(map[string]Point),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.ID] = p
	}
	return nil
}

func (m *MemoryStore) Search(_ context.Context, username string, vector []float32, limit int, minScore float32) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, p := range m.points {
		if p.Username != username {
			continue
		}
		score := cosine(vector, p.Vector)
		if score < minScore {
			continue
		}
		results = append(results, SearchResult{Point: p, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.Username == username {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *MemoryStore) DeleteCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[string]Point)
	return nil
}

func (m *MemoryStore) Info(_ context.Context) (CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CollectionInfo{
		Collection:  m.collection,
		Status:      "green",
		VectorCount: len(m.points),
		Indexed:     true,
	}, nil
}

// cosine computes cosine similarity; mismatched lengths score zero.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
