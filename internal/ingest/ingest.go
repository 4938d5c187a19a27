// ABOUTME: Document ingestion pipeline: extract, chunk, embed, upsert, record
// ABOUTME: Shared by the synchronous upload path and the background queue

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/store"
)

// Result summarizes one successful ingestion.
type Result struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	Characters    int    `json:"characters"`
}

// Ingestor runs the full pipeline for one uploaded file.
type Ingestor struct {
	extractor *rag.Extractor
	chunker   *rag.Chunker
	embedder  rag.Embedder
	vectors   rag.VectorStore
	documents store.DocumentStore
	logger    *slog.Logger
}

// NewIngestor wires the pipeline stages together.
func NewIngestor(extractor *rag.Extractor, chunker *rag.Chunker, embedder rag.Embedder, vectors rag.VectorStore, documents store.DocumentStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		logger:    logger.With("component", "ingest"),
	}
}

// Ingest processes one file for a user: extract text, chunk it, embed the
// chunks, upsert the vectors, and record the document metadata.
func (in *Ingestor) Ingest(ctx context.Context, username, filename string, content []byte) (*Result, error) {
	text, err := in.extractor.Extract(filename, content)
	if err != nil {
		return nil, err
	}

	chunks := in.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("file %q contains no extractable text", filename)
	}

	vectors, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	now := time.Now().UTC()
	points := make([]rag.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = rag.Point{
			ID:         uuid.New().String(),
			Username:   username,
			Vector:     vectors[i],
			Text:       chunk,
			Filename:   filename,
			FileType:   rag.FileType(filename),
			ChunkIndex: i,
			UploadedAt: now,
		}
	}

	if err := in.vectors.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("storing vectors: %w", err)
	}

	doc := &store.Document{
		Username:   username,
		Filename:   filename,
		FileType:   rag.FileType(filename),
		Chunks:     len(chunks),
		Characters: len(text),
		UploadedAt: now,
	}
	if err := in.documents.RecordDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("recording document: %w", err)
	}

	in.logger.Info("document ingested", "username", username, "filename", filename, "chunks", len(chunks))
	return &Result{
		DocumentID:    doc.ID,
		Filename:      filename,
		ChunksCreated: len(chunks),
		Characters:    len(text),
	}, nil
}
