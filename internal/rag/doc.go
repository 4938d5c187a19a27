// Package rag provides retrieval-augmented generation over uploaded
// documents.
//
// # Pipeline
//
// Ingestion: Extractor flattens an upload to plain text (markdown via
// goldmark), Chunker splits it into overlapping windows, an Embedder turns
// the chunks into vectors, and a VectorStore persists them keyed by
// username.
//
// Query: the question is embedded, the user's nearest chunks are retrieved
// above a similarity threshold, and a Completer generates the answer from a
// prompt containing the retrieved context.
//
// # Swappable Collaborators
//
// Embedder, VectorStore, and Completer are interfaces. Production wiring
// uses OpenAIEmbedder + QdrantStore + OpenAICompleter; tests and keyless
// deployments use HashEmbedder + MemoryStore + ExtractCompleter. Chunking
// parameters, top-k, and the similarity threshold come from config.
//
// # Isolation
//
// Every search carries a username filter. One user's question can never
// retrieve another user's chunks.
package rag
