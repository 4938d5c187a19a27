// Package ingest turns uploaded files into searchable vectors.
//
// Ingestor runs the pipeline for one file: extract text, chunk, embed,
// upsert vectors, record document metadata. The synchronous upload endpoint
// calls it directly; batch uploads go through Queue, a bounded worker pool
// with per-task status tracking (queued, processing, done, failed).
//
// Queue jobs deliberately run on a background context with their own
// timeout: once a client has handed over the bytes, dropping the connection
// must not abort the ingestion.
package ingest
