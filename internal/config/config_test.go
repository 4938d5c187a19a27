// ABOUTME: Tests for configuration loading, env expansion, and validation
// ABOUTME: Uses temp files to exercise the full YAML load path

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lorekeep.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Minimal(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "test-secret"
database:
  path: ":memory:"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("JWTSecret = %q, want test-secret", cfg.Auth.JWTSecret)
	}

	// Defaults
	if cfg.Server.HTTPAddr != "localhost:8080" {
		t.Errorf("HTTPAddr default = %q", cfg.Server.HTTPAddr)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins default = %v, want [*]", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL default = %v, want 30m", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Superuser != "admin" {
		t.Errorf("Superuser default = %q, want admin", cfg.Auth.Superuser)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("chunking defaults = %d/%d, want 1000/100", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != 5 {
		t.Errorf("TopK default = %d, want 5", cfg.RAG.TopK)
	}
	if cfg.Uploads.MaxFileSize != 10<<20 {
		t.Errorf("MaxFileSize default = %d, want 10MB", cfg.Uploads.MaxFileSize)
	}
	if len(cfg.Uploads.AllowedTypes) != 3 {
		t.Errorf("AllowedTypes default = %v, want [txt md pdf]", cfg.Uploads.AllowedTypes)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9000"
database:
  path: "/tmp/test.db"
auth:
  jwt_secret: "secret"
  superuser: "operator"
  bcrypt_cost: 10
  token_ttl: "2h"
rag:
  qdrant_url: "http://localhost:6333"
  collection: "docs"
  chunk_size: 500
  chunk_overlap: 50
  top_k: 3
  similarity_threshold: 0.5
uploads:
  max_file_size: 1048576
  allowed_types: ["txt"]
  workers: 4
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9000" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Superuser != "operator" {
		t.Errorf("Superuser = %q", cfg.Auth.Superuser)
	}
	if cfg.RAG.QdrantURL != "http://localhost:6333" {
		t.Errorf("QdrantURL = %q", cfg.RAG.QdrantURL)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.Uploads.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Uploads.Workers)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("LOREKEEP_TEST_SECRET", "from-the-environment")

	path := writeConfig(t, `
auth:
  jwt_secret: "${LOREKEEP_TEST_SECRET}"
database:
  path: ":memory:"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-the-environment" {
		t.Errorf("JWTSecret = %q, want expanded env value", cfg.Auth.JWTSecret)
	}
}

func TestLoad_UnsetEnvBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "${LOREKEEP_DEFINITELY_UNSET_VAR}"
database:
  path: ":memory:"
`)

	// Empty secret after expansion must fail validation
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should reject an empty jwt_secret")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing jwt secret",
			content: `
database:
  path: ":memory:"
`,
			wantErr: "jwt_secret",
		},
		{
			name: "missing database path",
			content: `
auth:
  jwt_secret: "secret"
`,
			wantErr: "database.path",
		},
		{
			name: "overlap not smaller than chunk size",
			content: `
auth:
  jwt_secret: "secret"
database:
  path: ":memory:"
rag:
  chunk_size: 100
  chunk_overlap: 100
`,
			wantErr: "chunk_overlap",
		},
		{
			name: "bad token ttl",
			content: `
auth:
  jwt_secret: "secret"
  token_ttl: "not-a-duration"
database:
  path: ":memory:"
`,
			wantErr: "token_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}
