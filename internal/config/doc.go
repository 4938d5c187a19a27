// Package config handles configuration loading for lorekeep.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${LOREKEEP_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/lorekeep/lorekeep.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${LOREKEEP_JWT_SECRET}"  # required
//	  token_ttl: "30m"
//	  bcrypt_cost: 10
//	  superuser: "admin"
//
// Retrieval:
//
//	rag:
//	  qdrant_url: "http://localhost:6333"
//	  openai_api_key: "${OPENAI_API_KEY}"
//	  collection: "lorekeep_documents"
//	  chunk_size: 1000
//	  chunk_overlap: 100
//	  top_k: 5
//	  similarity_threshold: 0.7
//
// Uploads and logging:
//
//	uploads:
//	  max_file_size: 10485760
//	  allowed_types: ["txt", "md"]
//	  workers: 2
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() fails on a missing jwt_secret or database path: the process must
// not start without a signing secret.
package config
