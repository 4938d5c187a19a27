// ABOUTME: Entry point for the lorekeep document chat server
// ABOUTME: Wires config, stores, auth services, and the RAG pipeline together

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/lorekeep/lorekeep/internal/auth"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/server"
	"github.com/lorekeep/lorekeep/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                _
| | ___  _ __ ___| | _____  ___ _ __
| |/ _ \| '__/ _ \ |/ / _ \/ _ \ '_ \
| | (_) | | |  __/   <  __/  __/ |_) |
|_|\___/|_|  \___|_|\_\___|\___| .__/
                               |_|
`

// getConfigPath returns the path to the config file.
// Priority: LOREKEEP_CONFIG env var > XDG_CONFIG_HOME/lorekeep/lorekeep.yaml > ~/.config/lorekeep/lorekeep.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LOREKEEP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "lorekeep.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lorekeep", "lorekeep.yaml")
}

// getDataPath returns the path to the lorekeep data directory.
// Priority: XDG_DATA_HOME/lorekeep > ~/.local/share/lorekeep
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "lorekeep")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: lorekeep <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)

	green.Print("    ▶ ")
	fmt.Printf("Vectors:   ")
	if cfg.RAG.QdrantURL != "" {
		cyan.Print(cfg.RAG.QdrantURL)
	} else {
		yellow.Print("in-memory")
	}
	fmt.Println()

	green.Print("    ▶ ")
	fmt.Printf("Models:    ")
	if cfg.RAG.OpenAIAPIKey != "" {
		cyan.Print("openai")
	} else {
		yellow.Print("local (hash embeddings, extractive answers)")
	}
	fmt.Println()
	fmt.Println()

	logger.Info("starting lorekeep",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return srv.Run(ctx)
}

// buildServer assembles the full service graph from the config. The returned
// cleanup closes the store.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.Server, func(), error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating token service: %w", err)
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	policy := auth.NewPolicy(st, cfg.Auth.Superuser, logger)

	// Remote backends when configured, local fallbacks otherwise. The local
	// pair keeps the whole stack runnable without any external service.
	var embedder rag.Embedder
	var completer rag.Completer
	if cfg.RAG.OpenAIAPIKey != "" {
		embedder = rag.NewOpenAIEmbedder(cfg.RAG.OpenAIAPIKey, cfg.RAG.EmbeddingModel)
		completer = rag.NewOpenAICompleter(cfg.RAG.OpenAIAPIKey, cfg.RAG.CompletionModel)
	} else {
		embedder = rag.NewHashEmbedder(cfg.RAG.VectorSize)
		completer = rag.ExtractCompleter{}
	}

	var vectors rag.VectorStore
	if cfg.RAG.QdrantURL != "" {
		vectors, err = rag.NewQdrantStore(ctx, cfg.RAG.QdrantURL, cfg.RAG.QdrantAPIKey, cfg.RAG.Collection, cfg.RAG.VectorSize)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
	} else {
		vectors = rag.NewMemoryStore(cfg.RAG.Collection)
	}

	ragSvc := rag.NewService(embedder, vectors, completer, cfg.RAG.TopK, float32(cfg.RAG.SimilarityThreshold), logger)

	extractor := rag.NewExtractor(cfg.Uploads.AllowedTypes)
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	ingestor := ingest.NewIngestor(extractor, chunker, embedder, vectors, st, logger)
	queue := ingest.NewQueue(ingestor, cfg.Uploads.Workers, cfg.Uploads.QueueDepth, logger)

	srv := server.New(cfg, st, hasher, tokens, policy, ragSvc, vectors, ingestor, queue, logger)
	return srv, cleanup, nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("lorekeep configuration setup")
	fmt.Println("============================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "lorekeep.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// RAG backends
	fmt.Println("\n--- Retrieval Configuration ---")
	qdrantURL := prompt(reader, "Qdrant URL (leave empty for in-memory vectors)", "")
	openaiKey := prompt(reader, "OpenAI API key (leave empty for local models)", "")

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate a random signing secret
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# lorekeep configuration\n")
	cfg.WriteString("# Generated by lorekeep init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("  cors_allowed_origins: [\"*\"]\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString("  token_ttl: \"30m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("rag:\n")
	if qdrantURL != "" {
		cfg.WriteString(fmt.Sprintf("  qdrant_url: \"%s\"\n", qdrantURL))
	}
	if openaiKey != "" {
		cfg.WriteString("  openai_api_key: \"${OPENAI_API_KEY}\"\n")
	}
	cfg.WriteString("  chunk_size: 1000\n")
	cfg.WriteString("  chunk_overlap: 100\n")
	cfg.WriteString("  top_k: 5\n")
	cfg.WriteString("  similarity_threshold: 0.7\n")
	cfg.WriteString("\n")

	cfg.WriteString("uploads:\n")
	cfg.WriteString("  max_file_size: 10485760\n")
	cfg.WriteString("  allowed_types: [\"txt\", \"md\", \"pdf\"]\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file. Contains the signing secret, keep it private.
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if openaiKey != "" {
		fmt.Println("\nThe OpenAI key is read from the OPENAI_API_KEY environment variable.")
		fmt.Printf("  export OPENAI_API_KEY=%q\n", openaiKey)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  lorekeep serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
