// Package config provides configuration loading and structs for the RAG KB server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Answer    AnswerConfig    `yaml:"answer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and stored raw uploads.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	FilesPath    string `yaml:"files_path"`
}

// EmbeddingConfig holds embedder settings. Provider selects the
// implementation: "onnx" (local model), "openai" (OpenAI-compatible
// /embeddings endpoint, works against Ollama too), or "mock" (deterministic,
// for development). PassagePrefix and QueryPrefix are the paired E5-family
// encoding conventions; they must come from the same model family or
// retrieval quality silently degrades.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
	PassagePrefix string `yaml:"passage_prefix"`
	QueryPrefix   string `yaml:"query_prefix"`
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
}

// ChunkingConfig holds the sliding-window chunking constants (in characters).
type ChunkingConfig struct {
	ChunkChars   int `yaml:"chunk_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// Validate rejects window configurations the chunker cannot run with.
// This is a startup-fatal check, not a per-document failure.
func (c *ChunkingConfig) Validate() error {
	if c.ChunkChars <= 0 {
		return fmt.Errorf("chunking: chunk_chars must be positive, got %d", c.ChunkChars)
	}
	if c.OverlapChars < 0 {
		return fmt.Errorf("chunking: overlap_chars must not be negative, got %d", c.OverlapChars)
	}
	if c.OverlapChars >= c.ChunkChars {
		return fmt.Errorf("chunking: overlap_chars (%d) must be smaller than chunk_chars (%d)", c.OverlapChars, c.ChunkChars)
	}
	return nil
}

// AnswerConfig holds answer composition settings. MaxDistance gates
// low-relevance retrievals: when the best chunk's cosine distance exceeds it,
// the composer answers as if nothing was found. Set it negative to disable
// gating (0 means "use the default").
type AnswerConfig struct {
	Generator        string  `yaml:"generator"`
	MaxContextChunks int     `yaml:"max_context_chunks"`
	MaxAnswerChars   int     `yaml:"max_answer_chars"`
	SnippetChars     int     `yaml:"snippet_chars"`
	MaxDistance      float64 `yaml:"max_distance"`
	OllamaBaseURL    string  `yaml:"ollama_base_url"`
	OllamaModel      string  `yaml:"ollama_model"`
}

// WatchConfig holds drop-directory auto-ingestion settings. Files appearing
// under Directories with one of Extensions are ingested into CollectionID.
type WatchConfig struct {
	Directories  []string `yaml:"directories"`
	CollectionID string   `yaml:"collection_id"`
	Extensions   []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and validates the chunking window. Returns an error if the file
// cannot be read or parsed, or if the chunking configuration is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.FilesPath = expandPath(cfg.Storage.FilesPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
