// Package config provides configuration loading and structs for the Kensaku server.
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
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds the persisted store location and index name. The store writes
// two artifacts under Path: "<index_name>.vec" (vectors) and "<index_name>.db"
// (document side-table).
type StoreConfig struct {
	Path      string `yaml:"path"`
	IndexName string `yaml:"index_name"`
}

// EmbeddingConfig holds embedding encoder settings.
// Backend selects the implementation: "mock", "onnx", or "openai".
type EmbeddingConfig struct {
	Backend    string       `yaml:"backend"`
	ModelPath  string       `yaml:"model_path"`
	Dimensions int          `yaml:"dimensions"`
	MaxTokens  int          `yaml:"max_tokens"`
	CacheSize  int          `yaml:"cache_size"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI-compatible embeddings backend.
// The API key is read from the environment variable named by APIKeyEnv.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IngestConfig holds chunking and batching settings for the ingestion pipeline.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
	PoolSize     int `yaml:"pool_size"`
}

// WatchConfig holds directory watch settings for automatic ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults,
// and validates. A missing file is not an error: defaults are returned so the
// server can start without a config file.
func Load(path string) (*Config, error) {
	configDir := filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			expandPaths(cfg, configDir)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandPaths(&cfg, configDir)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandPaths resolves every configured path the same way whether the config
// file exists or not: relative to the config file's directory.
func expandPaths(cfg *Config, configDir string) {
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// Validate checks configuration invariants that would otherwise surface as
// runtime failures, such as a chunk overlap at or above the chunk size.
func Validate(cfg *Config) error {
	if cfg.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: chunk_size must be positive, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("invalid config: chunk_overlap %d must be in [0, chunk_size) with chunk_size %d",
			cfg.Ingest.ChunkOverlap, cfg.Ingest.ChunkSize)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid config: port %d out of range", cfg.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
