package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Defaults resolve against the config directory, same as a real config file.
	if want := filepath.Join(dir, "vector_store"); cfg.Store.Path != want {
		t.Errorf("expected store path %q, got %q", want, cfg.Store.Path)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Backend != "mock" {
		t.Errorf("expected default backend mock, got %q", cfg.Embedding.Backend)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected default dimensions 384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("unexpected default chunking: size=%d overlap=%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Ingest.BatchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", cfg.Ingest.BatchSize)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
store:
  path: ./data
ingest:
  chunk_size: 200
  chunk_overlap: 20
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected debug true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("unset host should default, got %q", cfg.Server.Host)
	}
	if cfg.Ingest.ChunkSize != 200 || cfg.Ingest.ChunkOverlap != 20 {
		t.Errorf("unexpected chunking: size=%d overlap=%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	// "./" paths resolve relative to the config file.
	if want := filepath.Join(dir, "data"); cfg.Store.Path != want {
		t.Errorf("expected store path %q, got %q", want, cfg.Store.Path)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap at size", "ingest:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"negative overlap", "ingest:\n  chunk_overlap: -5\n"},
		{"port out of range", "server:\n  port: 99999\n"},
		{"malformed yaml", "server: [not\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecursiveOrDefault(t *testing.T) {
	var w WatchConfig
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false must be honored")
	}
}
