package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// collector records ingested paths behind a lock so the test can poll safely.
type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) ingest(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *collector) waitFor(t *testing.T, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ingestions, got %v", n, c.snapshot())
	return nil
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	var c collector
	w := New([]string{dir}, []string{".txt"}, false, c.ingest, zap.NewNop())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got := c.waitFor(t, 1, 5*time.Second)
	if got[0] != path {
		t.Errorf("expected %q, got %q", path, got[0])
	}
}

func TestWatcherFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	var c collector
	w := New([]string{dir}, []string{".txt"}, false, c.ingest, zap.NewNop())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	keep := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := c.waitFor(t, 1, 5*time.Second)
	for _, p := range got {
		if p != keep {
			t.Errorf("unexpected ingestion of %q", p)
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var c collector
	w := New([]string{dir}, nil, false, c.ingest, zap.NewNop())
	w.debounce = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "burst.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("revision"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	c.waitFor(t, 1, 5*time.Second)
	// No further ingestion should fire for the same burst.
	time.Sleep(500 * time.Millisecond)
	if got := c.snapshot(); len(got) != 1 {
		t.Errorf("expected 1 debounced ingestion, got %d", len(got))
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New([]string{dir}, nil, false, func(string) {}, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}
