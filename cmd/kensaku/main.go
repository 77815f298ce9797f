// Package main is the Kensaku CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/ingest"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	// Optional .env for API keys and local overrides; missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// components holds the wired retrieval engine shared by the server and the
// local ingest/query commands: construct once at startup, pass by reference.
type components struct {
	encoder  embedding.Encoder
	store    *store.Store
	pipeline *ingest.Pipeline
	service  *query.Service
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	encoder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	st, err := store.New(encoder, cfg.Store.Path, cfg.Store.IndexName, logger)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create store: %w", err)
	}
	chunker, err := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create chunker: %w", err)
	}
	pipeline := ingest.NewPipeline(st, chunker, logger,
		ingest.WithExtractor(extract.NewExtractor()),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
	)
	service, err := query.NewService(st, cfg.Ingest.PoolSize, logger)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create query service: %w", err)
	}
	return &components{encoder: encoder, store: st, pipeline: pipeline, service: service}, nil
}

func (c *components) close() {
	_ = c.service.Close()
	_ = c.encoder.Close()
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("initialization failed", zap.Error(err))
	}
	defer comps.close()

	if err := comps.store.Load(); err != nil {
		logger.Fatal("store load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if err := comps.pipeline.IngestFile(context.Background(), path, nil); err != nil {
					logger.Error("watch ingestion failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("watcher start failed", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("watching directories", zap.Strings("directories", cfg.Watch.Directories))
	}

	srv := server.NewServer(comps.service, comps.pipeline, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "ingest a single file")
	dir := fs.String("dir", "", "ingest a directory")
	pattern := fs.String("pattern", "*.txt", "glob pattern for -dir")
	recursive := fs.Bool("recursive", true, "recurse into subdirectories for -dir")
	jsonl := fs.String("jsonl", "", "ingest a line-delimited JSON file")
	text := fs.String("text", "", "ingest literal text")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if *file == "" && *dir == "" && *jsonl == "" && *text == "" {
		fmt.Println("Nothing to ingest: pass -file, -dir, -jsonl, or -text")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("initialization failed", zap.Error(err))
	}
	defer comps.close()

	if err := comps.store.Load(); err != nil {
		logger.Fatal("store load failed", zap.Error(err))
	}
	before := comps.store.Count()

	ctx := context.Background()
	switch {
	case *text != "":
		err = comps.pipeline.IngestText(ctx, *text, nil)
	case *file != "":
		err = comps.pipeline.IngestFile(ctx, *file, nil)
	case *jsonl != "":
		_, err = comps.pipeline.IngestJSONL(ctx, *jsonl)
	case *dir != "":
		_, err = comps.pipeline.IngestDirectory(ctx, *dir, *pattern, *recursive)
	}
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	if err := comps.store.Save(); err != nil {
		logger.Fatal("save failed", zap.Error(err))
	}
	fmt.Printf("Ingested %d documents (total %d)\n", comps.store.Count()-before, comps.store.Count())
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", query.DefaultTopK, "number of results")
	threshold := fs.Float64("threshold", query.DefaultThreshold, "minimum similarity score")
	format := fs.String("format", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryText == "" {
		fmt.Println("Usage: kensaku query [flags] <query text>")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("initialization failed", zap.Error(err))
	}
	defer comps.close()

	if err := comps.store.Load(); err != nil {
		logger.Fatal("store load failed", zap.Error(err))
	}

	results, err := comps.service.Query(context.Background(), queryText, *topK, *threshold)
	if err != nil {
		logger.Fatal("query failed", zap.Error(err))
	}
	response := &models.QueryResponse{Results: results, Query: queryText}
	if err := cli.WriteResults(os.Stdout, response, cli.OutputFormat(*format)); err != nil {
		logger.Fatal("output failed", zap.Error(err))
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "server address")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(strings.TrimRight(*addr, "/") + "/api/v1/stats")
	if err != nil {
		fmt.Printf("Failed to reach server: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	var stats models.StoreStats
	if err := json.Unmarshal(body, &stats); err != nil {
		fmt.Printf("Unexpected response: %s\n", body)
		os.Exit(1)
	}
	fmt.Printf("Documents: %d\nDimension: %d\nLoaded:    %v\nStore:     %s\n",
		stats.TotalDocuments, stats.Dimension, stats.Loaded, filepath.Clean(stats.StorePath))
}

func printUsage() {
	fmt.Println(`Kensaku - retrieval engine for RAG

Usage:
  kensaku server [-config path] [-debug]       Start the HTTP server
  kensaku ingest [-config path] [flags]        Ingest data and save the store
      -file path       ingest a single file
      -dir path        ingest a directory (-pattern, -recursive)
      -jsonl path      ingest a line-delimited JSON file
      -text "..."      ingest literal text
  kensaku query [-k n] [-threshold t] <text>   Query the local store
  kensaku status [-addr url]                   Show stats from a running server
  kensaku version                              Print version`)
}
