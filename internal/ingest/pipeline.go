package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/store"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Pipeline orchestrates chunking, metadata enrichment, and batched insertion
// into the vector store for heterogeneous input sources: raw text, files,
// directories, record batches, and JSONL streams.
type Pipeline struct {
	store     *store.Store
	chunker   *Chunker
	extractor *extract.Extractor
	batchSize int
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithExtractor enables rich-format extraction (PDF, DOCX, XLSX, ...) in
// IngestFile. Without it, non-JSON files are read as plain text.
func WithExtractor(e *extract.Extractor) PipelineOption {
	return func(p *Pipeline) { p.extractor = e }
}

// WithBatchSize sets how many JSONL records accumulate before a bulk insert.
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPipeline creates a pipeline feeding the given store.
func NewPipeline(st *store.Store, chunker *Chunker, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:     st,
		chunker:   chunker,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestText chunks the text and bulk-inserts all chunks in one store call.
// Each chunk gets its own deep copy of metadata so later mutation of one
// chunk's metadata never leaks into another's.
func (p *Pipeline) IngestText(ctx context.Context, text string, metadata map[string]interface{}) error {
	chunks := p.chunker.Chunk(text)
	metadatas := make([]map[string]interface{}, len(chunks))
	for i := range chunks {
		metadatas[i] = copyMetadata(metadata)
	}
	if err := p.store.Add(ctx, chunks, metadatas); err != nil {
		return fmt.Errorf("ingest text: %w", err)
	}
	p.logger.Info("ingested text", zap.Int("chunks", len(chunks)))
	return nil
}

// IngestFile ingests one file, dispatching on its extension. File provenance
// (source path, filename, extension) is merged into the metadata. JSON files
// are decoded structurally: a root object becomes one document, a root array
// becomes one document per element tagged with its item_index. Everything else
// goes through text extraction and IngestText. Decode and extraction failures
// propagate to the caller.
func (p *Pipeline) IngestFile(ctx context.Context, path string, metadata map[string]interface{}) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found %s: %w", path, err)
	}

	fileMeta := copyMetadata(metadata)
	fileMeta["source"] = path
	fileMeta["filename"] = filepath.Base(path)
	fileMeta["file_type"] = filepath.Ext(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := p.ingestJSONFile(ctx, path, fileMeta); err != nil {
			return err
		}
	} else {
		text, err := p.extractText(path)
		if err != nil {
			return fmt.Errorf("%w: extract %s: %v", ErrDecode, path, err)
		}
		if err := p.IngestText(ctx, text, fileMeta); err != nil {
			return err
		}
	}
	p.logger.Info("ingested file", zap.String("path", path))
	return nil
}

func (p *Pipeline) extractText(path string) (string, error) {
	if p.extractor != nil {
		return p.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	return string(content), nil
}

func (p *Pipeline) ingestJSONFile(ctx context.Context, path string, fileMeta map[string]interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrDecode, path, err)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		// A single record becomes a single un-chunked document.
		text, err := canonicalJSON(v)
		if err != nil {
			return fmt.Errorf("%w: serialize %s: %v", ErrDecode, path, err)
		}
		return p.store.Add(ctx, []string{text}, []map[string]interface{}{fileMeta})
	case []interface{}:
		// Each element becomes its own un-chunked document tagged with its position.
		texts := make([]string, 0, len(v))
		metadatas := make([]map[string]interface{}, 0, len(v))
		for i, item := range v {
			text, err := canonicalJSON(item)
			if err != nil {
				return fmt.Errorf("%w: serialize %s item %d: %v", ErrDecode, path, i, err)
			}
			itemMeta := copyMetadata(fileMeta)
			itemMeta["item_index"] = i
			texts = append(texts, text)
			metadatas = append(metadatas, itemMeta)
		}
		return p.store.Add(ctx, texts, metadatas)
	default:
		text, err := canonicalJSON(v)
		if err != nil {
			return fmt.Errorf("%w: serialize %s: %v", ErrDecode, path, err)
		}
		return p.IngestText(ctx, text, fileMeta)
	}
}

// IngestDirectory ingests every file under root matching pattern (a glob
// against the file name), walking subdirectories when recursive is set. A
// failure on one file is logged and the remaining files are still processed.
// Returns the number of files ingested successfully.
func (p *Pipeline) IngestDirectory(ctx context.Context, root, pattern string, recursive bool) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	files, err := matchFiles(root, pattern, recursive)
	if err != nil {
		return 0, fmt.Errorf("enumerate %s: %w", root, err)
	}

	runID := uuid.New().String()[:8]
	p.logger.Info("directory ingestion started",
		zap.String("run_id", runID),
		zap.String("root", root),
		zap.String("pattern", pattern),
		zap.Int("files", len(files)),
	)

	ingested := 0
	for _, file := range files {
		if err := p.IngestFile(ctx, file, nil); err != nil {
			p.logger.Error("file ingestion failed",
				zap.String("run_id", runID),
				zap.String("path", file),
				zap.Error(err),
			)
			continue
		}
		ingested++
	}
	p.logger.Info("directory ingestion completed",
		zap.String("run_id", runID),
		zap.Int("ingested", ingested),
		zap.Int("failed", len(files)-ingested),
	)
	return ingested, nil
}

func matchFiles(root, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		files := make([]string, 0, len(matches))
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
		return files, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// IngestRecords ingests a batch of records where textField names the document
// text. Records missing the text field are logged and skipped, never fatal.
// Per-record metadata is built from metadataFields when given, otherwise from
// all fields except the text field. The surviving records go into exactly one
// bulk store call, so the whole batch costs one embedding call. Returns the
// number of records ingested.
func (p *Pipeline) IngestRecords(ctx context.Context, records []map[string]interface{}, textField string, metadataFields []string) (int, error) {
	texts := make([]string, 0, len(records))
	metadatas := make([]map[string]interface{}, 0, len(records))

	for i, record := range records {
		raw, ok := record[textField]
		if !ok {
			p.logger.Warn("record missing text field, skipping",
				zap.Int("record_index", i),
				zap.String("text_field", textField),
			)
			continue
		}
		text, ok := raw.(string)
		if !ok {
			p.logger.Warn("record text field is not a string, skipping",
				zap.Int("record_index", i),
				zap.String("text_field", textField),
			)
			continue
		}

		meta := map[string]interface{}{"record_index": i}
		if len(metadataFields) > 0 {
			for _, field := range metadataFields {
				if v, ok := record[field]; ok {
					meta[field] = copyValue(v)
				}
			}
		} else {
			for k, v := range record {
				if k == textField {
					continue
				}
				meta[k] = copyValue(v)
			}
		}
		texts = append(texts, text)
		metadatas = append(metadatas, meta)
	}

	if err := p.store.Add(ctx, texts, metadatas); err != nil {
		return 0, fmt.Errorf("ingest records: %w", err)
	}
	p.logger.Info("ingested records",
		zap.Int("ingested", len(texts)),
		zap.Int("skipped", len(records)-len(texts)),
	)
	return len(texts), nil
}

// jsonlLine is the line-delimited ingestion format: "prompt" is the document
// text, "metadata" an optional mapping merged with the 1-based line number.
type jsonlLine struct {
	Prompt   *string                `json:"prompt"`
	Metadata map[string]interface{} `json:"metadata"`
}

// IngestJSONL ingests a line-delimited JSON file. Lines missing the required
// "prompt" field or failing to parse are logged and skipped. Inserts are
// flushed in batches of the configured batch size. Returns the number of
// documents ingested.
func (p *Pipeline) IngestJSONL(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	runID := uuid.New().String()[:8]
	p.logger.Info("jsonl ingestion started", zap.String("run_id", runID), zap.String("path", path))

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var texts []string
	var metadatas []map[string]interface{}
	processed := 0
	lineNum := 0

	flush := func() error {
		if len(texts) == 0 {
			return nil
		}
		if err := p.store.Add(ctx, texts, metadatas); err != nil {
			return fmt.Errorf("ingest jsonl batch: %w", err)
		}
		processed += len(texts)
		texts = texts[:0]
		metadatas = metadatas[:0]
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec jsonlLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			p.logger.Error("malformed jsonl line, skipping",
				zap.String("run_id", runID),
				zap.Int("line_number", lineNum),
				zap.Error(err),
			)
			continue
		}
		if rec.Prompt == nil {
			p.logger.Warn("jsonl line missing prompt field, skipping",
				zap.String("run_id", runID),
				zap.Int("line_number", lineNum),
			)
			continue
		}
		meta := rec.Metadata
		if meta == nil {
			meta = make(map[string]interface{})
		}
		meta["line_number"] = lineNum

		texts = append(texts, *rec.Prompt)
		metadatas = append(metadatas, meta)
		if len(texts) >= p.batchSize {
			if err := flush(); err != nil {
				return processed, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return processed, fmt.Errorf("read %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return processed, err
	}

	p.logger.Info("jsonl ingestion completed",
		zap.String("run_id", runID),
		zap.Int("processed", processed),
	)
	return processed, nil
}

// canonicalJSON serializes v as indented JSON without HTML escaping, so
// structured records embed as readable text.
func canonicalJSON(v interface{}) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// copyMetadata deep-copies a metadata map. A nil map yields a fresh empty map.
func copyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMetadata(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
