package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const openAIMaxRetries = 3

// OpenAIOptions configures the OpenAI-compatible embeddings backend.
type OpenAIOptions struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// OpenAIEncoder produces embeddings through an OpenAI-compatible HTTP API.
// Retries transient failures (429 and 5xx) with linear backoff.
type OpenAIEncoder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewOpenAIEncoder creates the encoder. The API key is read from the environment
// variable named in opts.APIKeyEnv.
func NewOpenAIEncoder(opts OpenAIOptions) (*OpenAIEncoder, error) {
	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", opts.APIKeyEnv)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-3-small"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("openai backend requires configured dimensions")
	}
	return &OpenAIEncoder{
		baseURL:    opts.BaseURL,
		apiKey:     key,
		model:      opts.Model,
		dimensions: opts.Dimensions,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding for a single text.
func (e *OpenAIEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch encodes the whole batch in one API call. An empty batch is an error.
func (e *OpenAIEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}
	body, err := json.Marshal(openAIEmbedRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= openAIMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s: %s", resp.Status, bytes.TrimSpace(data))
		}

		var parsed openAIEmbedResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if len(parsed.Data) != len(texts) {
			return nil, fmt.Errorf("embeddings response has %d entries, expected %d", len(parsed.Data), len(texts))
		}
		embeddings := make([][]float32, len(texts))
		for _, d := range parsed.Data {
			if d.Index < 0 || d.Index >= len(texts) {
				return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
			}
			if len(d.Embedding) != e.dimensions {
				return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions)
			}
			embeddings[d.Index] = d.Embedding
		}
		return embeddings, nil
	}
	return nil, fmt.Errorf("embeddings request failed after %d retries: %w", openAIMaxRetries, lastErr)
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEncoder.
func (e *OpenAIEncoder) Close() error {
	return nil
}
