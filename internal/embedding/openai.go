package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/vector"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. It works
// against the hosted API and against Ollama-style local servers exposing the
// same shape. The API key is optional (local servers take none).
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	prefixes   Prefixes
	client     *http.Client
}

// NewOpenAIEmbedder creates a remote embedder. apiKeyEnv names the
// environment variable holding the key; an unset variable means no auth
// header is sent.
func NewOpenAIEmbedder(baseURL, apiKeyEnv, model string, dimensions int, prefixes Prefixes) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", ErrEmbedding)
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     os.Getenv(apiKeyEnv),
		model:      model,
		dimensions: dimensions,
		prefixes:   prefixes,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// EmbedPassages embeds all texts in one batched request using the passage convention.
func (e *OpenAIEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", ErrEmbedding, i)
		}
		prefixed[i] = e.prefixes.Passage + t
	}
	return e.request(ctx, prefixed)
}

// EmbedQuery embeds text using the query convention.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbedding)
	}
	out, err := e.request(ctx, []string{e.prefixes.Query + text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"input": inputs,
		"model": e.model,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: embeddings endpoint returned %s", ErrEmbedding, resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbedding, err)
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(out.Data), len(inputs))
	}

	embeddings := make([][]float32, len(inputs))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbedding, d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: model returned %d dimensions, configured for %d", ErrEmbedding, len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, e.dimensions)
		copy(vec, d.Embedding)
		vector.NormalizeL2(vec)
		embeddings[d.Index] = vec
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for the remote embedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
