package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/config"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
)

// Ollama composes answers with a local LLM, grounded strictly on the
// retrieved chunks. Any failure (server down, bad response, empty output)
// falls back to the extractive composer so /chat never depends on the LLM
// being up.
type Ollama struct {
	baseURL    string
	model      string
	fallback   *Extractive
	client     *http.Client
	logger     *zap.Logger
	maxContext int
}

// Option configures an Ollama composer.
type Option func(*Ollama)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Ollama) {
		o.logger = logger
	}
}

// NewOllama creates a generative composer backed by an Ollama server.
func NewOllama(cfg *config.AnswerConfig, opts ...Option) *Ollama {
	o := &Ollama{
		baseURL:    strings.TrimSuffix(cfg.OllamaBaseURL, "/"),
		model:      cfg.OllamaModel,
		fallback:   NewExtractive(cfg),
		client:     &http.Client{Timeout: 120 * time.Second},
		logger:     zap.NewNop(),
		maxContext: cfg.MaxContextChunks,
	}
	if o.maxContext < 1 {
		o.maxContext = 1
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Compose asks the LLM to answer from the retrieved chunks only. The
// no-context and distance-gate behavior is identical to the extractive
// composer; the LLM only changes how in-gate context becomes prose.
func (o *Ollama) Compose(ctx context.Context, question string, retrieved []models.ScoredChunk) (string, []models.Citation, error) {
	if len(retrieved) == 0 || (o.fallback.maxDistance >= 0 && retrieved[0].Distance > o.fallback.maxDistance) {
		return o.fallback.Compose(ctx, question, retrieved)
	}

	text, err := o.generate(ctx, question, retrieved)
	if err != nil || strings.TrimSpace(text) == "" {
		o.logger.Warn("generative answer failed, falling back to extractive", zap.Error(err))
		return o.fallback.Compose(ctx, question, retrieved)
	}
	return strings.TrimSpace(text), citationsFor(retrieved, o.fallback.snippetChars), nil
}

func (o *Ollama) generate(ctx context.Context, question string, retrieved []models.ScoredChunk) (string, error) {
	limit := o.maxContext
	if limit > len(retrieved) {
		limit = len(retrieved)
	}
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say you do not know.\n\n")
	for i, sc := range retrieved[:limit] {
		fmt.Fprintf(&b, "Context %d (from %s):\n%s\n\n", i+1, sc.Filename, sc.Chunk.Content)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)

	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: b.String(), Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return parsed.Response, nil
}

// NewFromConfig selects the composer named by cfg.Generator.
func NewFromConfig(cfg *config.AnswerConfig, opts ...Option) (Composer, error) {
	switch cfg.Generator {
	case "extractive", "":
		return NewExtractive(cfg), nil
	case "ollama":
		return NewOllama(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unknown answer generator %q (supported: extractive, ollama)", cfg.Generator)
	}
}
