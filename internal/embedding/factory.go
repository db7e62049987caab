package embedding

import (
	"fmt"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/config"
)

// NewFromConfig builds the configured embedder. The ONNX provider is wrapped
// in Lazy so the model loads on first use, once per process.
func NewFromConfig(cfg *config.EmbeddingConfig) (Embedder, error) {
	prefixes := Prefixes{Passage: cfg.PassagePrefix, Query: cfg.QueryPrefix}
	switch cfg.Provider {
	case "onnx":
		modelPath := cfg.ModelPath
		dims := cfg.Dimensions
		maxTokens := cfg.MaxTokens
		cacheSize := cfg.CacheSize
		return NewLazy(dims, func() (Embedder, error) {
			return NewONNXEmbedder(modelPath, dims, maxTokens, cacheSize, prefixes)
		}), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKeyEnv, cfg.Model, cfg.Dimensions, prefixes)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions, prefixes), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want onnx, openai, or mock)", cfg.Provider)
	}
}
