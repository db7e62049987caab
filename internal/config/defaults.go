package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ragkb/data/db/knowledge.db"
	}
	if cfg.Storage.FilesPath == "" {
		cfg.Storage.FilesPath = "/usr/local/var/ragkb/data/files"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/ragkb/data/models/multilingual-e5-small.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	// Paired E5 conventions: passages and queries must use prefixes from the
	// same model family for their vectors to be comparable.
	if cfg.Embedding.PassagePrefix == "" {
		cfg.Embedding.PassagePrefix = "passage: "
	}
	if cfg.Embedding.QueryPrefix == "" {
		cfg.Embedding.QueryPrefix = "query: "
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "RAGKB_EMBED_API_KEY"
	}
	if cfg.Chunking.ChunkChars == 0 {
		cfg.Chunking.ChunkChars = 1200
	}
	if cfg.Chunking.OverlapChars == 0 {
		cfg.Chunking.OverlapChars = 200
	}
	if cfg.Answer.Generator == "" {
		cfg.Answer.Generator = "extractive"
	}
	if cfg.Answer.MaxContextChunks == 0 {
		cfg.Answer.MaxContextChunks = 1
	}
	if cfg.Answer.MaxAnswerChars == 0 {
		cfg.Answer.MaxAnswerChars = 600
	}
	if cfg.Answer.SnippetChars == 0 {
		cfg.Answer.SnippetChars = 200
	}
	if cfg.Answer.MaxDistance == 0 {
		cfg.Answer.MaxDistance = 0.35
	}
	if cfg.Answer.OllamaBaseURL == "" {
		cfg.Answer.OllamaBaseURL = "http://localhost:11434"
	}
	if cfg.Answer.OllamaModel == "" {
		cfg.Answer.OllamaModel = "llama3"
	}
	if cfg.Watch.CollectionID == "" {
		cfg.Watch.CollectionID = "default"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx"}
	}
}
