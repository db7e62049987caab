// Package main is the ragkb CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/answer"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/chunker"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/config"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/embedding"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/ingest"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/retrieve"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/server"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/watcher"
	"github.com/tranhohoangvu/rag-kb-chatbot/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragkb/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "collections":
		runCollections()
	case "documents":
		runDocuments()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("ragkb version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watch = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.CollectionID,
			components.Ingestor,
			watcher.WithLogger(logger),
		)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watch.SyncExisting(watchCtx)
	}

	srv := server.NewServer(
		components.Ingestor,
		components.Retriever,
		components.Composer,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage when server is not running)`)
	collection := fs.String("collection", models.DefaultCollectionID, "target collection")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragkb ingest [flags] <file> [file...]")
		os.Exit(1)
	}

	if *serverURL != "" {
		for _, path := range fs.Args() {
			result, err := ingestViaHTTP(*serverURL, path, *collection)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest failed for %s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("Ingested %s: document %d, %d chunk(s)\n", result.Filename, result.DocumentID, result.ChunksIndexed)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	for _, path := range fs.Args() {
		result, err := components.Ingestor.IngestFile(context.Background(), path, *collection)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed for %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %s: document %d, %d chunk(s)\n", result.Filename, result.DocumentID, result.ChunksIndexed)
	}
}

func ingestViaHTTP(serverURL, path, collection string) (*models.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := w.WriteField("collection_id", collection); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ingest", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage when server is not running)`)
	collection := fs.String("collection", "", "collection to query (default: \"default\")")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragkb ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: ragkb ask [flags] <question>")
		os.Exit(1)
	}

	req := models.ChatRequest{Question: question, CollectionID: *collection}
	if *topK > 0 {
		req.TopK = topK
	}

	var response *models.ChatResponse
	if *serverURL != "" {
		var err error
		response, err = chatViaHTTP(*serverURL, &req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		if err := req.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		ctx := context.Background()
		retrieved, err := components.Retriever.Retrieve(ctx, req.Question, req.CollectionID, *req.TopK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		text, citations, err := components.Composer.Compose(ctx, req.Question, retrieved)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		response = &models.ChatResponse{Answer: text, Citations: citations}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(response.Answer)
		if len(response.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range response.Citations {
				loc := fmt.Sprintf("chunk %d", c.ChunkIndex)
				if c.Page != nil {
					loc = fmt.Sprintf("page %d, %s", *c.Page, loc)
				}
				fmt.Printf("  %s (%s, distance %.3f)\n", c.Filename, loc, c.Distance)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func chatViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runCollections() {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/collections")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Collections []string `json:"collections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	for _, c := range out.Collections {
		fmt.Println(c)
	}
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	collection := fs.String("collection", models.DefaultCollectionID, "collection to list")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/collections/" + *collection + "/documents")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Documents []models.DocumentRef `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	for _, d := range out.Documents {
		fmt.Printf("%d\t%s\n", d.ID, d.Filename)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragkb delete [flags] <document-id>")
		os.Exit(1)
	}
	if _, err := strconv.ParseInt(fs.Arg(0), 10, 64); err != nil {
		fmt.Println("Document id must be an integer")
		os.Exit(1)
	}

	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+fs.Arg(0), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", fs.Arg(0))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	var status struct {
		Documents int64                  `json:"documents"`
		Chunks    int64                  `json:"chunks"`
		Config    map[string]interface{} `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:  %d\n", status.Documents)
		fmt.Printf("chunks:     %d\n", status.Chunks)
		if len(status.Config) > 0 {
			fmt.Println("\n# configuration")
			for _, key := range []string{"embedding_provider", "embedding_dimensions", "chunk_chars", "overlap_chars", "answer_generator", "database_path"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-21s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Ingestor  *ingest.Ingestor
	Retriever *retrieve.Retriever
	Composer  answer.Composer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewFromConfig(&cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ch, err := chunker.New(cfg.Chunking.ChunkChars, cfg.Chunking.OverlapChars)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}

	composer, err := answer.NewFromConfig(&cfg.Answer, answer.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}

	ingestOpts := []ingest.Option{ingest.WithLogger(logger)}
	if cfg.Storage.FilesPath != "" {
		files, err := storage.NewFileStore(cfg.Storage.FilesPath)
		if err != nil {
			_ = store.Close()
			_ = embedder.Close()
			return nil, err
		}
		ingestOpts = append(ingestOpts, ingest.WithFileStore(files))
	}

	return &Components{
		Storage:   store,
		Embedder:  embedder,
		Ingestor:  ingest.New(store, embedder, ch, ingestOpts...),
		Retriever: retrieve.New(store, embedder, retrieve.WithLogger(logger)),
		Composer:  composer,
	}, nil
}

func printUsage() {
	fmt.Println(`ragkb - Retrieval-augmented knowledge base chatbot

Usage:
  ragkb server [flags]                Start the HTTP server
  ragkb ingest [flags] <file>...      Ingest documents
  ragkb ask [flags] <question>        Ask a question against the knowledge base
  ragkb collections [flags]           List collections
  ragkb documents [flags]             List documents in a collection
  ragkb delete [flags] <id>           Delete a document (and its chunks)
  ragkb status [flags]                Show store and configuration status
  ragkb version                       Show version
  ragkb help                          Show this help

Server Flags:
  --config string      Config file path (default: /usr/local/etc/ragkb/config.yaml)
  --debug              Enable debug logging

Ingest Flags:
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --collection string  Target collection (default: "default")

Ask Flags:
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --collection string  Collection to query (default: "default")
  --top-k int          Number of chunks to retrieve (default: server default, 4)
  --output string      Output format: text or json (default: text)

Examples:
  ragkb server
  ragkb ingest --collection hr handbook.pdf benefits.docx
  ragkb ask "how many vacation days do I get?"
  ragkb ask --collection hr --top-k 8 --output json "vacation policy"
  ragkb documents --collection hr
  ragkb delete 42
  ragkb status`)
}
