// Package server provides the HTTP API for the knowledge base.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/answer"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/config"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/ingest"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/retrieve"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
)

// Server is the HTTP server for the knowledge base API.
type Server struct {
	ingestor  *ingest.Ingestor
	retriever *retrieve.Retriever
	composer  answer.Composer
	storage   storage.Storage
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingestor *ingest.Ingestor,
	retriever *retrieve.Retriever,
	composer answer.Composer,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingestor:  ingestor,
		retriever: retriever,
		composer:  composer,
		storage:   storage,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/api/v1/collections", s.handleListCollections)
	r.Get("/api/v1/collections/{id}/documents", s.handleListDocuments)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
