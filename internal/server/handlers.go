package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/extract"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/ingest"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
)

// maxUploadBytes bounds multipart uploads (64 MiB).
const maxUploadBytes = 64 << 20

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	collectionID := r.FormValue("collection_id")
	if collectionID == "" {
		collectionID = models.DefaultCollectionID
	}
	// An explicit filename field wins over the multipart part's name.
	filename := r.FormValue("filename")
	if filename == "" {
		filename = header.Filename
	}
	// The declared_type field wins over the filename extension.
	declaredType := r.FormValue("declared_type")
	if declaredType == "" {
		declaredType = ingest.TypeFromFilename(filename)
	}

	s.logger.Debug("ingest request",
		zap.String("filename", filename),
		zap.String("declared_type", declaredType),
		zap.String("collection_id", collectionID),
	)

	result, err := s.ingestor.Ingest(r.Context(), filename, declaredType, content, collectionID)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extract.ErrNoText):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("chat request",
		zap.String("collection_id", req.CollectionID),
		zap.Int("top_k", *req.TopK),
	)

	retrieved, err := s.retriever.Retrieve(r.Context(), req.Question, req.CollectionID, *req.TopK)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	text, citations, err := s.composer.Compose(r.Context(), req.Question, retrieved)
	if err != nil {
		s.logger.Error("answer composition failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ChatResponse{Answer: text, Citations: citations})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.storage.ListCollections(r.Context())
	if err != nil {
		s.logger.Error("list collections failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"collections": collections})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "id")
	docs, err := s.storage.ListDocuments(r.Context(), collectionID)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"collection_id": collectionID,
		"documents":     docs,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	s.logger.Debug("delete document request", zap.Int64("id", id))
	if err := s.ingestor.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_chars":          s.config.Chunking.ChunkChars,
			"overlap_chars":        s.config.Chunking.OverlapChars,
			"answer_generator":     s.config.Answer.Generator,
			"database_path":        s.config.Storage.DatabasePath,
			"supported_types":      extract.SupportedTypes(),
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
