// Package server provides the HTTP API for resume analysis.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/analysis"
	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/storage"
)

const (
	DefaultAddress        = ":8001"
	DefaultMaxUploadBytes = 10 << 20

	welcomeMessage  = "SkillSync API - AI-Based Internship Recommendation Engine"
	shutdownTimeout = 30 * time.Second
)

// Config holds server configuration.
type Config struct {
	Address        string `mapstructure:"address"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes"`
}

// DocumentAnalyzer runs the analysis pipeline on an uploaded file.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, filename string, data []byte) (analysis.Result, error)
}

// UploadChecker rejects filenames the analyzer cannot read.
type UploadChecker interface {
	Detect(filename string) (extract.Kind, error)
}

// Deps are the collaborators of the HTTP handlers. Status may be nil, in
// which case the status endpoints answer 501. Uploads defaults to a
// PDF-only extractor.
type Deps struct {
	Analyzer DocumentAnalyzer
	Uploads  UploadChecker
	Catalog  *catalog.Store
	Status   storage.StatusStore
	Logger   *zap.Logger
	Version  string
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	analyzer   DocumentAnalyzer
	uploads    UploadChecker
	catalog    *catalog.Store
	status     storage.StatusStore
	validate   *validator.Validate
	logger     *zap.Logger
	maxUpload  int64
	version    string
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Status == nil {
		deps.Status = storage.Disabled{}
	}
	if deps.Uploads == nil {
		deps.Uploads = extract.New(extract.Options{})
	}

	s := &Server{
		analyzer:  deps.Analyzer,
		uploads:   deps.Uploads,
		catalog:   deps.Catalog,
		status:    deps.Status,
		validate:  validator.New(),
		logger:    logger.OrNop(deps.Logger),
		maxUpload: cfg.MaxUploadBytes,
		version:   deps.Version,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("GET /api/internships", s.handleInternships)
	mux.HandleFunc("POST /api/analyze-resume", s.handleAnalyzeResume)
	mux.HandleFunc("POST /api/status", s.handleCreateStatus)
	mux.HandleFunc("GET /api/status", s.handleListStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(s.withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// withCORS allows any origin, method and header.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "skillsync",
		"version": s.version,
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, detail string) {
	s.jsonResponse(w, status, map[string]string{"detail": detail})
}
