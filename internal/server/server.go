// Package server exposes uploads, completions, conversations and documents
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/documents"
)

const shutdownTimeout = 10 * time.Second

// Completer answers chat messages
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (*chat.Completion, error)
}

// Uploader ingests uploaded files
type Uploader interface {
	IngestUpload(ctx context.Context, data []byte, filename, mimeType string) (*documents.Result, error)
}

// Store is the read and delete side of persistence the API exposes
type Store interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error)
	ListConversations(ctx context.Context) ([]db.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	ListDocuments(ctx context.Context) ([]db.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

// Config holds HTTP limits
type Config struct {
	Addr        string
	ReadTimeout time.Duration
	MaxUploadMB int
}

// Server routes HTTP requests to the chat and document services
type Server struct {
	completer Completer
	uploader  Uploader
	store     Store
	cfg       Config
	logger    *log.Logger
}

// New creates a server
func New(completer Completer, uploader Uploader, store Store, cfg Config, logger *log.Logger) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 32
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	return &Server{
		completer: completer,
		uploader:  uploader,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handler returns the routed handler wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-file", s.handleUpload)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("/api/conversation/{id}/delete", s.handleDeleteConversation)
	mux.HandleFunc("GET /api/conversation/{id}/messages", s.handleMessages)
	mux.HandleFunc("GET /api/conversation/{id}", s.handleConversation)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/documents", s.handleDocuments)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}
