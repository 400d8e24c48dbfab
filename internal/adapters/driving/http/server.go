package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "github.com/ls-lnb/tg-bookmarks/docs" // registers the OpenAPI document
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	bookmarkService  driving.BookmarkService
	mediaService     driving.MediaService
	authService      driving.AuthService
	syncOrchestrator driving.SyncOrchestrator
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AllowedOrigins enables CORS for the listed origins ("*" for any)
	AllowedOrigins []string

	// WriteTimeout bounds a response. Media and sync responses can be
	// long, so keep this generous.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		WriteTimeout: 10 * time.Minute,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	bookmarkService driving.BookmarkService,
	mediaService driving.MediaService,
	authService driving.AuthService,
	syncOrchestrator driving.SyncOrchestrator,
) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           cfg.Logger,
		bookmarkService:  bookmarkService,
		mediaService:     mediaService,
		authService:      authService,
		syncOrchestrator: syncOrchestrator,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware(cfg.Logger).Handler(handler)
	handler = NewRecoveryMiddleware(cfg.Logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Browsing endpoints (public, read-only)
	s.router.HandleFunc("GET /api/v1/topics", s.handleListTopics)
	s.router.HandleFunc("GET /api/v1/topics/{id}/bookmarks", s.handleListBookmarks)
	s.router.HandleFunc("GET /api/v1/slugs/{slug}", s.handleGetTopicBySlug)
	s.router.HandleFunc("GET /api/v1/bookmarks/search", s.handleSearchBookmarks)
	s.router.HandleFunc("GET /api/v1/media/{id}", s.handleMedia)
	s.router.HandleFunc("GET /api/v1/thumb/{id}", s.handleThumbnail)

	// Auth
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Sync endpoints (admin when a password is configured)
	s.router.Handle("POST /api/v1/sync",
		authMiddleware.RequireAdminIfEnabled(http.HandlerFunc(s.handleTriggerSync)))
	s.router.HandleFunc("GET /api/v1/sync/runs", s.handleListSyncRuns)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
