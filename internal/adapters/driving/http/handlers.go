package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/swaggo/swag"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns 200 when the local store answers
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.bookmarkService.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "api documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Browsing endpoints

// handleListTopics godoc
// @Summary      List topics
// @Tags         Browse
// @Produce      json
// @Success      200  {array}   domain.Topic
// @Failure      500  {object}  ErrorResponse
// @Router       /topics [get]
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.bookmarkService.ListTopics(r.Context())
	if err != nil {
		s.internalError(w, "list topics", err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

// handleGetTopicBySlug godoc
// @Summary      Resolve a topic by slug
// @Description  Slugs are lowercased titles with symbols removed and spaces as underscores
// @Tags         Browse
// @Produce      json
// @Param        slug  path      string  true  "Topic slug"
// @Success      200   {object}  domain.Topic
// @Failure      404   {object}  ErrorResponse  "Topic not found"
// @Router       /slugs/{slug} [get]
func (s *Server) handleGetTopicBySlug(w http.ResponseWriter, r *http.Request) {
	topic, err := s.bookmarkService.GetTopicBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusNotFound, "topic not found")
			return
		}
		s.internalError(w, "get topic by slug", err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// handleListBookmarks godoc
// @Summary      List bookmarks of a topic
// @Tags         Browse
// @Produce      json
// @Param        id    path      int     true   "Topic ID"
// @Param        sort  query     string  false  "Sort by date"  Enums(asc, desc)
// @Success      200   {array}   domain.Bookmark
// @Failure      400   {object}  ErrorResponse  "Invalid topic id or sort"
// @Failure      404   {object}  ErrorResponse  "Topic not found"
// @Router       /topics/{id}/bookmarks [get]
func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := domain.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "sort must be asc or desc")
		return
	}

	bookmarks, err := s.bookmarkService.ListBookmarks(r.Context(), topicID, order)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "topic not found")
			return
		}
		s.internalError(w, "list bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

// handleSearchBookmarks godoc
// @Summary      Search bookmarks
// @Description  Case-insensitive substring match on bookmark text across all topics
// @Tags         Browse
// @Produce      json
// @Param        q     query     string  true   "Substring to match"
// @Param        sort  query     string  false  "Sort by date"  Enums(asc, desc)
// @Success      200   {array}   domain.Bookmark
// @Failure      400   {object}  ErrorResponse  "Missing query"
// @Router       /bookmarks/search [get]
func (s *Server) handleSearchBookmarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := domain.ParseSortOrder(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "sort must be asc or desc")
		return
	}

	bookmarks, err := s.bookmarkService.SearchBookmarks(r.Context(), q.Get("q"), order)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		s.internalError(w, "search bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

// handleMedia godoc
// @Summary      Get media of a bookmark
// @Description  Serves the cached photo, or the full video which is downloaded on first request
// @Tags         Media
// @Produce      image/jpeg
// @Produce      video/mp4
// @Param        id   path      int  true  "Message ID"
// @Success      200
// @Failure      404  {object}  ErrorResponse  "No media"
// @Router       /media/{id} [get]
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	s.serveMedia(w, r, s.mediaService.OpenMedia)
}

// handleThumbnail godoc
// @Summary      Get preview image of a bookmark
// @Tags         Media
// @Produce      image/jpeg
// @Param        id   path      int  true  "Message ID"
// @Success      200
// @Failure      404  {object}  ErrorResponse  "No media"
// @Router       /thumb/{id} [get]
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	s.serveMedia(w, r, s.mediaService.OpenThumbnail)
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request, open func(context.Context, int64) (*driving.MediaFile, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := open(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bookmark not found")
		case errors.Is(err, domain.ErrMediaUnavailable):
			writeError(w, http.StatusNotFound, "media unavailable")
		default:
			s.internalError(w, "open media", err)
		}
		return
	}
	defer file.Body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, file.Path, time.Time{}, file.Body)
}

// Auth endpoints

// handleLogin godoc
// @Summary      Admin login
// @Description  Exchange the admin password for a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Admin password"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Failure      404      {object}  ErrorResponse  "Authentication disabled"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "password is required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusNotFound, "authentication disabled")
		default:
			s.internalError(w, "login", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Sync endpoints

// handleTriggerSync godoc
// @Summary      Run one sync
// @Description  Runs a sync to completion and returns the run. The run keeps going if the client disconnects.
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SyncRun  "Run succeeded"
// @Failure      401  {object}  ErrorResponse   "Unauthorized"
// @Failure      409  {object}  domain.SyncRun  "A run is already active"
// @Failure      502  {object}  domain.SyncRun  "Run failed"
// @Failure      503  {object}  ErrorResponse   "Lock backend unavailable"
// @Router       /sync [post]
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	run, err := s.syncOrchestrator.RunOnce(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, run)
	case errors.Is(err, domain.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, run)
	case run != nil:
		writeJSON(w, http.StatusBadGateway, run)
	default:
		s.logger.Error("sync trigger failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "sync unavailable")
	}
}

// handleListSyncRuns godoc
// @Summary      List recent sync runs
// @Tags         Sync
// @Produce      json
// @Param        limit  query     int  false  "Max runs (default 20, max 100)"
// @Success      200    {array}   domain.SyncRun
// @Failure      400    {object}  ErrorResponse
// @Router       /sync/runs [get]
func (s *Server) handleListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.syncOrchestrator.ListRuns(r.Context(), limit)
	if err != nil {
		s.internalError(w, "list sync runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Helpers

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
