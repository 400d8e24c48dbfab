package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Mock services for testing

type mockBookmarkService struct {
	listTopicsFn    func(ctx context.Context) ([]*domain.Topic, error)
	topicBySlugFn   func(ctx context.Context, slug string) (*domain.Topic, error)
	listBookmarksFn func(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error)
	searchFn        func(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error)
	pingFn          func(ctx context.Context) error
}

func (m *mockBookmarkService) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
	if m.listTopicsFn != nil {
		return m.listTopicsFn(ctx)
	}
	return []*domain.Topic{}, nil
}

func (m *mockBookmarkService) GetTopicBySlug(ctx context.Context, slug string) (*domain.Topic, error) {
	if m.topicBySlugFn != nil {
		return m.topicBySlugFn(ctx, slug)
	}
	return nil, domain.ErrNotFound
}

func (m *mockBookmarkService) ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
	if m.listBookmarksFn != nil {
		return m.listBookmarksFn(ctx, topicID, order)
	}
	return []*domain.Bookmark{}, nil
}

func (m *mockBookmarkService) SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, order)
	}
	return []*domain.Bookmark{}, nil
}

func (m *mockBookmarkService) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type mockMediaService struct {
	openMediaFn     func(ctx context.Context, id int64) (*driving.MediaFile, error)
	openThumbnailFn func(ctx context.Context, id int64) (*driving.MediaFile, error)
}

func (m *mockMediaService) OpenMedia(ctx context.Context, id int64) (*driving.MediaFile, error) {
	if m.openMediaFn != nil {
		return m.openMediaFn(ctx, id)
	}
	return nil, domain.ErrMediaUnavailable
}

func (m *mockMediaService) OpenThumbnail(ctx context.Context, id int64) (*driving.MediaFile, error) {
	if m.openThumbnailFn != nil {
		return m.openThumbnailFn(ctx, id)
	}
	return nil, domain.ErrMediaUnavailable
}

type mockAuthService struct {
	enabled         bool
	loginFn         func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) Enabled() bool { return m.enabled }

func (m *mockAuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

type mockSyncOrchestrator struct {
	runOnceFn  func(ctx context.Context) (*domain.SyncRun, error)
	listRunsFn func(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

func (m *mockSyncOrchestrator) RunOnce(ctx context.Context) (*domain.SyncRun, error) {
	if m.runOnceFn != nil {
		return m.runOnceFn(ctx)
	}
	return &domain.SyncRun{ID: "run", Status: domain.RunStatusSuccess}, nil
}

func (m *mockSyncOrchestrator) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSyncOrchestrator) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if m.listRunsFn != nil {
		return m.listRunsFn(ctx, limit)
	}
	return []*domain.SyncRun{}, nil
}

func (m *mockSyncOrchestrator) Running() bool { return false }

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

type testDeps struct {
	bookmarks *mockBookmarkService
	media     *mockMediaService
	auth      *mockAuthService
	sync      *mockSyncOrchestrator
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		bookmarks: &mockBookmarkService{},
		media:     &mockMediaService{},
		auth:      &mockAuthService{},
		sync:      &mockSyncOrchestrator{},
	}
	cfg := DefaultConfig()
	cfg.Version = "test"
	return NewServer(cfg, deps.bookmarks, deps.media, deps.auth, deps.sync), deps
}

func do(s *Server, method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	s, deps := newTestServer(t)

	rr := do(s, "GET", "/ready", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	deps.bookmarks.pingFn = func(ctx context.Context) error { return errors.New("db down") }
	rr = do(s, "GET", "/ready", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, "GET", "/version", nil)
	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("expected version test, got %s", resp.Version)
	}
}

func TestSwaggerDoc(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, "GET", "/swagger/doc.json", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	if doc["basePath"] != "/api/v1" {
		t.Errorf("expected basePath /api/v1, got %v", doc["basePath"])
	}
}

func TestListTopics(t *testing.T) {
	s, deps := newTestServer(t)
	deps.bookmarks.listTopicsFn = func(ctx context.Context) ([]*domain.Topic, error) {
		return []*domain.Topic{{ID: 1, Title: "General"}}, nil
	}

	rr := do(s, "GET", "/api/v1/topics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var topics []domain.Topic
	if err := json.NewDecoder(rr.Body).Decode(&topics); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(topics) != 1 || topics[0].Title != "General" {
		t.Errorf("unexpected topics: %+v", topics)
	}
}

func TestListBookmarks(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantOrder  domain.SortOrder
	}{
		{name: "default order", target: "/api/v1/topics/5/bookmarks", wantStatus: 200, wantOrder: domain.SortDesc},
		{name: "ascending", target: "/api/v1/topics/5/bookmarks?sort=ASC", wantStatus: 200, wantOrder: domain.SortAsc},
		{name: "bad sort", target: "/api/v1/topics/5/bookmarks?sort=sideways", wantStatus: 400},
		{name: "bad id", target: "/api/v1/topics/abc/bookmarks", wantStatus: 400},
		{name: "unknown topic", target: "/api/v1/topics/5/bookmarks", err: domain.ErrNotFound, wantStatus: 404},
		{name: "store failure", target: "/api/v1/topics/5/bookmarks", err: errors.New("boom"), wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestServer(t)
			var gotOrder domain.SortOrder
			deps.bookmarks.listBookmarksFn = func(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
				if topicID != 5 {
					t.Errorf("expected topic 5, got %d", topicID)
				}
				gotOrder = order
				return []*domain.Bookmark{}, tt.err
			}

			rr := do(s, "GET", tt.target, nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantOrder != "" && gotOrder != tt.wantOrder {
				t.Errorf("expected order %s, got %s", tt.wantOrder, gotOrder)
			}
		})
	}
}

func TestGetTopicBySlug(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "found", wantStatus: 200},
		{name: "unknown slug", err: domain.ErrNotFound, wantStatus: 404},
		{name: "store failure", err: errors.New("boom"), wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestServer(t)
			deps.bookmarks.topicBySlugFn = func(ctx context.Context, slug string) (*domain.Topic, error) {
				if slug != "reading_list" {
					t.Errorf("expected slug reading_list, got %q", slug)
				}
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.Topic{ID: 77, Title: "Reading List"}, nil
			}

			rr := do(s, "GET", "/api/v1/slugs/reading_list", nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var topic domain.Topic
			if err := json.NewDecoder(rr.Body).Decode(&topic); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if topic.ID != 77 {
				t.Errorf("expected topic 77, got %d", topic.ID)
			}
		})
	}
}

func TestSearchBookmarks(t *testing.T) {
	s, deps := newTestServer(t)
	deps.bookmarks.searchFn = func(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
		if strings.TrimSpace(query) == "" {
			return nil, domain.ErrInvalidInput
		}
		return []*domain.Bookmark{{ID: 9, Text: "golang " + query}}, nil
	}

	rr := do(s, "GET", "/api/v1/bookmarks/search?q=tips", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = do(s, "GET", "/api/v1/bookmarks/search?q=", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestMediaHandlers(t *testing.T) {
	s, deps := newTestServer(t)
	deps.media.openMediaFn = func(ctx context.Context, id int64) (*driving.MediaFile, error) {
		switch id {
		case 7:
			return &driving.MediaFile{
				Path:        "media/7.photo",
				ContentType: "image/jpeg",
				Size:        10,
				Body:        nopSeekCloser{bytes.NewReader([]byte("0123456789"))},
			}, nil
		case 8:
			return nil, domain.ErrNotFound
		default:
			return nil, errors.New("disk on fire")
		}
	}

	rr := do(s, "GET", "/api/v1/media/7", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
	if rr.Body.String() != "0123456789" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	// Range requests are honoured
	rr = do(s, "GET", "/api/v1/media/7", nil, "Range", "bytes=2-4")
	if rr.Code != http.StatusPartialContent || rr.Body.String() != "234" {
		t.Errorf("expected partial content 234, got %d %q", rr.Code, rr.Body.String())
	}

	if rr := do(s, "GET", "/api/v1/media/8", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
	if rr := do(s, "GET", "/api/v1/media/9", nil); rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	// Default mock has no thumbnails
	if rr := do(s, "GET", "/api/v1/thumb/7", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
	if rr := do(s, "GET", "/api/v1/thumb/0", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "success", body: `{"password":"pw"}`, wantStatus: 200},
		{name: "invalid json", body: `{`, wantStatus: 400},
		{name: "empty password", body: `{"password":""}`, err: domain.ErrInvalidInput, wantStatus: 400},
		{name: "wrong password", body: `{"password":"nope"}`, err: domain.ErrInvalidCredentials, wantStatus: 401},
		{name: "auth disabled", body: `{"password":"pw"}`, err: domain.ErrUnauthorized, wantStatus: 404},
		{name: "internal", body: `{"password":"pw"}`, err: errors.New("sign failed"), wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestServer(t)
			deps.auth.loginFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.LoginResponse{Token: "tok", ExpiresAt: 1}, nil
			}

			rr := do(s, "POST", "/api/v1/auth/login", strings.NewReader(tt.body))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestTriggerSync(t *testing.T) {
	tests := []struct {
		name       string
		run        *domain.SyncRun
		err        error
		wantStatus int
	}{
		{name: "success", run: &domain.SyncRun{Status: domain.RunStatusSuccess}, wantStatus: 200},
		{name: "already running", run: &domain.SyncRun{Status: domain.RunStatusAlreadyRunning}, err: domain.ErrSyncInProgress, wantStatus: 409},
		{name: "failure", run: &domain.SyncRun{Status: domain.RunStatusFailure}, err: errors.New("remote down"), wantStatus: 502},
		{name: "lock backend down", err: errors.New("redis down"), wantStatus: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestServer(t)
			deps.sync.runOnceFn = func(ctx context.Context) (*domain.SyncRun, error) {
				return tt.run, tt.err
			}

			rr := do(s, "POST", "/api/v1/sync", nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.run != nil {
				var run domain.SyncRun
				if err := json.NewDecoder(rr.Body).Decode(&run); err != nil {
					t.Fatalf("failed to decode run: %v", err)
				}
				if run.Status != tt.run.Status {
					t.Errorf("expected status %s, got %s", tt.run.Status, run.Status)
				}
			}
		})
	}
}

func TestTriggerSync_SurvivesClientDisconnect(t *testing.T) {
	s, deps := newTestServer(t)
	deps.sync.runOnceFn = func(ctx context.Context) (*domain.SyncRun, error) {
		if ctx.Err() != nil {
			t.Error("run context should not inherit request cancellation")
		}
		return &domain.SyncRun{Status: domain.RunStatusSuccess}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/api/v1/sync", nil).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)
}

func TestTriggerSync_RequiresAdminWhenEnabled(t *testing.T) {
	s, deps := newTestServer(t)
	deps.auth.enabled = true
	deps.auth.validateTokenFn = func(ctx context.Context, token string) (*domain.AuthContext, error) {
		if token == "good" {
			return &domain.AuthContext{Subject: "admin", Role: domain.RoleAdmin}, nil
		}
		return nil, domain.ErrTokenInvalid
	}

	rr := do(s, "POST", "/api/v1/sync", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "missing authorization token" {
		t.Errorf("unexpected error %q", msg)
	}

	rr = do(s, "POST", "/api/v1/sync", nil, "Authorization", "Bearer bad")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	rr = do(s, "POST", "/api/v1/sync", nil, "Authorization", "Bearer good")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestListSyncRuns(t *testing.T) {
	s, deps := newTestServer(t)
	var gotLimit int
	deps.sync.listRunsFn = func(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
		gotLimit = limit
		done := time.Now()
		return []*domain.SyncRun{{ID: "r1", Status: domain.RunStatusSuccess, CompletedAt: &done}}, nil
	}

	if rr := do(s, "GET", "/api/v1/sync/runs", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotLimit != defaultRunsLimit {
		t.Errorf("expected default limit, got %d", gotLimit)
	}

	do(s, "GET", "/api/v1/sync/runs?limit=5000", nil)
	if gotLimit != maxRunsLimit {
		t.Errorf("expected limit capped at %d, got %d", maxRunsLimit, gotLimit)
	}

	if rr := do(s, "GET", "/api/v1/sync/runs?limit=-1", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "test error")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if msg := decodeError(t, rr); msg != "test error" {
		t.Errorf("expected 'test error', got %s", msg)
	}
}
