package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RemoteSource = (*Client)(nil)

// Config configures the bridge client.
type Config struct {
	// BaseURL of the bridge sidecar, e.g. http://localhost:8081
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration

	// MaxRetries is how many times a 5xx or 429 response is retried
	MaxRetries int

	// RetryBackoff is the base wait between retries, multiplied by the attempt number
	RetryBackoff time.Duration

	// PageSize is how many history messages one request fetches
	PageSize int

	Logger *slog.Logger
}

// DefaultConfig returns a Config with defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		PageSize:     100,
	}
}

// Client implements driven.RemoteSource over the bridge sidecar's JSON API.
// The sidecar owns the Telegram session; this client never sees credentials
// beyond its bearer token.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	maxRetries   int
	retryBackoff time.Duration
	pageSize     int
	logger       *slog.Logger
}

// NewClient creates a bridge client.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		token:        cfg.Token,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		pageSize:     cfg.PageSize,
		logger:       cfg.Logger,
	}
}

// APIError is a non-2xx response from the bridge.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge API error %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 404 to domain.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

type topicsResponse struct {
	Topics []*domain.RemoteTopic `json:"topics"`
}

type messagesResponse struct {
	Messages []*domain.RemoteMessage `json:"messages"`
}

type stateResponse struct {
	Pts int64 `json:"pts"`
}

// ListTopics enumerates the channel's forum topics.
func (c *Client) ListTopics(ctx context.Context) ([]*domain.RemoteTopic, error) {
	var resp topicsResponse
	if err := c.getJSON(ctx, "/topics", &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// GetChannelDifference fetches one difference page since pts.
func (c *Client) GetChannelDifference(ctx context.Context, pts int64, pageLimit int) (*domain.ChannelDifference, error) {
	q := url.Values{}
	q.Set("pts", strconv.FormatInt(pts, 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	var diff domain.ChannelDifference
	if err := c.getJSON(ctx, "/difference?"+q.Encode(), &diff); err != nil {
		return nil, err
	}
	switch diff.Kind {
	case domain.DifferenceEmpty, domain.DifferenceTooLong, domain.DifferencePage:
	default:
		return nil, fmt.Errorf("decode difference: unknown kind %q", diff.Kind)
	}
	return &diff, nil
}

// GetCurrentPosition returns the channel's current pts.
func (c *Client) GetCurrentPosition(ctx context.Context) (int64, error) {
	var resp stateResponse
	if err := c.getJSON(ctx, "/state", &resp); err != nil {
		return 0, err
	}
	return resp.Pts, nil
}

// DownloadPhoto streams the message's photo into w.
func (c *Client) DownloadPhoto(ctx context.Context, messageID int64, w io.Writer) error {
	return c.download(ctx, messageID, "photo", w)
}

// DownloadVideoThumbnail streams the video's largest thumbnail into w.
func (c *Client) DownloadVideoThumbnail(ctx context.Context, messageID int64, w io.Writer) error {
	return c.download(ctx, messageID, "thumb", w)
}

// DownloadVideo streams the full video into w.
func (c *Client) DownloadVideo(ctx context.Context, messageID int64, w io.Writer) error {
	return c.download(ctx, messageID, "video", w)
}

func (c *Client) download(ctx context.Context, messageID int64, variant string, w io.Writer) error {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/messages/%d/%s", messageID, variant))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s %d: %w", variant, messageID, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// doRequest performs an authenticated request, retrying 5xx and 429
// responses with linear backoff.
func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}

		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		if !retryable || attempt >= c.maxRetries {
			break
		}

		wait := time.Duration(attempt+1) * c.retryBackoff
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		resp.Body.Close()

		c.logger.Debug("retrying bridge request",
			"path", path,
			"status", resp.StatusCode,
			"attempt", attempt+1,
			"wait", wait,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}
