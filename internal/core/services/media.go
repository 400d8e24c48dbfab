package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Cache file suffixes, keyed by message id.
const (
	suffixPhoto      = ".photo"
	suffixVideoThumb = ".video-thumb"
	suffixVideo      = ".video"
	suffixPartial    = ".part"
)

// MediaFetcher materializes message attachments into a local cache
// directory at deterministic paths derived from the message id.
//
// A non-empty file at the target path counts as fetched. Zero-byte files
// are corrupt leftovers and are removed before any retry. Concurrent
// fetches of the same file share one transfer.
type MediaFetcher struct {
	remote      driven.RemoteSource
	fs          afero.Fs
	dir         string
	offline     bool
	photosOnly  bool
	maxAttempts int
	logger      *slog.Logger

	inflight singleflight.Group
}

// MediaFetcherConfig holds dependencies and options for MediaFetcher.
type MediaFetcherConfig struct {
	Remote driven.RemoteSource
	Fs     afero.Fs // defaults to the OS filesystem
	Dir    string   // defaults to "media"

	// Offline disables remote transfers; only cached files are reported.
	Offline bool

	// PhotosOnly skips video thumbnail downloads during sync.
	PhotosOnly bool

	// MaxAttempts bounds transfer attempts per fetch (default 2).
	MaxAttempts int

	Logger *slog.Logger
}

// NewMediaFetcher creates a new media fetcher.
func NewMediaFetcher(cfg MediaFetcherConfig) *MediaFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "media"
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}

	return &MediaFetcher{
		remote:      cfg.Remote,
		fs:          fs,
		dir:         dir,
		offline:     cfg.Offline,
		photosOnly:  cfg.PhotosOnly,
		maxAttempts: attempts,
		logger:      logger,
	}
}

// Fs returns the filesystem the cache lives on.
func (f *MediaFetcher) Fs() afero.Fs {
	return f.fs
}

// PhotoPath returns the cache path of a message's photo.
func (f *MediaFetcher) PhotoPath(messageID int64) string {
	return f.path(messageID, suffixPhoto)
}

// ThumbnailPath returns the cache path of a message's video thumbnail.
func (f *MediaFetcher) ThumbnailPath(messageID int64) string {
	return f.path(messageID, suffixVideoThumb)
}

// VideoPath returns the cache path of a message's full video.
func (f *MediaFetcher) VideoPath(messageID int64) string {
	return f.path(messageID, suffixVideo)
}

func (f *MediaFetcher) path(messageID int64, suffix string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d%s", messageID, suffix))
}

// Fetch returns the cached path for a message's attachment, downloading it
// when missing. An empty path with a nil error means no media is available
// and none was attempted. Transfer failures return a *domain.MediaFetchError;
// callers treat those as "no media".
func (f *MediaFetcher) Fetch(ctx context.Context, messageID int64, kind domain.MediaKind) (string, error) {
	switch kind {
	case domain.MediaKindPhoto:
		path := f.PhotoPath(messageID)
		if f.cached(path) {
			return path, nil
		}
		if f.offline {
			return "", nil
		}
		return f.download(ctx, messageID, kind, path, f.remote.DownloadPhoto)

	case domain.MediaKindVideo:
		thumb := f.ThumbnailPath(messageID)
		if f.cached(thumb) {
			return thumb, nil
		}
		if video := f.VideoPath(messageID); f.cached(video) {
			return video, nil
		}
		if f.offline || f.photosOnly {
			return "", nil
		}
		return f.download(ctx, messageID, kind, thumb, f.remote.DownloadVideoThumbnail)

	default:
		return "", fmt.Errorf("%w: media kind %q", domain.ErrInvalidInput, kind)
	}
}

// FetchVideo materializes the full video for playback. It is never called
// during sync.
func (f *MediaFetcher) FetchVideo(ctx context.Context, messageID int64) (string, error) {
	path := f.VideoPath(messageID)
	if f.cached(path) {
		return path, nil
	}
	if f.offline {
		return "", domain.ErrMediaUnavailable
	}
	return f.download(ctx, messageID, domain.MediaKindVideo, path, f.remote.DownloadVideo)
}

// cached reports whether path holds a non-empty file, removing a zero-byte
// artifact if one is found.
func (f *MediaFetcher) cached(path string) bool {
	info, err := f.fs.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if info.Size() == 0 {
		if err := f.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("failed to remove empty media file", "path", path, "error", err)
		}
		return false
	}
	return true
}

type downloadFunc func(ctx context.Context, messageID int64, w io.Writer) error

// download runs at most one transfer per target path at a time; callers
// arriving during a transfer receive its result.
func (f *MediaFetcher) download(ctx context.Context, messageID int64, kind domain.MediaKind, path string, fn downloadFunc) (string, error) {
	v, err, _ := f.inflight.Do(path, func() (interface{}, error) {
		if f.cached(path) {
			return path, nil
		}
		return f.transfer(ctx, messageID, kind, path, fn)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *MediaFetcher) transfer(ctx context.Context, messageID int64, kind domain.MediaKind, path string, fn downloadFunc) (string, error) {
	if err := f.fs.MkdirAll(f.dir, 0o755); err != nil {
		return "", &domain.MediaFetchError{MessageID: messageID, Kind: kind, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		err := f.downloadOnce(ctx, messageID, path, fn)
		if err == nil {
			f.logger.Debug("media downloaded", "message_id", messageID, "kind", kind, "path", path)
			return path, nil
		}
		lastErr = err
		f.logger.Warn("media download failed",
			"message_id", messageID,
			"kind", kind,
			"attempt", attempt,
			"error", err,
		)
	}

	return "", &domain.MediaFetchError{MessageID: messageID, Kind: kind, Err: lastErr}
}

// downloadOnce writes to a fresh temporary file next to path and renames
// it into place only when the transfer succeeded and produced bytes.
func (f *MediaFetcher) downloadOnce(ctx context.Context, messageID int64, path string, fn downloadFunc) (err error) {
	file, err := afero.TempFile(f.fs, f.dir, filepath.Base(path)+".*"+suffixPartial)
	if err != nil {
		return err
	}
	partial := file.Name()
	defer func() {
		if err != nil {
			_ = f.fs.Remove(partial)
			if info, statErr := f.fs.Stat(path); statErr == nil && info.Size() == 0 {
				_ = f.fs.Remove(path)
			}
		}
	}()

	counter := &countingWriter{w: file}
	dlErr := fn(ctx, messageID, counter)
	closeErr := file.Close()
	if dlErr != nil {
		return dlErr
	}
	if closeErr != nil {
		return closeErr
	}
	if counter.n == 0 {
		return fmt.Errorf("empty transfer")
	}
	if err := f.fs.Chmod(partial, 0o644); err != nil {
		return err
	}

	return f.fs.Rename(partial, path)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
