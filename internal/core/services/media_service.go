package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Ensure mediaService implements MediaService
var _ driving.MediaService = (*mediaService)(nil)

// mediaService serves attachments out of the media cache
type mediaService struct {
	store   driven.LocalStore
	fetcher *MediaFetcher
}

// NewMediaService creates a new MediaService
func NewMediaService(store driven.LocalStore, fetcher *MediaFetcher) driving.MediaService {
	return &mediaService{store: store, fetcher: fetcher}
}

// OpenMedia opens the photo, or the full video (downloaded on first use).
func (s *mediaService) OpenMedia(ctx context.Context, messageID int64) (*driving.MediaFile, error) {
	b, err := s.store.GetBookmark(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var path string
	switch b.ContentType {
	case domain.ContentTypePhoto:
		path, err = s.fetcher.Fetch(ctx, messageID, domain.MediaKindPhoto)
	case domain.ContentTypeVideo:
		path, err = s.fetcher.FetchVideo(ctx, messageID)
	default:
		return nil, domain.ErrMediaUnavailable
	}
	return s.open(path, err)
}

// OpenThumbnail opens the photo, or the cached video preview.
func (s *mediaService) OpenThumbnail(ctx context.Context, messageID int64) (*driving.MediaFile, error) {
	b, err := s.store.GetBookmark(ctx, messageID)
	if err != nil {
		return nil, err
	}

	kind, ok := domain.MediaKindFor(b.ContentType)
	if !ok {
		return nil, domain.ErrMediaUnavailable
	}
	path, err := s.fetcher.Fetch(ctx, messageID, kind)
	return s.open(path, err)
}

func (s *mediaService) open(path string, fetchErr error) (*driving.MediaFile, error) {
	if fetchErr != nil {
		if errors.Is(fetchErr, domain.ErrMediaUnavailable) {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, fetchErr)
	}
	if path == "" {
		return nil, domain.ErrMediaUnavailable
	}

	f, err := s.fetcher.Fs().Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}

	return &driving.MediaFile{
		Path:        path,
		ContentType: mediaContentType(path),
		Size:        info.Size(),
		Body:        f,
	}, nil
}

// mediaContentType maps cache suffixes to MIME types. Telegram serves
// photos and thumbnails as JPEG and videos as MP4.
func mediaContentType(path string) string {
	switch filepath.Ext(path) {
	case suffixPhoto, suffixVideoThumb:
		return "image/jpeg"
	case suffixVideo:
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
