package driving

import (
	"context"
	"io"
)

// MediaFile is an opened cached media file
type MediaFile struct {
	Path        string
	ContentType string
	Size        int64
	Body        io.ReadSeekCloser
}

// MediaService serves cached attachments to the browsing surface
type MediaService interface {
	// OpenMedia opens the playable media of a bookmark: the photo, or the
	// full video which is downloaded on first request.
	OpenMedia(ctx context.Context, messageID int64) (*MediaFile, error)

	// OpenThumbnail opens the preview image of a bookmark: the photo, or
	// the cached video thumbnail.
	OpenThumbnail(ctx context.Context, messageID int64) (*MediaFile, error)
}
