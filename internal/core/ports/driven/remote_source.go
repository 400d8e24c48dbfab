package driven

import (
	"context"
	"io"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// RemoteSource is the remote channel the mirror is built from.
// Implementations own the connection and its authentication.
type RemoteSource interface {
	// ListTopics enumerates the channel's topics
	ListTopics(ctx context.Context) ([]*domain.RemoteTopic, error)

	// IterateTopicMessages returns a lazy, finite, non-restartable sequence
	// of a topic's messages with id > minID, newest first, at most limit
	// records. A limit <= 0 means no bound.
	IterateTopicMessages(ctx context.Context, topicID, minID int64, limit int) (MessageIterator, error)

	// GetChannelDifference requests changes since pts, at most pageLimit
	// messages per response.
	GetChannelDifference(ctx context.Context, pts int64, pageLimit int) (*domain.ChannelDifference, error)

	// GetCurrentPosition returns the channel's current pts
	GetCurrentPosition(ctx context.Context) (int64, error)

	// DownloadPhoto writes the message's photo to w
	DownloadPhoto(ctx context.Context, messageID int64, w io.Writer) error

	// DownloadVideoThumbnail writes the largest thumbnail of the message's video to w
	DownloadVideoThumbnail(ctx context.Context, messageID int64, w io.Writer) error

	// DownloadVideo writes the full video to w. Used for playback only,
	// never during sync.
	DownloadVideo(ctx context.Context, messageID int64, w io.Writer) error
}

// MessageIterator walks a topic's message history.
type MessageIterator interface {
	// Next returns the next message, or io.EOF when the sequence is done
	Next(ctx context.Context) (*domain.RemoteMessage, error)

	// Close releases the iterator
	Close() error
}
