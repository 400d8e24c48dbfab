package domain

import "time"

// RemoteTopic is a topic as listed by the remote source
type RemoteTopic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// RemoteMessage is one message record from the remote channel
type RemoteMessage struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	HasPhoto bool      `json:"has_photo"`
	HasVideo bool      `json:"has_video"`
	Date     time.Time `json:"date"`

	// ReplyToTopicID is the id of the topic's originating message, nil when
	// the message carries no topic reference.
	ReplyToTopicID *int64 `json:"reply_to_topic_id,omitempty"`

	// IsService marks metadata messages (topic creation and the like).
	IsService bool `json:"is_service"`
}

// ContentType classifies the message. Photo wins over video.
func (m *RemoteMessage) ContentType() ContentType {
	switch {
	case m.HasPhoto:
		return ContentTypePhoto
	case m.HasVideo:
		return ContentTypeVideo
	default:
		return ContentTypeText
	}
}

// DifferenceKind is the shape of a channel difference response
type DifferenceKind string

const (
	DifferenceEmpty   DifferenceKind = "empty"
	DifferenceTooLong DifferenceKind = "too_long"
	DifferencePage    DifferenceKind = "page"
)

// ChannelDifference is one response to "changes since pts".
type ChannelDifference struct {
	Kind           DifferenceKind   `json:"kind"`
	Pts            int64            `json:"pts"`
	NewMessages    []*RemoteMessage `json:"new_messages,omitempty"`
	EditedMessages []*RemoteMessage `json:"edited_messages,omitempty"`
	DeletedIDs     []int64          `json:"deleted_ids,omitempty"`
	Final          bool             `json:"final"`
}

// Messages returns new and edited messages in that order.
func (d *ChannelDifference) Messages() []*RemoteMessage {
	out := make([]*RemoteMessage, 0, len(d.NewMessages)+len(d.EditedMessages))
	out = append(out, d.NewMessages...)
	return append(out, d.EditedMessages...)
}

// MediaKind selects which attachment the media fetcher materializes
type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindVideo MediaKind = "video"
)

// MediaKindFor maps a content type to the media kind, false for text.
func MediaKindFor(ct ContentType) (MediaKind, bool) {
	switch ct {
	case ContentTypePhoto:
		return MediaKindPhoto, true
	case ContentTypeVideo:
		return MediaKindVideo, true
	default:
		return "", false
	}
}
