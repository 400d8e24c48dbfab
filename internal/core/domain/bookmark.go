package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Topic is a named partition of the remote channel (a forum thread).
type Topic struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	LastSynced time.Time `json:"last_synced"`
}

// Slugify turns a topic title into its URL form: symbols and emoji are
// dropped, whitespace runs become underscores, letters are lowercased.
func Slugify(title string) string {
	kept := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' || r == '-' {
			return r
		}
		return -1
	}, title)
	return strings.ToLower(strings.Join(strings.Fields(kept), "_"))
}

// ContentType classifies what a bookmark carries
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypePhoto ContentType = "photo"
	ContentTypeVideo ContentType = "video"
)

// Bookmark is the local mirror of one remote content message.
// ID is the remote message id and is unique across the whole channel.
type Bookmark struct {
	ID          int64       `json:"id"`
	TopicID     int64       `json:"topic_id"`
	Text        string      `json:"text"`
	MediaPath   *string     `json:"media_path,omitempty"`
	ContentType ContentType `json:"content_type"`
	Date        time.Time   `json:"date"`
}

// HasMedia reports whether a cached media file is attached.
func (b *Bookmark) HasMedia() bool {
	return b.MediaPath != nil && *b.MediaPath != ""
}

// SortOrder orders bookmark listings by date
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ParseSortOrder accepts asc/desc in any case. Empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return SortDesc, nil
	case "asc":
		return SortAsc, nil
	default:
		return "", fmt.Errorf("%w: sort order %q", ErrInvalidInput, s)
	}
}

// SQL returns the ORDER BY direction keyword.
func (o SortOrder) SQL() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}

// SyncCursor is the singleton position in the remote change stream.
type SyncCursor struct {
	Pts  int64     `json:"pts"`
	Date time.Time `json:"date"`
}
