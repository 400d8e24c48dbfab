package bridge

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// IterateTopicMessages pages through a topic's history newest first.
// Pages are fetched lazily as Next drains the buffer.
func (c *Client) IterateTopicMessages(ctx context.Context, topicID, minID int64, limit int) (driven.MessageIterator, error) {
	return &messageIterator{
		client:  c,
		topicID: topicID,
		minID:   minID,
		limit:   limit,
	}, nil
}

type messageIterator struct {
	client  *Client
	topicID int64
	minID   int64
	limit   int

	buf      []*domain.RemoteMessage
	offsetID int64
	returned int
	done     bool
	closed   bool
}

var _ driven.MessageIterator = (*messageIterator)(nil)

func (it *messageIterator) Next(ctx context.Context) (*domain.RemoteMessage, error) {
	if it.closed {
		return nil, io.EOF
	}
	if it.limit > 0 && it.returned >= it.limit {
		return nil, io.EOF
	}

	if len(it.buf) == 0 {
		if it.done {
			return nil, io.EOF
		}
		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
		if len(it.buf) == 0 {
			return nil, io.EOF
		}
	}

	msg := it.buf[0]
	it.buf = it.buf[1:]
	it.returned++
	return msg, nil
}

func (it *messageIterator) fetch(ctx context.Context) error {
	size := it.client.pageSize
	if it.limit > 0 && it.limit-it.returned < size {
		size = it.limit - it.returned
	}

	q := url.Values{}
	q.Set("min_id", strconv.FormatInt(it.minID, 10))
	q.Set("offset_id", strconv.FormatInt(it.offsetID, 10))
	q.Set("limit", strconv.Itoa(size))

	var resp messagesResponse
	path := fmt.Sprintf("/topics/%d/messages?%s", it.topicID, q.Encode())
	if err := it.client.getJSON(ctx, path, &resp); err != nil {
		return err
	}

	// Guard against a bridge that ignores min_id or offset_id
	for _, m := range resp.Messages {
		if m.ID <= it.minID || (it.offsetID > 0 && m.ID >= it.offsetID) {
			continue
		}
		it.buf = append(it.buf, m)
	}

	if len(resp.Messages) < size || len(it.buf) == 0 {
		it.done = true
	}
	if n := len(it.buf); n > 0 {
		it.offsetID = it.buf[n-1].ID
	}
	return nil
}

func (it *messageIterator) Close() error {
	it.closed = true
	it.buf = nil
	return nil
}
