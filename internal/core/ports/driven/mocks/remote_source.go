package mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// ErrRemoteUnavailable is the default fault returned by injected failures
var ErrRemoteUnavailable = errors.New("remote unavailable")

var _ driven.RemoteSource = (*MockRemoteSource)(nil)

// MockRemoteSource is a scriptable RemoteSource for testing.
type MockRemoteSource struct {
	mu sync.Mutex

	Topics      []*domain.RemoteTopic
	Messages    map[int64][]*domain.RemoteMessage
	Differences []*domain.ChannelDifference
	Position    int64

	Photos map[int64][]byte
	Thumbs map[int64][]byte
	Videos map[int64][]byte

	// FailIterationAfter makes a topic's iterator fail after yielding N messages.
	FailIterationAfter map[int64]int

	ListTopicsFn           func() ([]*domain.RemoteTopic, error)
	GetChannelDifferenceFn func(pts int64, pageLimit int) (*domain.ChannelDifference, error)
	GetCurrentPositionFn   func() (int64, error)
	DownloadFn             func(kind string, messageID int64, w io.Writer) error

	differenceRequests []int64
	downloads          []string
	iterations         []int64
}

// NewMockRemoteSource creates an empty MockRemoteSource
func NewMockRemoteSource() *MockRemoteSource {
	return &MockRemoteSource{
		Messages:           make(map[int64][]*domain.RemoteMessage),
		Photos:             make(map[int64][]byte),
		Thumbs:             make(map[int64][]byte),
		Videos:             make(map[int64][]byte),
		FailIterationAfter: make(map[int64]int),
	}
}

// AddTopic registers a topic and its messages.
func (m *MockRemoteSource) AddTopic(id int64, title string, msgs ...*domain.RemoteMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics = append(m.Topics, &domain.RemoteTopic{ID: id, Title: title})
	m.Messages[id] = append(m.Messages[id], msgs...)
}

// QueueDifference appends a scripted difference response.
func (m *MockRemoteSource) QueueDifference(d *domain.ChannelDifference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Differences = append(m.Differences, d)
}

func (m *MockRemoteSource) ListTopics(ctx context.Context) ([]*domain.RemoteTopic, error) {
	if m.ListTopicsFn != nil {
		return m.ListTopicsFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.RemoteTopic(nil), m.Topics...), nil
}

func (m *MockRemoteSource) IterateTopicMessages(ctx context.Context, topicID, minID int64, limit int) (driven.MessageIterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations = append(m.iterations, topicID)

	var msgs []*domain.RemoteMessage
	for _, msg := range m.Messages[topicID] {
		if msg.ID > minID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}

	failAfter := -1
	if n, ok := m.FailIterationAfter[topicID]; ok {
		failAfter = n
	}
	return &mockIterator{msgs: msgs, failAfter: failAfter}, nil
}

func (m *MockRemoteSource) GetChannelDifference(ctx context.Context, pts int64, pageLimit int) (*domain.ChannelDifference, error) {
	m.mu.Lock()
	m.differenceRequests = append(m.differenceRequests, pts)
	m.mu.Unlock()

	if m.GetChannelDifferenceFn != nil {
		return m.GetChannelDifferenceFn(pts, pageLimit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Differences) == 0 {
		return &domain.ChannelDifference{Kind: domain.DifferenceEmpty, Pts: pts}, nil
	}
	d := m.Differences[0]
	m.Differences = m.Differences[1:]
	return d, nil
}

func (m *MockRemoteSource) GetCurrentPosition(ctx context.Context) (int64, error) {
	if m.GetCurrentPositionFn != nil {
		return m.GetCurrentPositionFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Position, nil
}

func (m *MockRemoteSource) DownloadPhoto(ctx context.Context, messageID int64, w io.Writer) error {
	return m.download("photo", m.Photos, messageID, w)
}

func (m *MockRemoteSource) DownloadVideoThumbnail(ctx context.Context, messageID int64, w io.Writer) error {
	return m.download("thumb", m.Thumbs, messageID, w)
}

func (m *MockRemoteSource) DownloadVideo(ctx context.Context, messageID int64, w io.Writer) error {
	return m.download("video", m.Videos, messageID, w)
}

func (m *MockRemoteSource) download(kind string, data map[int64][]byte, messageID int64, w io.Writer) error {
	m.mu.Lock()
	m.downloads = append(m.downloads, fmt.Sprintf("%s:%d", kind, messageID))
	fn := m.DownloadFn
	body, ok := data[messageID]
	m.mu.Unlock()

	if fn != nil {
		return fn(kind, messageID, w)
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", kind, messageID, ErrRemoteUnavailable)
	}
	_, err := w.Write(body)
	return err
}

// Helper methods for testing

// DifferenceRequests returns the pts values passed to GetChannelDifference.
func (m *MockRemoteSource) DifferenceRequests() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.differenceRequests...)
}

// Downloads returns "kind:id" entries for every download attempt.
func (m *MockRemoteSource) Downloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloads...)
}

// Iterations returns the topic ids passed to IterateTopicMessages.
func (m *MockRemoteSource) Iterations() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.iterations...)
}

type mockIterator struct {
	msgs      []*domain.RemoteMessage
	pos       int
	failAfter int
	closed    bool
}

func (it *mockIterator) Next(ctx context.Context) (*domain.RemoteMessage, error) {
	if it.closed {
		return nil, io.EOF
	}
	if it.failAfter >= 0 && it.pos >= it.failAfter {
		return nil, ErrRemoteUnavailable
	}
	if it.pos >= len(it.msgs) {
		return nil, io.EOF
	}
	msg := it.msgs[it.pos]
	it.pos++
	return msg, nil
}

func (it *mockIterator) Close() error {
	it.closed = true
	return nil
}

// Msg builds a content message for tests.
func Msg(id, topicID int64, text string) *domain.RemoteMessage {
	t := topicID
	return &domain.RemoteMessage{ID: id, Text: text, ReplyToTopicID: &t}
}
