package services

import (
	"testing"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestTopicResolver_Resolve(t *testing.T) {
	topics := []*domain.Topic{{ID: 1, Title: "General"}, {ID: 42, Title: "Links"}}

	tests := []struct {
		name   string
		policy domain.UnresolvedTopicPolicy
		msg    *domain.RemoteMessage
		want   int64
		wantOK bool
	}{
		{"reference to known topic", domain.TopicPolicyDrop, &domain.RemoteMessage{ID: 100, ReplyToTopicID: int64Ptr(42)}, 42, true},
		{"reference to unknown topic", domain.TopicPolicyGeneral, &domain.RemoteMessage{ID: 100, ReplyToTopicID: int64Ptr(77)}, 77, false},
		{"topic root", domain.TopicPolicyDrop, &domain.RemoteMessage{ID: 42}, 42, true},
		{"no reference, drop", domain.TopicPolicyDrop, &domain.RemoteMessage{ID: 100}, 0, false},
		{"no reference, general", domain.TopicPolicyGeneral, &domain.RemoteMessage{ID: 100}, 1, true},
		{"empty policy drops", "", &domain.RemoteMessage{ID: 100}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTopicResolver(tt.policy, topics)
			got, ok := r.Resolve(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected topic %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTopicResolver_GeneralRequiresKnownTopic(t *testing.T) {
	r := NewTopicResolver(domain.TopicPolicyGeneral, []*domain.Topic{{ID: 42}})
	if _, ok := r.Resolve(&domain.RemoteMessage{ID: 100}); ok {
		t.Error("general policy must not attribute to an unknown General topic")
	}
	if !r.Known(42) || r.Known(1) {
		t.Error("unexpected known topics")
	}
}
