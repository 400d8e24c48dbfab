package services

import "github.com/ls-lnb/tg-bookmarks/internal/core/domain"

// TopicResolver attributes changed messages to a known topic.
//
// Order: the message's topic reference when it names a known topic, then
// the message itself when it is a known topic root, then the unresolved
// policy. A reference to an unknown topic is never guessed.
type TopicResolver struct {
	policy domain.UnresolvedTopicPolicy
	known  map[int64]struct{}
}

// NewTopicResolver creates a resolver over the given known topic ids.
func NewTopicResolver(policy domain.UnresolvedTopicPolicy, topics []*domain.Topic) *TopicResolver {
	known := make(map[int64]struct{}, len(topics))
	for _, t := range topics {
		known[t.ID] = struct{}{}
	}
	if policy == "" {
		policy = domain.TopicPolicyDrop
	}
	return &TopicResolver{policy: policy, known: known}
}

// Resolve returns the owning topic id, or false when the message must be
// dropped.
func (r *TopicResolver) Resolve(msg *domain.RemoteMessage) (int64, bool) {
	if msg.ReplyToTopicID != nil {
		id := *msg.ReplyToTopicID
		_, ok := r.known[id]
		return id, ok
	}

	if _, ok := r.known[msg.ID]; ok {
		return msg.ID, true
	}

	// The General topic's messages carry no reference on some forums.
	if r.policy == domain.TopicPolicyGeneral {
		if _, ok := r.known[domain.GeneralTopicID]; ok {
			return domain.GeneralTopicID, true
		}
	}
	return 0, false
}

// Known reports whether id is a known topic.
func (r *TopicResolver) Known(id int64) bool {
	_, ok := r.known[id]
	return ok
}
