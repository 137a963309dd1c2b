// Package notifications delivers real-time feed events to WebSocket clients.
package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Feed event types.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// FeedEvent is the envelope streamed to feed subscribers.
type FeedEvent struct {
	Type    string           `json:"type"`
	Payload FeedEventPayload `json:"payload"`
}

// FeedEventPayload identifies the post that changed. Clients re-fetch the feed
// to pick up content.
type FeedEventPayload struct {
	PostID   uuid.UUID `json:"post_id"`
	AuthorID uuid.UUID `json:"author_id"`
	At       time.Time `json:"at"`
}

// NewFeedEvent builds an event of the given type.
func NewFeedEvent(eventType string, postID, authorID uuid.UUID, at time.Time) FeedEvent {
	return FeedEvent{
		Type: eventType,
		Payload: FeedEventPayload{
			PostID:   postID,
			AuthorID: authorID,
			At:       at,
		},
	}
}
