package notifications

import (
	"context"
	"encoding/json"
	"fmt"
)

// FeedPublisher routes feed events through Redis when it is available so every
// instance sees them, and straight to the local hub otherwise.
type FeedPublisher struct {
	notifier *Notifier
	hub      *Hub
}

// NewFeedPublisher returns a publisher; either argument may be nil.
func NewFeedPublisher(notifier *Notifier, hub *Hub) *FeedPublisher {
	return &FeedPublisher{notifier: notifier, hub: hub}
}

// PublishFeedEvent delivers event to subscribers.
func (p *FeedPublisher) PublishFeedEvent(ctx context.Context, event FeedEvent) error {
	if p.notifier.Enabled() {
		return p.notifier.PublishFeedEvent(ctx, event)
	}
	if p.hub == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	p.hub.BroadcastAll(payload)
	return nil
}
