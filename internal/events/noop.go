package events

import "context"

// NoopPublisher drops every event. The server falls back to it when no bus
// URL is configured, so gates still work with polling-only consumers.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic Topic, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
