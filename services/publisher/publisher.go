package publisher

import "context"

// Publisher represents a service for mirroring outbound alerts
type Publisher interface {
	// Name identifies the publisher in logs and delivery outcomes
	Name() string

	// Publish appends a message to the stream
	Publish(ctx context.Context, message string) error

	// Close closes the publisher connection
	Close() error
}
