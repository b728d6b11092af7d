package messaging

import (
	"context"
)

// Handler processes one message. A returned error leaves the message
// unacknowledged so it is delivered again later.
type Handler func(ctx context.Context, payload []byte) error

// Broker defines the interface for message brokers
type Broker interface {
	// Publish stores message on channel. It is kept until a consumer
	// acknowledges it, so publishing with no consumer running loses nothing.
	Publish(ctx context.Context, channel string, message interface{}) error
	// Consume hands each message on channel to exactly one consumer of the
	// broker's group and blocks until ctx is done.
	Consume(ctx context.Context, channel string, handler Handler) error
	Close() error
}
