package messaging

import (
	"context"
)

// Broker is the transport for exam lifecycle events drained from the outbox.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for each outbox event.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
