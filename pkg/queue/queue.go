package queue

import (
	"context"
	"time"
)

// Publisher pushes typed messages onto a queue for an external consumer.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
	Stop(ctx context.Context) error
}

// Message is the wire envelope for queued payloads.
type Message struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Payload    interface{} `json:"payload"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}
