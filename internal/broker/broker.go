package broker

import (
	"context"
	"time"
)

// Stream names for the fulfillment choreography.
const (
	StreamOrderCompleted = "order_completed"
	StreamRefundOrder    = "refund_order"
)

// Message is one entry delivered from a stream. The ID is assigned by the
// broker and is unique and monotonically increasing per stream.
type Message struct {
	ID     string
	Fields map[string]string
}

// Broker is the append-only stream transport the saga runs on.
type Broker interface {
	// Append adds a message to a stream and returns the broker-assigned id.
	Append(ctx context.Context, stream string, fields map[string]string) (string, error)

	// EnsureGroup creates a consumer group (and the stream itself if missing).
	// An already-existing group is not an error.
	EnsureGroup(ctx context.Context, stream, group string) error

	// ReadBacklog reads messages that were delivered to this group but never
	// acknowledged, starting from the beginning of history. Used once at
	// worker startup. An empty result means the backlog is drained.
	ReadBacklog(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// ReadNew blocks up to the given timeout waiting for messages not yet
	// delivered to any consumer in the group. A timeout returns no messages
	// and no error.
	ReadNew(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// Ack marks messages as durably processed for the group.
	Ack(ctx context.Context, stream, group string, ids ...string) error
}
