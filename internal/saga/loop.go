package saga

import (
	"context"
	"log"
	"time"

	"github.com/example/order-saga/internal/broker"
)

const (
	drainCount = 100
	readCount  = 10

	// DefaultBlock is how long a steady-state read waits for new messages
	// before re-issuing.
	DefaultBlock = 5 * time.Second
)

// runConsumerLoop is the shared consumption shape for both reconcilers:
// ensure the group exists, drain any delivered-but-unacknowledged backlog
// from the beginning of history, then block on new messages until the context
// ends. A processing error never terminates the loop.
func runConsumerLoop(ctx context.Context, name string, b broker.Broker, stream, group, consumer string, block time.Duration, process func(context.Context, broker.Message)) error {
	if err := b.EnsureGroup(ctx, stream, group); err != nil {
		return err
	}
	log.Printf("[%s] Consumer %q started for group %q on stream %q", name, consumer, group, stream)

	// Backlog first: handles a worker that crashed mid-batch, or a group that
	// existed before this worker started.
	for {
		msgs, err := b.ReadBacklog(ctx, stream, group, consumer, drainCount)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[%s] Error reading backlog: %v", name, err)
			break
		}
		if len(msgs) == 0 {
			break
		}
		log.Printf("[%s] Found %d undelivered messages to process", name, len(msgs))
		for _, m := range msgs {
			process(ctx, m)
		}
	}

	log.Printf("[%s] Consuming new messages from stream %q", name, stream)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := b.ReadNew(ctx, stream, group, consumer, readCount, block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[%s] Consumer error: %v", name, err)
			time.Sleep(time.Second)
			continue
		}
		for _, m := range msgs {
			process(ctx, m)
		}
	}
}
