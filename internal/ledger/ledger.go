// Package ledger tracks already-applied message ids so redelivered messages
// become no-ops. Entries are never expired; growth is bounded only by stream
// volume, a tradeoff inherited from keeping the store a plain set.
package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Scopes, one per logical consumer.
const (
	ScopeInventory = "processed:inventory:orders"
	ScopePayment   = "processed:payment:refunds"
)

// Ledger records which message ids a consumer has already applied.
// Contains-then-Add around a single message id must behave atomically with
// respect to other workers in the same group.
type Ledger interface {
	Contains(ctx context.Context, scope, messageID string) (bool, error)
	Add(ctx context.Context, scope, messageID string) error
}

// RedisLedger stores applied ids in one Redis set per scope.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Contains(ctx context.Context, scope, messageID string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, scope, messageID).Result()
	if err != nil {
		return false, fmt.Errorf("ledger check %s/%s: %w", scope, messageID, err)
	}
	return ok, nil
}

func (l *RedisLedger) Add(ctx context.Context, scope, messageID string) error {
	if err := l.client.SAdd(ctx, scope, messageID).Err(); err != nil {
		return fmt.Errorf("ledger add %s/%s: %w", scope, messageID, err)
	}
	return nil
}
