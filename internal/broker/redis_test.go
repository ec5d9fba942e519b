package broker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), client
}

func testFields(orderID string) map[string]string {
	return map[string]string{
		"order_id":   orderID,
		"product_id": "1",
		"price":      "10",
		"fee":        "2",
		"total":      "12",
		"quantity":   "3",
		"status":     "COMPLETED",
	}
}

func TestRedis_Append_AssignsOrderedIDs(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	first, err := b.Append(ctx, StreamOrderCompleted, testFields("1"))
	require.NoError(t, err)
	second, err := b.Append(ctx, StreamOrderCompleted, testFields("2"))
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	// Broker-assigned ids are monotonically increasing per stream
	assert.Less(t, first, second)
}

func TestRedis_EnsureGroup_AlreadyExists(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "inventory-group"))
	// BUSYGROUP from the second create is treated as success
	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "inventory-group"))
}

func TestRedis_ReadNew_DeliversAppendedMessages(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "g"))
	id, err := b.Append(ctx, StreamOrderCompleted, testFields("5"))
	require.NoError(t, err)

	msgs, err := b.ReadNew(ctx, StreamOrderCompleted, "g", "c1", 10, -1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "5", msgs[0].Fields["order_id"])
	assert.Equal(t, "COMPLETED", msgs[0].Fields["status"])
}

func TestRedis_ReadNew_EmptyStream(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "g"))

	msgs, err := b.ReadNew(ctx, StreamOrderCompleted, "g", "c1", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedis_ReadBacklog_ReturnsUnackedDeliveries(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "g"))
	first, err := b.Append(ctx, StreamOrderCompleted, testFields("1"))
	require.NoError(t, err)
	second, err := b.Append(ctx, StreamOrderCompleted, testFields("2"))
	require.NoError(t, err)

	// Nothing delivered yet, so the backlog is empty
	msgs, err := b.ReadBacklog(ctx, StreamOrderCompleted, "g", "c1", 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Deliver both without acking, simulating a crash mid-batch
	delivered, err := b.ReadNew(ctx, StreamOrderCompleted, "g", "c1", 10, -1)
	require.NoError(t, err)
	require.Len(t, delivered, 2)

	msgs, err = b.ReadBacklog(ctx, StreamOrderCompleted, "g", "c1", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first, msgs[0].ID)
	assert.Equal(t, second, msgs[1].ID)

	// Acking removes a message from the backlog
	require.NoError(t, b.Ack(ctx, StreamOrderCompleted, "g", first))
	msgs, err = b.ReadBacklog(ctx, StreamOrderCompleted, "g", "c1", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, second, msgs[0].ID)
}

func TestRedis_ReadBacklog_PendingEntriesBelongToTheConsumerName(t *testing.T) {
	// A delivery that was read but never acked stays pending under the exact
	// consumer name that read it. A worker restarting under the same name
	// recovers it from the backlog; a worker coming up under a different name
	// sees neither the backlog entry nor a redelivery via ">". This is why
	// worker consumer names are derived from the hostname alone.
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamOrderCompleted, "g"))
	id, err := b.Append(ctx, StreamOrderCompleted, testFields("1"))
	require.NoError(t, err)

	// First run reads the message and crashes before acking
	delivered, err := b.ReadNew(ctx, StreamOrderCompleted, "g", "host-1", 10, -1)
	require.NoError(t, err)
	require.Len(t, delivered, 1)

	// A restart under a fresh name finds nothing: the backlog is per-consumer
	// and ">" never redelivers
	msgs, err := b.ReadBacklog(ctx, StreamOrderCompleted, "g", "host-1-aaaa", 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	msgs, err = b.ReadNew(ctx, StreamOrderCompleted, "g", "host-1-aaaa", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// A restart under the original name recovers the stranded delivery
	msgs, err = b.ReadBacklog(ctx, StreamOrderCompleted, "g", "host-1", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "1", msgs[0].Fields["order_id"])
}

func TestRedis_Ack_All(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.EnsureGroup(ctx, StreamRefundOrder, "g"))
	_, err := b.Append(ctx, StreamRefundOrder, testFields("1"))
	require.NoError(t, err)

	delivered, err := b.ReadNew(ctx, StreamRefundOrder, "g", "c1", 10, -1)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	require.NoError(t, b.Ack(ctx, StreamRefundOrder, "g", delivered[0].ID))

	msgs, err := b.ReadBacklog(ctx, StreamRefundOrder, "g", "c1", 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
