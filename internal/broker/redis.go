package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Broker on top of Redis Streams with consumer groups.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The caller owns the connection.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (b *Redis) Append(ctx context.Context, stream string, fields map[string]string) (string, error) {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", stream, err)
	}
	return id, nil
}

func (b *Redis) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

func (b *Redis) ReadBacklog(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	return b.read(ctx, stream, group, consumer, "0", count, -1)
}

func (b *Redis) ReadNew(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return b.read(ctx, stream, group, consumer, ">", count, block)
}

func (b *Redis) read(ctx context.Context, stream, group, consumer, cursor string, count int64, block time.Duration) ([]Message, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, cursor},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		// Block timeout expired with nothing to deliver.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s as %s/%s: %w", stream, group, consumer, err)
	}

	var messages []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			messages = append(messages, Message{ID: m.ID, Fields: stringFields(m.Values)})
		}
	}
	return messages, nil
}

func (b *Redis) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if err := b.client.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("ack %v on %s/%s: %w", ids, stream, group, err)
	}
	return nil
}

func stringFields(values map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		switch s := v.(type) {
		case string:
			fields[k] = s
		default:
			fields[k] = fmt.Sprint(v)
		}
	}
	return fields
}
