package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Publisher sends JSON messages to a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisPublisher publishes over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing go-redis client. The caller owns the client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish marshals message to JSON and sends it to channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)
