package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "entitlement.changed")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewRedisPublisher(client)
	require.NoError(t, publisher.Publish(ctx, "entitlement.changed", map[string]string{"identity_id": "abc"}))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "entitlement.changed", msg.Channel)
		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
		assert.Equal(t, "abc", payload["identity_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisPublisher_Errors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	publisher := NewRedisPublisher(client)

	err := publisher.Publish(context.Background(), "entitlement.changed", make(chan int))
	assert.ErrorContains(t, err, "marshal")

	mr.Close()
	err = publisher.Publish(context.Background(), "entitlement.changed", map[string]string{})
	assert.ErrorContains(t, err, "entitlement.changed")
}
