package redis

import (
	"context"
	"encoding/json"

	"leadflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisEventBus struct {
	client  *redis.Client
	channel string
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{
		client:  client,
		channel: "leadflow:events:instances",
	}
}

// PublishInstanceEvent broadcasts the event to the network
func (b *RedisEventBus) PublishInstanceEvent(ctx context.Context, event domain.InstanceEvent) error {
	// Serialize the struct to JSON
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel, payload).Err()
}

// SubscribeToEvents opens a continuous stream of instance events
func (b *RedisEventBus) SubscribeToEvents(ctx context.Context) (<-chan domain.InstanceEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription to be confirmed before handing the channel out
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.InstanceEvent)

	// Start a background goroutine to listen to Redis and forward to our Go channel
	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done(): // Handle shutdown gracefully
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.InstanceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case msgChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}
