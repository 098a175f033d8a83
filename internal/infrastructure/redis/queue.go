package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

const defaultLeadQueue = "leadflow:queue:leads"

// popTimeout bounds each BLPOP so a cancelled ctx is noticed promptly.
const popTimeout = 5 * time.Second

// RedisQueue is a FIFO of lead events on a Redis list.
type RedisQueue struct {
	client    *redis.Client
	queueName string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: defaultLeadQueue,
	}
}

// Push adds an event to the end of the list
func (q *RedisQueue) Push(ctx context.Context, event domain.LeadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.queueName, payload).Err()
}

// Pop waits for an event and removes it from the front of the list
func (q *RedisQueue) Pop(ctx context.Context) (domain.LeadEvent, error) {
	var result []string
	for {
		var err error
		result, err = q.client.BLPop(ctx, popTimeout, q.queueName).Result()
		if err == nil {
			break
		}
		// redis.Nil: the wait timed out with the list still empty
		if !errors.Is(err, redis.Nil) {
			return domain.LeadEvent{}, err
		}
		if ctx.Err() != nil {
			return domain.LeadEvent{}, ctx.Err()
		}
	}

	// BLPop returns a slice: [QueueName, Element]
	var event domain.LeadEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return domain.LeadEvent{}, fmt.Errorf("decode lead event: %w", err)
	}
	return event, nil
}
