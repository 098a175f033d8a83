package memory

import (
	"context"
	"sync"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
)

// Queue is a LeadQueue backed by a buffered channel.
type Queue struct {
	ch chan domain.LeadEvent
}

var _ ports.LeadQueue = (*Queue)(nil)

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{ch: make(chan domain.LeadEvent, capacity)}
}

func (q *Queue) Push(ctx context.Context, event domain.LeadEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Pop(ctx context.Context) (domain.LeadEvent, error) {
	select {
	case event := <-q.ch:
		return event, nil
	case <-ctx.Done():
		return domain.LeadEvent{}, ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}

// EventBus fans published events out to every subscriber. Slow subscribers
// drop events rather than block publishers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan domain.InstanceEvent
}

var _ ports.EventBus = (*EventBus)(nil)

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) PublishInstanceEvent(_ context.Context, event domain.InstanceEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *EventBus) SubscribeToEvents(ctx context.Context) (<-chan domain.InstanceEvent, error) {
	ch := make(chan domain.InstanceEvent, 256)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subscribers {
			if sub == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}
