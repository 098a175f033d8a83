package coordinator

import (
	"context"
	"testing"
	"time"

	"leadflow/internal/core/memory"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorStopsWithContext(t *testing.T) {
	bus := memory.NewEventBus()
	c := NewCoordinator(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	// Give the subscription a moment to register, then publish
	require.Eventually(t, func() bool {
		return bus.PublishInstanceEvent(ctx, domain.InstanceEvent{
			InstanceID: uuid.New(),
			Status:     domain.InstanceError,
			Error:      "template not found",
			At:         time.Now(),
		}) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}
