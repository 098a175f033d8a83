package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"
)

// Coordinator follows instance lifecycle events off the event bus and
// reports terminal transitions.
type Coordinator struct {
	eventBus ports.EventBus
	logger   *slog.Logger
}

func NewCoordinator(bus ports.EventBus) *Coordinator {
	return &Coordinator{
		eventBus: bus,
		logger:   logging.WithModule("coordinator"),
	}
}

// Start subscribes and blocks until ctx is done or the bus closes the
// subscription. Call this in main.go as a goroutine.
func (c *Coordinator) Start(ctx context.Context) error {
	// Subscribe returns a Go channel that receives events from the bus
	eventChannel, err := c.eventBus.SubscribeToEvents(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to instance events: %w", err)
	}
	c.logger.Info("coordinator started, listening for instance events")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator shutting down")
			return nil

		case event, ok := <-eventChannel:
			if !ok {
				return nil
			}
			c.handleInstanceEvent(event)
		}
	}
}

func (c *Coordinator) handleInstanceEvent(event domain.InstanceEvent) {
	logger := c.logger.With(
		"instance_id", event.InstanceID,
		"workflow_id", event.WorkflowID,
		"contact_id", event.ContactID,
		"step_index", event.StepIndex,
	)

	switch event.Status {
	case domain.InstanceCompleted:
		logger.Info("workflow completed for contact")
	case domain.InstanceError:
		// Needs an operator: there is no automatic retry
		logger.Warn("workflow stopped on error", "error", event.Error)
	case domain.InstanceCancelled:
		logger.Info("workflow cancelled for contact")
	default:
		logger.Debug("instance progressed", "status", event.Status)
	}
}
