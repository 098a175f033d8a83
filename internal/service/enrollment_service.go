package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"
	"leadflow/internal/metrics"

	"github.com/google/uuid"
)

// BookingCancellationReason is stamped on instances cancelled because the
// contact booked an appointment.
const BookingCancellationReason = "New booking"

type EnrollmentService interface {
	// Enroll creates one instance due now. It returns (nil, nil) when the
	// workflow is missing, disabled, or (with dedup on) already running for
	// the contact.
	Enroll(ctx context.Context, workflowID string, contact domain.ContactSnapshot, variables map[string]string) (*domain.WorkflowInstance, error)

	// CancelForBooking cancels every active instance addressed to email.
	CancelForBooking(ctx context.Context, email string) (int, error)
}

type EnrollmentOptions struct {
	// Dedup skips enrollment when the contact already has an active
	// instance of the same workflow.
	Dedup bool
	Now   func() time.Time
}

type enrollmentService struct {
	workflows ports.WorkflowRepository
	instances ports.InstanceRepository
	bus       ports.EventBus
	opts      EnrollmentOptions
	logger    *slog.Logger
}

func NewEnrollmentService(
	workflows ports.WorkflowRepository,
	instances ports.InstanceRepository,
	bus ports.EventBus,
	opts EnrollmentOptions,
) EnrollmentService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &enrollmentService{
		workflows: workflows,
		instances: instances,
		bus:       bus,
		opts:      opts,
		logger:    logging.WithModule("enrollment"),
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, workflowID string, contact domain.ContactSnapshot, variables map[string]string) (*domain.WorkflowInstance, error) {
	logger := s.logger.With("workflow_id", workflowID, "contact_id", contact.ID)

	// 1. Workflow must exist and be enabled
	workflow, err := s.workflows.GetByID(ctx, workflowID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("workflow not found, skipping enrollment")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	if !workflow.Enabled {
		logger.Info("workflow disabled, skipping enrollment")
		return nil, nil
	}

	// 2. Optional dedup
	if s.opts.Dedup {
		active, err := s.instances.HasActive(ctx, contact.ID, workflowID)
		if err != nil {
			return nil, fmt.Errorf("check active enrollment: %w", err)
		}
		if active {
			logger.Info("contact already enrolled, skipping")
			return nil, nil
		}
	}

	// 3. Create the instance at step 0, due now
	now := s.opts.Now()
	instance := domain.NewInstance(workflowID, contact, variables, now)
	if err := s.instances.Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	metrics.Enrollments.WithLabelValues(workflowID).Inc()
	s.publish(ctx, instance, now)
	logger.Info("contact enrolled", "instance_id", instance.ID)
	return instance, nil
}

func (s *enrollmentService) CancelForBooking(ctx context.Context, email string) (int, error) {
	if email == "" {
		return 0, nil
	}

	active, err := s.instances.FindActiveByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("find active instances: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}

	byID := make(map[uuid.UUID]*domain.WorkflowInstance, len(active))
	ids := make([]uuid.UUID, 0, len(active))
	for _, instance := range active {
		byID[instance.ID] = instance
		ids = append(ids, instance.ID)
	}

	now := s.opts.Now()
	cancelled, err := s.instances.CancelBatch(ctx, ids, BookingCancellationReason, now)
	if err != nil {
		return 0, fmt.Errorf("cancel instances for booking: %w", err)
	}

	// Instances that finished between the lookup and the batch are not in
	// cancelled and get no event.
	metrics.Cancellations.Add(float64(len(cancelled)))
	for _, id := range cancelled {
		instance := byID[id]
		_ = instance.Cancel(BookingCancellationReason, now)
		s.publish(ctx, instance, now)
	}
	s.logger.Info("cancelled active instances for booking", "email", email, "count", len(cancelled))
	return len(cancelled), nil
}

func (s *enrollmentService) publish(ctx context.Context, instance *domain.WorkflowInstance, at time.Time) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishInstanceEvent(ctx, domain.NewInstanceEvent(instance, at)); err != nil {
		s.logger.Warn("failed to publish instance event", "instance_id", instance.ID, "error", err)
	}
}
