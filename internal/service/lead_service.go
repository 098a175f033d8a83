package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type LeadService interface {
	// CreateLead stores the lead and queues its created event.
	CreateLead(ctx context.Context, lead *domain.Lead) error

	// UpdateStatus queues a status-changed event when the status moved.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.Lead, error)

	// HandleLeadEvent is the lead worker's entry point: booking
	// cancellation, then enrollment into every matching workflow.
	HandleLeadEvent(ctx context.Context, event domain.LeadEvent) error

	// EnrollLead enrolls an existing lead into one workflow by hand.
	EnrollLead(ctx context.Context, leadID uuid.UUID, workflowID string) (*domain.WorkflowInstance, error)
}

type leadService struct {
	leads      ports.LeadRepository
	workflows  ports.WorkflowRepository
	queue      ports.LeadQueue
	enrollment EnrollmentService
	location   *time.Location
	logger     *slog.Logger
}

// NewLeadService builds the service. loc is the zone appointment times
// are rendered in.
func NewLeadService(
	leads ports.LeadRepository,
	workflows ports.WorkflowRepository,
	queue ports.LeadQueue,
	enrollment EnrollmentService,
	loc *time.Location,
) LeadService {
	if loc == nil {
		loc = time.UTC
	}
	return &leadService{
		leads:      leads,
		workflows:  workflows,
		queue:      queue,
		enrollment: enrollment,
		location:   loc,
		logger:     logging.WithModule("leads"),
	}
}

func (s *leadService) CreateLead(ctx context.Context, lead *domain.Lead) error {
	if err := s.leads.Create(ctx, lead); err != nil {
		return err
	}

	// The lead is stored either way; a lost event only loses automation.
	event := domain.LeadEvent{Kind: domain.LeadCreated, LeadID: lead.ID}
	if err := s.queue.Push(ctx, event); err != nil {
		s.logger.Error("failed to queue lead event", "lead_id", lead.ID, "error", err)
	}
	return nil
}

func (s *leadService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.Lead, error) {
	previous, err := s.leads.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if previous != status {
		event := domain.LeadEvent{Kind: domain.LeadStatusChanged, LeadID: id, Status: status}
		if err := s.queue.Push(ctx, event); err != nil {
			s.logger.Error("failed to queue lead event", "lead_id", id, "error", err)
		}
	}
	return s.leads.GetByID(ctx, id)
}

func (s *leadService) HandleLeadEvent(ctx context.Context, event domain.LeadEvent) error {
	lead, err := s.leads.GetByID(ctx, event.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", event.LeadID, err)
	}

	var (
		trigger domain.TriggerType
		status  string
	)
	switch event.Kind {
	case domain.LeadCreated:
		trigger = lead.Trigger()
		// A booking stops any nurture sequence still running for the contact
		if lead.Source == domain.LeadSourceBooking {
			if _, err := s.enrollment.CancelForBooking(ctx, lead.Email); err != nil {
				s.logger.Error("booking cancellation failed", "lead_id", lead.ID, "error", err)
			}
		}
	case domain.LeadStatusChanged:
		trigger = domain.TriggerStatusChange
		status = string(event.Status)
	default:
		return fmt.Errorf("unknown lead event kind %q", event.Kind)
	}

	workflows, err := s.workflows.ListEnabledByTrigger(ctx, trigger)
	if err != nil {
		return fmt.Errorf("match workflows: %w", err)
	}

	contact := lead.Contact()
	variables := lead.EnrollmentVariables(s.location)

	var g errgroup.Group
	for _, workflow := range workflows {
		if !workflow.Matches(trigger, status) {
			continue
		}
		g.Go(func() error {
			if _, err := s.enrollment.Enroll(ctx, workflow.ID, contact, variables); err != nil {
				s.logger.Error("enrollment failed", "lead_id", lead.ID, "workflow_id", workflow.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *leadService) EnrollLead(ctx context.Context, leadID uuid.UUID, workflowID string) (*domain.WorkflowInstance, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return s.enrollment.Enroll(ctx, workflowID, lead.Contact(), lead.EnrollmentVariables(s.location))
}
