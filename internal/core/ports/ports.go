package ports

import (
	"context"
	"time"

	"leadflow/internal/domain"

	"github.com/google/uuid"
)

// LeadQueue carries lead events from the HTTP surface to the lead workers
type LeadQueue interface {
	// Push a lead event to the end of the queue
	Push(ctx context.Context, event domain.LeadEvent) error

	// Wait (Block) until an event is available
	Pop(ctx context.Context) (domain.LeadEvent, error)
}

// EventBus represents the instance lifecycle event bus
type EventBus interface {
	// Publish "instance X is now completed/error/cancelled/active at step N"
	PublishInstanceEvent(ctx context.Context, event domain.InstanceEvent) error

	// Subscribe to events
	SubscribeToEvents(ctx context.Context) (<-chan domain.InstanceEvent, error)
}

// WorkflowRepository represents the workflow definition store
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.WorkflowDefinition) error
	Update(ctx context.Context, workflow *domain.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error)
	List(ctx context.Context) ([]*domain.WorkflowDefinition, error)

	// "All enabled definitions with trigger = T" (enrollment matching)
	ListEnabledByTrigger(ctx context.Context, trigger domain.TriggerType) ([]*domain.WorkflowDefinition, error)
}

// InstanceRepository represents the per-contact instance store
type InstanceRepository interface {
	// Create a new instance (enrollment)
	Create(ctx context.Context, instance *domain.WorkflowInstance) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowInstance, error)

	// The "Sweep" query: status=active AND next_execution_at <= now
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.WorkflowInstance, error)

	// status=active AND contact_email = E (cancellation on booking)
	FindActiveByEmail(ctx context.Context, email string) ([]*domain.WorkflowInstance, error)

	// Automation history for one contact, newest first
	FindByContact(ctx context.Context, contactID string) ([]*domain.WorkflowInstance, error)

	HasActive(ctx context.Context, contactID, workflowID string) (bool, error)

	// Active instance counts keyed by workflow id
	CountActiveByWorkflow(ctx context.Context) (map[string]int64, error)

	// The "Claim" (Optimistic Locking)
	// "Set Version=Version+1, NextExecutionAt=leaseUntil WHERE ID=? AND Version=? AND Status=active"
	// Returns domain.ErrClaimConflict when another sweep got there first.
	Claim(ctx context.Context, id uuid.UUID, currentVersion int, leaseUntil time.Time) error

	// Write back a claimed instance. Only succeeds if the row still carries
	// claimedVersion and is still active; bumps the version again.
	Save(ctx context.Context, instance *domain.WorkflowInstance, claimedVersion int) error

	// Cancel every listed instance that is still active, all-or-nothing.
	// Returns the ids that were actually cancelled.
	CancelBatch(ctx context.Context, ids []uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error)
}

// TemplateRepository represents the email/sms template store
type TemplateRepository interface {
	GetEmailTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error)

	// Email html stored under the legacy settings row
	GetLegacyEmailTemplate(ctx context.Context, id string) (string, error)

	GetSMSTemplate(ctx context.Context, id string) (*domain.SMSTemplate, error)
	SaveEmailTemplate(ctx context.Context, template *domain.EmailTemplate) error
	SaveSMSTemplate(ctx context.Context, template *domain.SMSTemplate) error
	ListEmailTemplates(ctx context.Context) ([]*domain.EmailTemplate, error)
	ListSMSTemplates(ctx context.Context) ([]*domain.SMSTemplate, error)
}

// CommunicationLogRepository is the append-only send audit trail
type CommunicationLogRepository interface {
	Create(ctx context.Context, entry *domain.CommunicationLogEntry) error
	// Newest first; limit <= 0 returns every entry
	ListRecent(ctx context.Context, limit int) ([]*domain.CommunicationLogEntry, error)
}

// LeadRepository represents the lead store
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, limit int) ([]*domain.Lead, error)

	// Returns the previous status
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (domain.LeadStatus, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
}

type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type SMSMessage struct {
	From string
	To   string
	Text string
}

// EmailSender is the email provider capability
type EmailSender interface {
	Name() string
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// SMSSender is the sms provider capability
type SMSSender interface {
	Name() string
	SendSMS(ctx context.Context, msg SMSMessage) (string, error)
}
