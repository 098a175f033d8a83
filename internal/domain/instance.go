package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceError     InstanceStatus = "error"
	InstanceCancelled InstanceStatus = "cancelled"
)

const defaultContactName = "Friend"

// ContactSnapshot is the contact data copied onto an instance at enrollment.
type ContactSnapshot struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Service string
}

type HistoryEntry struct {
	StepIndex  int       `json:"stepIndex"`
	StepType   StepType  `json:"stepType"`
	ExecutedAt time.Time `json:"executedAt"`
	Result     Outcome   `json:"result"`
}

// WorkflowInstance is one contact's progress through one workflow.
type WorkflowInstance struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowID string    `gorm:"type:varchar(100);index;not null" json:"workflowId"`
	ContactID  string    `gorm:"type:varchar(100);index;not null" json:"contactId"`

	// Contact snapshot
	ContactName    string `gorm:"type:varchar(200)" json:"contactName"`
	ContactEmail   string `gorm:"type:varchar(320);index:idx_instance_email_status,priority:1" json:"contactEmail,omitempty"`
	ContactPhone   string `gorm:"type:varchar(50)" json:"contactPhone,omitempty"`
	ContactService string `gorm:"type:varchar(200)" json:"contactService,omitempty"`

	// State
	Status             InstanceStatus `gorm:"type:varchar(20);not null;index:idx_instance_due,priority:1;index:idx_instance_email_status,priority:2" json:"status"`
	CurrentStepIndex   int            `gorm:"not null;default:0" json:"currentStepIndex"`
	NextExecutionAt    *time.Time     `gorm:"index:idx_instance_due,priority:2" json:"nextExecutionAt,omitempty"`
	Error              string         `gorm:"type:text" json:"error,omitempty"`
	CancellationReason string         `gorm:"type:varchar(200)" json:"cancellationReason,omitempty"`
	Version            int            `gorm:"not null;default:1" json:"version"`

	History   datatypes.JSONSlice[HistoryEntry]     `gorm:"type:jsonb" json:"history"`
	Variables datatypes.JSONType[map[string]string] `gorm:"type:jsonb" json:"variables,omitempty"`

	// Audit
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

func (WorkflowInstance) TableName() string { return "workflow_instances" }

// --- FACTORY ---

// NewInstance seeds an instance at step 0, due at now.
func NewInstance(workflowID string, contact ContactSnapshot, variables map[string]string, now time.Time) *WorkflowInstance {
	name := contact.Name
	if name == "" {
		name = defaultContactName
	}
	due := now
	return &WorkflowInstance{
		ID:               uuid.New(),
		WorkflowID:       workflowID,
		ContactID:        contact.ID,
		ContactName:      name,
		ContactEmail:     contact.Email,
		ContactPhone:     contact.Phone,
		ContactService:   contact.Service,
		Status:           InstanceActive,
		CurrentStepIndex: 0,
		NextExecutionAt:  &due,
		History:          datatypes.JSONSlice[HistoryEntry]{},
		Variables:        datatypes.NewJSONType(variables),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// --- METHODS ---

func (i *WorkflowInstance) IsTerminal() bool {
	return i.Status != InstanceActive
}

// IsDue reports whether the scheduler should pick the instance up at now.
func (i *WorkflowInstance) IsDue(now time.Time) bool {
	return i.Status == InstanceActive && i.NextExecutionAt != nil && !i.NextExecutionAt.After(now)
}

// TemplateVariables builds the contact-derived mapping, overridden by the
// instance's own variables.
func (i *WorkflowInstance) TemplateVariables(defaultService string) map[string]string {
	first, last := splitName(i.ContactName)
	vars := map[string]string{
		"firstName": first,
		"lastName":  last,
		"name":      i.ContactName,
		"email":     i.ContactEmail,
		"phone":     i.ContactPhone,
		"service":   defaultService,
	}
	if i.ContactService != "" {
		vars["service"] = i.ContactService
	}
	for k, v := range i.Variables.Data() {
		vars[k] = v
	}
	return vars
}

func (i *WorkflowInstance) RecordStep(index int, stepType StepType, at time.Time, result Outcome) {
	i.History = append(i.History, HistoryEntry{
		StepIndex:  index,
		StepType:   stepType,
		ExecutedAt: at,
		Result:     result,
	})
	i.UpdatedAt = at
}

// Advance moves to a later step and schedules it.
func (i *WorkflowInstance) Advance(nextIndex int, nextAt time.Time) error {
	if i.IsTerminal() {
		return fmt.Errorf("%w: cannot advance %s instance", ErrInvalidTransition, i.Status)
	}
	if nextIndex <= i.CurrentStepIndex {
		return fmt.Errorf("%w: step index %d does not move past %d", ErrInvalidTransition, nextIndex, i.CurrentStepIndex)
	}
	i.CurrentStepIndex = nextIndex
	i.NextExecutionAt = &nextAt
	return nil
}

func (i *WorkflowInstance) Complete(at time.Time) error {
	if i.IsTerminal() {
		return fmt.Errorf("%w: cannot complete %s instance", ErrInvalidTransition, i.Status)
	}
	i.Status = InstanceCompleted
	i.CompletedAt = &at
	i.NextExecutionAt = nil
	i.UpdatedAt = at
	return nil
}

func (i *WorkflowInstance) Fail(message string, at time.Time) error {
	if i.IsTerminal() {
		return fmt.Errorf("%w: cannot fail %s instance", ErrInvalidTransition, i.Status)
	}
	if message == "" {
		message = "step failed"
	}
	i.Status = InstanceError
	i.Error = message
	i.NextExecutionAt = nil
	i.UpdatedAt = at
	return nil
}

func (i *WorkflowInstance) Cancel(reason string, at time.Time) error {
	if i.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel %s instance", ErrInvalidTransition, i.Status)
	}
	i.Status = InstanceCancelled
	i.CancellationReason = reason
	i.CancelledAt = &at
	i.NextExecutionAt = nil
	i.UpdatedAt = at
	return nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
