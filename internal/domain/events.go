package domain

import (
	"time"

	"github.com/google/uuid"
)

type LeadEventKind string

const (
	LeadCreated       LeadEventKind = "created"
	LeadStatusChanged LeadEventKind = "status_changed"
)

// LeadEvent is pushed onto the lead queue whenever a lead is created or
// its status changes. The lead worker turns it into enrollments.
type LeadEvent struct {
	Kind   LeadEventKind `json:"kind"`
	LeadID uuid.UUID     `json:"lead_id"`
	Status LeadStatus    `json:"status,omitempty"`
}

// InstanceEvent is published on the event bus every time an instance
// changes state.
type InstanceEvent struct {
	InstanceID uuid.UUID      `json:"instance_id"`
	WorkflowID string         `json:"workflow_id"`
	ContactID  string         `json:"contact_id"`
	Status     InstanceStatus `json:"status"`
	StepIndex  int            `json:"step_index"`
	Error      string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`
}

func NewInstanceEvent(inst *WorkflowInstance, at time.Time) InstanceEvent {
	return InstanceEvent{
		InstanceID: inst.ID,
		WorkflowID: inst.WorkflowID,
		ContactID:  inst.ContactID,
		Status:     inst.Status,
		StepIndex:  inst.CurrentStepIndex,
		Error:      inst.Error,
		At:         at,
	}
}
