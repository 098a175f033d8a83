package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TriggerType string

const (
	TriggerFormSubmit   TriggerType = "form_submit"
	TriggerBooking      TriggerType = "booking"
	TriggerStatusChange TriggerType = "status_change"
)

type StepType string

const (
	StepEmail StepType = "email"
	StepSMS   StepType = "sms"
	StepTask  StepType = "task"
	StepDelay StepType = "delay"
)

// Step is one unit of work. Steps are addressed by their position in
// WorkflowDefinition.Steps.
type Step struct {
	Type         StepType `json:"type"`
	TemplateID   string   `json:"templateId,omitempty"`
	Description  string   `json:"description,omitempty"`
	DelayMinutes int      `json:"delay_minutes,omitempty"`
}

// UnmarshalJSON accepts the older "delay" key as an alias of "delay_minutes".
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	var raw struct {
		plain
		Delay *int `json:"delay"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Step(raw.plain)
	if s.DelayMinutes == 0 && raw.Delay != nil {
		s.DelayMinutes = *raw.Delay
	}
	return nil
}

// Delay is zero when the step is due as soon as it is reached.
func (s Step) Delay() time.Duration {
	if s.DelayMinutes <= 0 {
		return 0
	}
	return time.Duration(s.DelayMinutes) * time.Minute
}

type WorkflowDefinition struct {
	ID            string      `gorm:"type:varchar(100);primary_key;" json:"id"`
	Name          string      `gorm:"type:varchar(200);not null" json:"name"`
	Trigger       TriggerType `gorm:"type:varchar(30);not null;index:idx_workflow_trigger_enabled,priority:1" json:"trigger"`
	TriggerStatus string      `gorm:"type:varchar(30)" json:"triggerStatus,omitempty"`
	Enabled       bool        `gorm:"not null;index:idx_workflow_trigger_enabled,priority:2" json:"enabled"`
	Category      string      `gorm:"type:varchar(100)" json:"category,omitempty"`

	Steps datatypes.JSONSlice[Step] `gorm:"type:jsonb" json:"steps"`

	// Audit
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WorkflowDefinition) TableName() string { return "workflow_definitions" }

// --- METHODS ---

// StepAt returns the step at index, or false once the index runs past the end.
func (w *WorkflowDefinition) StepAt(index int) (Step, bool) {
	if index < 0 || index >= len(w.Steps) {
		return Step{}, false
	}
	return w.Steps[index], true
}

// Matches reports whether a lead event of the given trigger (and, for
// status changes, the given status) should enroll into this workflow.
func (w *WorkflowDefinition) Matches(trigger TriggerType, status string) bool {
	if !w.Enabled || w.Trigger != trigger {
		return false
	}
	if trigger == TriggerStatusChange {
		return w.TriggerStatus == status
	}
	return true
}

func (w *WorkflowDefinition) Validate() error {
	switch w.Trigger {
	case TriggerFormSubmit, TriggerBooking:
		if w.TriggerStatus != "" {
			return fmt.Errorf("%w: triggerStatus is only allowed for %s workflows", ErrInvalidDefinition, TriggerStatusChange)
		}
	case TriggerStatusChange:
		if w.TriggerStatus == "" {
			return fmt.Errorf("%w: triggerStatus is required for %s workflows", ErrInvalidDefinition, TriggerStatusChange)
		}
	default:
		return fmt.Errorf("%w: unknown trigger %q", ErrInvalidDefinition, w.Trigger)
	}

	for i, step := range w.Steps {
		if step.DelayMinutes < 0 {
			return fmt.Errorf("%w: step %d has a negative delay", ErrInvalidDefinition, i)
		}
		if (step.Type == StepEmail || step.Type == StepSMS) && step.TemplateID == "" {
			return fmt.Errorf("%w: step %d (%s) needs a templateId", ErrInvalidDefinition, i, step.Type)
		}
	}
	return nil
}
