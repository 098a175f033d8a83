package scheduler

import (
	"context"

	"leadflow/internal/domain"
	"leadflow/internal/logging"
	"leadflow/internal/messaging"
)

// Messenger is the part of the messaging gateway the steps need.
type Messenger interface {
	SendEmail(ctx context.Context, req messaging.EmailRequest) *domain.Outcome
	SendSMS(ctx context.Context, req messaging.SMSRequest) *domain.Outcome
}

// StepHandler executes one step for one instance. vars is the merged
// contact and instance variable mapping.
type StepHandler func(ctx context.Context, instance *domain.WorkflowInstance, step domain.Step, vars map[string]string) domain.Outcome

// StepRegistry holds the executable step types. Types without a handler
// are skipped.
type StepRegistry map[domain.StepType]StepHandler

// NewStepRegistry wires up the built-in step types
func NewStepRegistry(messenger Messenger) StepRegistry {
	registry := make(StepRegistry)
	logger := logging.WithModule("steps")

	registry[domain.StepEmail] = func(ctx context.Context, instance *domain.WorkflowInstance, step domain.Step, vars map[string]string) domain.Outcome {
		outcome := messenger.SendEmail(ctx, messaging.EmailRequest{
			To:         instance.ContactEmail,
			TemplateID: step.TemplateID,
			Variables:  vars,
			WorkflowID: instance.WorkflowID,
			ContactID:  instance.ContactID,
		})
		return orNoRecipient(outcome)
	}

	registry[domain.StepSMS] = func(ctx context.Context, instance *domain.WorkflowInstance, step domain.Step, vars map[string]string) domain.Outcome {
		outcome := messenger.SendSMS(ctx, messaging.SMSRequest{
			To:         instance.ContactPhone,
			TemplateID: step.TemplateID,
			Variables:  vars,
			WorkflowID: instance.WorkflowID,
			ContactID:  instance.ContactID,
		})
		return orNoRecipient(outcome)
	}

	// Tasks are reminders for a human; nothing is delivered.
	registry[domain.StepTask] = func(ctx context.Context, instance *domain.WorkflowInstance, step domain.Step, vars map[string]string) domain.Outcome {
		logger.Info("task due",
			"instance_id", instance.ID,
			"workflow_id", instance.WorkflowID,
			"contact", instance.ContactName,
			"description", step.Description)
		return domain.Outcome{Success: true, Message: step.Description}
	}

	return registry
}

// Execute runs step through its handler.
func (r StepRegistry) Execute(ctx context.Context, instance *domain.WorkflowInstance, step domain.Step, vars map[string]string) domain.Outcome {
	handler, exists := r[step.Type]
	if !exists {
		return domain.Outcome{Success: true, Skipped: true, Message: "no handler for step type " + string(step.Type)}
	}
	return handler(ctx, instance, step, vars)
}

// A contact without an address for the channel skips the step instead of
// stalling the instance on it.
func orNoRecipient(outcome *domain.Outcome) domain.Outcome {
	if outcome == nil {
		return domain.Outcome{Success: true, Skipped: true, Message: "no recipient"}
	}
	return *outcome
}
