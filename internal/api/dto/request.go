package dto

import "leadflow/internal/domain"

type StepDTO struct {
	Type         domain.StepType `json:"type" binding:"required,oneof=email sms task delay"`
	TemplateID   string          `json:"templateId" binding:"required_if=Type email,required_if=Type sms"`
	Description  string          `json:"description"`
	DelayMinutes int             `json:"delay_minutes" binding:"min=0"`
}

type WorkflowRequest struct {
	ID            string             `json:"id" binding:"omitempty,max=100"`
	Name          string             `json:"name" binding:"required,max=200"`
	Trigger       domain.TriggerType `json:"trigger" binding:"required,oneof=form_submit booking status_change"`
	TriggerStatus string             `json:"triggerStatus" binding:"required_if=Trigger status_change"`
	Enabled       bool               `json:"enabled"`
	Category      string             `json:"category"`
	Steps         []StepDTO          `json:"steps" binding:"dive"`
}

type EnrollRequest struct {
	LeadID     string `json:"leadId" binding:"required,uuid"`
	WorkflowID string `json:"workflowId" binding:"required"`
}

type CreateLeadRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"omitempty,max=50"`
	Service string `json:"service"`
	Message string `json:"message"`
}

type UpdateLeadStatusRequest struct {
	Status domain.LeadStatus `json:"status" binding:"required,oneof=new contacted quoted won lost"`
}

type EmailTemplateRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Subject  string `json:"subject"`
	HTML     string `json:"html" binding:"required"`
}

type SMSTemplateRequest struct {
	Name      string   `json:"name" binding:"required"`
	Category  string   `json:"category"`
	Content   string   `json:"content" binding:"required_without=Message"`
	Message   string   `json:"message"`
	Variables []string `json:"variables"`
}

// SendEmailRequest is a manual send: inline html or a stored template.
type SendEmailRequest struct {
	To         string            `json:"to" binding:"required,email"`
	TemplateID string            `json:"templateId" binding:"required_without=HTML"`
	Subject    string            `json:"subject"`
	HTML       string            `json:"html"`
	Variables  map[string]string `json:"variables"`
	ContactID  string            `json:"contactId"`
}

type SendSMSRequest struct {
	To         string            `json:"to" binding:"required"`
	TemplateID string            `json:"templateId" binding:"required_without=Message"`
	Message    string            `json:"message"`
	Variables  map[string]string `json:"variables"`
	ContactID  string            `json:"contactId"`
}
