package dto

import "leadflow/internal/domain"

type WorkflowResponse struct {
	*domain.WorkflowDefinition
	ActiveInstances int64 `json:"activeInstances"`
}

type WorkflowListResponse struct {
	Workflows []WorkflowResponse `json:"workflows"`
}

type TemplateListResponse struct {
	Email []*domain.EmailTemplate `json:"email"`
	SMS   []*domain.SMSTemplate   `json:"sms"`
}

type LogListResponse struct {
	Logs []*domain.CommunicationLogEntry `json:"logs"`
}

type InstanceListResponse struct {
	Instances []*domain.WorkflowInstance `json:"instances"`
}

type LeadListResponse struct {
	Leads []*domain.Lead `json:"leads"`
}

// SendResponse mirrors domain.Outcome; Skipped means there was no recipient.
type SendResponse struct {
	domain.Outcome
}
