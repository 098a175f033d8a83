// Package seed carries the default workflows and templates and writes them
// into a store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/goccy/go-yaml"
	"gorm.io/datatypes"
)

//go:embed seed.yaml
var defaultData []byte

type step struct {
	Type         domain.StepType `yaml:"type"`
	TemplateID   string          `yaml:"templateId"`
	Description  string          `yaml:"description"`
	DelayMinutes int             `yaml:"delay_minutes"`
}

type workflow struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	Category      string             `yaml:"category"`
	Trigger       domain.TriggerType `yaml:"trigger"`
	TriggerStatus string             `yaml:"triggerStatus"`
	Enabled       bool               `yaml:"enabled"`
	Steps         []step             `yaml:"steps"`
}

type Data struct {
	Workflows      []workflow              `yaml:"workflows"`
	EmailTemplates []*domain.EmailTemplate `yaml:"emailTemplates"`
	SMSTemplates   []*domain.SMSTemplate   `yaml:"smsTemplates"`
}

type Summary struct {
	Workflows      int
	EmailTemplates int
	SMSTemplates   int
}

// Default parses the embedded seed data.
func Default() (*Data, error) {
	return Parse(defaultData)
}

func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	for _, wf := range data.Workflows {
		if err := wf.definition().Validate(); err != nil {
			return nil, fmt.Errorf("seed workflow %s: %w", wf.ID, err)
		}
	}
	return &data, nil
}

// Apply upserts every workflow and template.
func (d *Data) Apply(ctx context.Context, workflows ports.WorkflowRepository, templates ports.TemplateRepository) (Summary, error) {
	var summary Summary

	for _, wf := range d.Workflows {
		def := wf.definition()
		err := workflows.Create(ctx, def)
		if errors.Is(err, domain.ErrAlreadyExists) {
			err = workflows.Update(ctx, def)
		}
		if err != nil {
			return summary, fmt.Errorf("seed workflow %s: %w", wf.ID, err)
		}
		summary.Workflows++
	}

	for _, tmpl := range d.EmailTemplates {
		if err := templates.SaveEmailTemplate(ctx, tmpl); err != nil {
			return summary, fmt.Errorf("seed email template %s: %w", tmpl.ID, err)
		}
		summary.EmailTemplates++
	}

	for _, tmpl := range d.SMSTemplates {
		if err := templates.SaveSMSTemplate(ctx, tmpl); err != nil {
			return summary, fmt.Errorf("seed sms template %s: %w", tmpl.ID, err)
		}
		summary.SMSTemplates++
	}

	return summary, nil
}

func (w workflow) definition() *domain.WorkflowDefinition {
	steps := make(datatypes.JSONSlice[domain.Step], 0, len(w.Steps))
	for _, s := range w.Steps {
		steps = append(steps, domain.Step(s))
	}
	return &domain.WorkflowDefinition{
		ID:            w.ID,
		Name:          w.Name,
		Category:      w.Category,
		Trigger:       w.Trigger,
		TriggerStatus: w.TriggerStatus,
		Enabled:       w.Enabled,
		Steps:         steps,
	}
}
