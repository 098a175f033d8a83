package seed

import (
	"context"
	"testing"

	"leadflow/internal/core/memory"
	"leadflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	data, err := Default()
	require.NoError(t, err)

	assert.Len(t, data.Workflows, 3)
	assert.Len(t, data.EmailTemplates, 5)
	assert.Len(t, data.SMSTemplates, 5)

	welcome := data.Workflows[0].definition()
	assert.Equal(t, "wf_welcome", welcome.ID)
	assert.Equal(t, domain.TriggerFormSubmit, welcome.Trigger)
	require.Len(t, welcome.Steps, 4)
	assert.Equal(t, domain.StepSMS, welcome.Steps[1].Type)
	assert.Equal(t, 2, welcome.Steps[1].DelayMinutes)
	assert.Equal(t, "Review new lead submission", welcome.Steps[2].Description)

	thanks := data.Workflows[2].definition()
	assert.Equal(t, domain.TriggerStatusChange, thanks.Trigger)
	assert.Equal(t, string(domain.LeadWon), thanks.TriggerStatus)
}

func TestDefaultTemplatesCoverWorkflowSteps(t *testing.T) {
	data, err := Default()
	require.NoError(t, err)

	email := map[string]bool{}
	for _, tmpl := range data.EmailTemplates {
		email[tmpl.ID] = true
		assert.NotEmpty(t, tmpl.Subject, tmpl.ID)
		assert.NotEmpty(t, tmpl.HTML, tmpl.ID)
	}
	sms := map[string]bool{}
	for _, tmpl := range data.SMSTemplates {
		sms[tmpl.ID] = true
		assert.NotEmpty(t, tmpl.Body(), tmpl.ID)
	}

	for _, wf := range data.Workflows {
		for _, step := range wf.Steps {
			switch step.Type {
			case domain.StepEmail:
				assert.True(t, email[step.TemplateID], "%s: missing email template %s", wf.ID, step.TemplateID)
			case domain.StepSMS:
				assert.True(t, sms[step.TemplateID], "%s: missing sms template %s", wf.ID, step.TemplateID)
			}
		}
	}
}

func TestParseRejectsInvalidWorkflow(t *testing.T) {
	raw := []byte(`
workflows:
  - id: wf_bad
    name: Bad
    trigger: status_change
    enabled: true
`)
	_, err := Parse(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("workflows: ["))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	data, err := Default()
	require.NoError(t, err)

	summary, err := data.Apply(ctx, store.Workflows(), store.Templates())
	require.NoError(t, err)
	assert.Equal(t, Summary{Workflows: 3, EmailTemplates: 5, SMSTemplates: 5}, summary)

	// A second run updates in place.
	data.Workflows[0].Name = "Renamed"
	_, err = data.Apply(ctx, store.Workflows(), store.Templates())
	require.NoError(t, err)

	workflows, err := store.Workflows().List(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 3)

	wf, err := store.Workflows().GetByID(ctx, "wf_welcome")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", wf.Name)

	tmpl, err := store.Templates().GetSMSTemplate(ctx, "sms_welcome")
	require.NoError(t, err)
	assert.Contains(t, tmpl.Content, "{{firstName}}")
}
