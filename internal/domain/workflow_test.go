package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestStepUnmarshalDelayAlias(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{"delay_minutes", `{"type":"sms","templateId":"s","delay_minutes":5}`, 5},
		{"legacy delay", `{"type":"sms","templateId":"s","delay":2880}`, 2880},
		{"delay_minutes wins", `{"type":"sms","templateId":"s","delay_minutes":3,"delay":9}`, 3},
		{"none", `{"type":"task","description":"call"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var step Step
			require.NoError(t, json.Unmarshal([]byte(tt.json), &step))
			assert.Equal(t, tt.want, step.DelayMinutes)
		})
	}
}

func TestStepDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), Step{}.Delay())
	assert.Equal(t, time.Duration(0), Step{DelayMinutes: -4}.Delay())
	assert.Equal(t, 48*time.Hour, Step{DelayMinutes: 2880}.Delay())
}

func TestWorkflowStepAt(t *testing.T) {
	wf := &WorkflowDefinition{Steps: datatypes.JSONSlice[Step]{{Type: StepTask}}}

	step, ok := wf.StepAt(0)
	assert.True(t, ok)
	assert.Equal(t, StepTask, step.Type)

	_, ok = wf.StepAt(1)
	assert.False(t, ok)
	_, ok = wf.StepAt(-1)
	assert.False(t, ok)
}

func TestWorkflowMatches(t *testing.T) {
	form := &WorkflowDefinition{Trigger: TriggerFormSubmit, Enabled: true}
	won := &WorkflowDefinition{Trigger: TriggerStatusChange, TriggerStatus: "won", Enabled: true}
	off := &WorkflowDefinition{Trigger: TriggerFormSubmit}

	assert.True(t, form.Matches(TriggerFormSubmit, ""))
	assert.False(t, form.Matches(TriggerBooking, ""))
	assert.True(t, won.Matches(TriggerStatusChange, "won"))
	assert.False(t, won.Matches(TriggerStatusChange, "lost"))
	assert.False(t, off.Matches(TriggerFormSubmit, ""))
}

func TestWorkflowValidate(t *testing.T) {
	tests := []struct {
		name    string
		wf      WorkflowDefinition
		wantErr bool
	}{
		{"form", WorkflowDefinition{Trigger: TriggerFormSubmit}, false},
		{"status change", WorkflowDefinition{Trigger: TriggerStatusChange, TriggerStatus: "won"}, false},
		{"status change without status", WorkflowDefinition{Trigger: TriggerStatusChange}, true},
		{"status on booking", WorkflowDefinition{Trigger: TriggerBooking, TriggerStatus: "won"}, true},
		{"unknown trigger", WorkflowDefinition{Trigger: "cron"}, true},
		{"negative delay", WorkflowDefinition{
			Trigger: TriggerFormSubmit,
			Steps:   datatypes.JSONSlice[Step]{{Type: StepTask, DelayMinutes: -1}},
		}, true},
		{"email without template", WorkflowDefinition{
			Trigger: TriggerFormSubmit,
			Steps:   datatypes.JSONSlice[Step]{{Type: StepEmail}},
		}, true},
		{"unknown step type", WorkflowDefinition{
			Trigger: TriggerFormSubmit,
			Steps:   datatypes.JSONSlice[Step]{{Type: "webhook"}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wf.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDefinition)
				return
			}
			assert.NoError(t, err)
		})
	}
}
