package service

import (
	"context"
	"testing"
	"time"

	"leadflow/internal/core/memory"
	"leadflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var fixedNow = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

type fixture struct {
	store      *memory.Store
	queue      *memory.Queue
	bus        *memory.EventBus
	enrollment EnrollmentService
	leads      LeadService
}

func newFixture(t *testing.T, dedup bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	queue := memory.NewQueue(16)
	bus := memory.NewEventBus()
	enrollment := NewEnrollmentService(store.Workflows(), store.Instances(), bus, EnrollmentOptions{
		Dedup: dedup,
		Now:   func() time.Time { return fixedNow },
	})
	return &fixture{
		store:      store,
		queue:      queue,
		bus:        bus,
		enrollment: enrollment,
		leads:      NewLeadService(store.Leads(), store.Workflows(), queue, enrollment, time.UTC),
	}
}

func (f *fixture) addWorkflow(t *testing.T, wf *domain.WorkflowDefinition) {
	t.Helper()
	if wf.Steps == nil {
		wf.Steps = datatypes.JSONSlice[domain.Step]{{Type: domain.StepTask, Description: "call"}}
	}
	require.NoError(t, f.store.Workflows().Create(context.Background(), wf))
}

func (f *fixture) instancesFor(t *testing.T, contactID string) []*domain.WorkflowInstance {
	t.Helper()
	instances, err := f.store.Instances().FindByContact(context.Background(), contactID)
	require.NoError(t, err)
	return instances
}

func contact(id, email string) domain.ContactSnapshot {
	return domain.ContactSnapshot{ID: id, Name: "Jane Doe", Email: email, Phone: "5551234567"}
}

func TestEnrollCreatesInstanceDueNow(t *testing.T) {
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "wf_welcome", Name: "Welcome", Trigger: domain.TriggerFormSubmit, Enabled: true})

	instance, err := f.enrollment.Enroll(context.Background(), "wf_welcome", contact("c1", "jane@example.com"), map[string]string{"service": "Decks"})
	require.NoError(t, err)
	require.NotNil(t, instance)

	stored, err := f.store.Instances().GetByID(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceActive, stored.Status)
	assert.Equal(t, 0, stored.CurrentStepIndex)
	require.NotNil(t, stored.NextExecutionAt)
	assert.Equal(t, fixedNow, *stored.NextExecutionAt)
	assert.Equal(t, "jane@example.com", stored.ContactEmail)
	assert.Equal(t, "Decks", stored.Variables.Data()["service"])
	assert.Empty(t, stored.History)
}

func TestEnrollSkipsMissingAndDisabledWorkflows(t *testing.T) {
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "wf_off", Name: "Off", Trigger: domain.TriggerFormSubmit, Enabled: false})

	instance, err := f.enrollment.Enroll(context.Background(), "wf_missing", contact("c1", ""), nil)
	assert.NoError(t, err)
	assert.Nil(t, instance)

	instance, err = f.enrollment.Enroll(context.Background(), "wf_off", contact("c1", ""), nil)
	assert.NoError(t, err)
	assert.Nil(t, instance)

	assert.Empty(t, f.instancesFor(t, "c1"))
}

func TestEnrollRepeatsWithoutDedup(t *testing.T) {
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "wf", Name: "WF", Trigger: domain.TriggerFormSubmit, Enabled: true})

	for range 2 {
		_, err := f.enrollment.Enroll(context.Background(), "wf", contact("c1", ""), nil)
		require.NoError(t, err)
	}
	assert.Len(t, f.instancesFor(t, "c1"), 2)
}

func TestEnrollDedup(t *testing.T) {
	f := newFixture(t, true)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "wf", Name: "WF", Trigger: domain.TriggerFormSubmit, Enabled: true})

	first, err := f.enrollment.Enroll(context.Background(), "wf", contact("c1", ""), nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := f.enrollment.Enroll(context.Background(), "wf", contact("c1", ""), nil)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, f.instancesFor(t, "c1"), 1)
}

func TestCancelForBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "a", Name: "A", Trigger: domain.TriggerFormSubmit, Enabled: true})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "b", Name: "B", Trigger: domain.TriggerFormSubmit, Enabled: true})

	events, err := f.bus.SubscribeToEvents(ctx)
	require.NoError(t, err)

	var targets []*domain.WorkflowInstance
	for _, wf := range []string{"a", "b", "a"} {
		instance, err := f.enrollment.Enroll(ctx, wf, contact("c1", "jane@example.com"), nil)
		require.NoError(t, err)
		targets = append(targets, instance)
	}
	other, err := f.enrollment.Enroll(ctx, "a", contact("c2", "sam@example.com"), nil)
	require.NoError(t, err)

	cancelled, err := f.enrollment.CancelForBooking(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, cancelled)

	for _, target := range targets {
		stored, err := f.store.Instances().GetByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InstanceCancelled, stored.Status)
		assert.Equal(t, BookingCancellationReason, stored.CancellationReason)
		assert.NotNil(t, stored.CancelledAt)
		assert.Nil(t, stored.NextExecutionAt)
	}

	untouched, err := f.store.Instances().GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceActive, untouched.Status)

	// four enrollments then three cancellations
	var statuses []domain.InstanceStatus
	for range 7 {
		statuses = append(statuses, (<-events).Status)
	}
	assert.Equal(t, 3, countStatus(statuses, domain.InstanceCancelled))

	again, err := f.enrollment.CancelForBooking(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Zero(t, again)
}

func countStatus(statuses []domain.InstanceStatus, want domain.InstanceStatus) int {
	n := 0
	for _, s := range statuses {
		if s == want {
			n++
		}
	}
	return n
}

func TestCreateLeadQueuesEvent(t *testing.T) {
	f := newFixture(t, false)
	lead := domain.NewLead("Jane Doe", "jane@example.com", "", "Decks", "", domain.LeadSourceWebsite)

	require.NoError(t, f.leads.CreateLead(context.Background(), lead))

	event, err := f.queue.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.LeadEvent{Kind: domain.LeadCreated, LeadID: lead.ID}, event)
}

func TestUpdateStatusQueuesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	lead := domain.NewLead("Jane Doe", "jane@example.com", "", "", "", domain.LeadSourceWebsite)
	require.NoError(t, f.store.Leads().Create(ctx, lead))

	updated, err := f.leads.UpdateStatus(ctx, lead.ID, domain.LeadWon)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadWon, updated.Status)
	assert.Equal(t, 1, f.queue.Len())

	_, err = f.leads.UpdateStatus(ctx, lead.ID, domain.LeadWon)
	require.NoError(t, err)
	assert.Equal(t, 1, f.queue.Len())

	event, err := f.queue.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusChanged, event.Kind)
	assert.Equal(t, domain.LeadWon, event.Status)
}

func TestHandleLeadEventEnrollsMatchingWorkflows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "form_a", Name: "A", Trigger: domain.TriggerFormSubmit, Enabled: true})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "form_b", Name: "B", Trigger: domain.TriggerFormSubmit, Enabled: true})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "form_off", Name: "Off", Trigger: domain.TriggerFormSubmit, Enabled: false})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "booking", Name: "Booking", Trigger: domain.TriggerBooking, Enabled: true})

	lead := domain.NewLead("Jane Doe", "jane@example.com", "", "", "", domain.LeadSourceWebsite)
	require.NoError(t, f.store.Leads().Create(ctx, lead))

	require.NoError(t, f.leads.HandleLeadEvent(ctx, domain.LeadEvent{Kind: domain.LeadCreated, LeadID: lead.ID}))

	instances := f.instancesFor(t, lead.ID.String())
	require.Len(t, instances, 2)
	ids := []string{instances[0].WorkflowID, instances[1].WorkflowID}
	assert.ElementsMatch(t, []string{"form_a", "form_b"}, ids)
}

func TestHandleLeadEventBookingCancelsThenEnrolls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "nurture", Name: "Nurture", Trigger: domain.TriggerFormSubmit, Enabled: true})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "booking", Name: "Booking", Trigger: domain.TriggerBooking, Enabled: true})

	form := domain.NewLead("Jane Doe", "jane@example.com", "", "", "", domain.LeadSourceWebsite)
	require.NoError(t, f.store.Leads().Create(ctx, form))
	require.NoError(t, f.leads.HandleLeadEvent(ctx, domain.LeadEvent{Kind: domain.LeadCreated, LeadID: form.ID}))

	booking := domain.NewLead("Jane Doe", "jane@example.com", "", "Consultation", "", domain.LeadSourceBooking)
	booking.Booking = datatypes.NewJSONType(domain.BookingDetails{
		StartTime: "2025-03-10T15:00:00Z",
		Location:  "123 Main St",
	})
	require.NoError(t, f.store.Leads().Create(ctx, booking))
	require.NoError(t, f.leads.HandleLeadEvent(ctx, domain.LeadEvent{Kind: domain.LeadCreated, LeadID: booking.ID}))

	nurture := f.instancesFor(t, form.ID.String())
	require.Len(t, nurture, 1)
	assert.Equal(t, domain.InstanceCancelled, nurture[0].Status)
	assert.Equal(t, "New booking", nurture[0].CancellationReason)

	booked := f.instancesFor(t, booking.ID.String())
	require.Len(t, booked, 1)
	assert.Equal(t, "booking", booked[0].WorkflowID)
	assert.Equal(t, domain.InstanceActive, booked[0].Status)
	vars := booked[0].Variables.Data()
	assert.Equal(t, "Monday, March 10, 2025", vars["appointmentDate"])
	assert.Equal(t, "3:00 PM", vars["appointmentTime"])
	assert.Equal(t, "123 Main St", vars["appointmentAddress"])
}

func TestHandleLeadEventStatusChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "thanks", Name: "Thanks", Trigger: domain.TriggerStatusChange, TriggerStatus: "won", Enabled: true})
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "lost", Name: "Lost", Trigger: domain.TriggerStatusChange, TriggerStatus: "lost", Enabled: true})

	lead := domain.NewLead("Jane Doe", "jane@example.com", "", "", "", domain.LeadSourceWebsite)
	require.NoError(t, f.store.Leads().Create(ctx, lead))

	require.NoError(t, f.leads.HandleLeadEvent(ctx, domain.LeadEvent{
		Kind:   domain.LeadStatusChanged,
		LeadID: lead.ID,
		Status: domain.LeadWon,
	}))

	instances := f.instancesFor(t, lead.ID.String())
	require.Len(t, instances, 1)
	assert.Equal(t, "thanks", instances[0].WorkflowID)
}

func TestHandleLeadEventUnknownLead(t *testing.T) {
	f := newFixture(t, false)
	err := f.leads.HandleLeadEvent(context.Background(), domain.LeadEvent{Kind: domain.LeadCreated})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnrollLead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.addWorkflow(t, &domain.WorkflowDefinition{ID: "manual", Name: "Manual", Trigger: domain.TriggerFormSubmit, Enabled: true})

	lead := domain.NewLead("Jane Doe", "jane@example.com", "", "", "", domain.LeadSourceWebsite)
	require.NoError(t, f.store.Leads().Create(ctx, lead))

	instance, err := f.leads.EnrollLead(ctx, lead.ID, "manual")
	require.NoError(t, err)
	require.NotNil(t, instance)
	assert.Equal(t, lead.ID.String(), instance.ContactID)
}
