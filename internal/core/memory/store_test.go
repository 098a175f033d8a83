package memory

import (
	"context"
	"testing"
	"time"

	"leadflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

func addInstance(t *testing.T, store *Store, email string, due time.Time) *domain.WorkflowInstance {
	t.Helper()
	instance := domain.NewInstance("wf", domain.ContactSnapshot{ID: uuid.NewString(), Email: email}, nil, due)
	require.NoError(t, store.Instances().Create(context.Background(), instance))
	return instance
}

func TestClaimAndSave(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	instance := addInstance(t, store, "a@example.com", now)

	require.NoError(t, store.Instances().Claim(ctx, instance.ID, 1, now.Add(5*time.Minute)))
	assert.ErrorIs(t, store.Instances().Claim(ctx, instance.ID, 1, now.Add(5*time.Minute)), domain.ErrClaimConflict)

	due, err := store.Instances().FindDue(ctx, now.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, instance.Advance(1, now.Add(time.Hour)))
	require.NoError(t, store.Instances().Save(ctx, instance, 2))
	assert.Equal(t, 3, instance.Version)
	assert.ErrorIs(t, store.Instances().Save(ctx, instance, 2), domain.ErrClaimConflict)

	// Callers never share memory with the store.
	instance.CurrentStepIndex = 99
	stored, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentStepIndex)
}

func TestFindDueOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	late := addInstance(t, store, "late@example.com", now.Add(-time.Minute))
	early := addInstance(t, store, "early@example.com", now.Add(-time.Hour))
	addInstance(t, store, "future@example.com", now.Add(time.Hour))

	due, err := store.Instances().FindDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	due, err = store.Instances().FindDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, early.ID, due[0].ID)
}

func TestCancelBatch(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a := addInstance(t, store, "jane@example.com", now)
	b := addInstance(t, store, "jane@example.com", now.Add(time.Hour))
	done := addInstance(t, store, "jane@example.com", now)
	require.NoError(t, store.Instances().Claim(ctx, done.ID, 1, now))
	require.NoError(t, done.Complete(now))
	require.NoError(t, store.Instances().Save(ctx, done, 2))

	cancelled, err := store.Instances().CancelBatch(ctx, []uuid.UUID{a.ID, b.ID, done.ID, uuid.New()}, "New booking", now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, cancelled)

	active, err := store.Instances().FindActiveByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, active)

	stored, err := store.Instances().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceCancelled, stored.Status)
	assert.Equal(t, "New booking", stored.CancellationReason)
	assert.Equal(t, 2, stored.Version)

	stored, err = store.Instances().GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceCompleted, stored.Status)
}

func TestListRecentLogs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, to := range []string{"a", "b", "c"} {
		require.NoError(t, store.Logs().Create(ctx, &domain.CommunicationLogEntry{Recipient: to}))
	}

	entries, err := store.Logs().ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].Recipient)
	assert.Equal(t, "b", entries[1].Recipient)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)

	entries, err = store.Logs().ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestWorkflowCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	wf := &domain.WorkflowDefinition{ID: "wf", Trigger: domain.TriggerFormSubmit}

	require.NoError(t, store.Workflows().Create(ctx, wf))
	assert.ErrorIs(t, store.Workflows().Create(ctx, wf), domain.ErrAlreadyExists)
	assert.ErrorIs(t, store.Workflows().Update(ctx, &domain.WorkflowDefinition{ID: "other"}), domain.ErrNotFound)
}

func TestLegacyEmailTemplate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SetLegacyEmailTemplate("old", "<p>Old</p>")

	html, err := store.Templates().GetLegacyEmailTemplate(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "<p>Old</p>", html)

	_, err = store.Templates().GetLegacyEmailTemplate(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueueAndEventBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewQueue(2)
	event := domain.LeadEvent{Kind: domain.LeadCreated, LeadID: uuid.New()}
	require.NoError(t, queue.Push(ctx, event))
	assert.Equal(t, 1, queue.Len())
	got, err := queue.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, event, got)

	bus := NewEventBus()
	events, err := bus.SubscribeToEvents(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.PublishInstanceEvent(ctx, domain.InstanceEvent{WorkflowID: "wf"}))
	assert.Equal(t, "wf", (<-events).WorkflowID)

	cancel()
	_, err = queue.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, time.Second, 10*time.Millisecond)
}
