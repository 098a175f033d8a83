// Package memory provides goroutine-safe, map-backed implementations of the
// store, queue and event bus ports. It backs `--database-url memory://` and
// the unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Store struct {
	mu        sync.RWMutex
	workflows map[string]*domain.WorkflowDefinition
	instances map[uuid.UUID]*domain.WorkflowInstance
	email     map[string]*domain.EmailTemplate
	sms       map[string]*domain.SMSTemplate
	legacy    map[string]string
	logs      []*domain.CommunicationLogEntry
	leads     map[uuid.UUID]*domain.Lead
}

func NewStore() *Store {
	return &Store{
		workflows: make(map[string]*domain.WorkflowDefinition),
		instances: make(map[uuid.UUID]*domain.WorkflowInstance),
		email:     make(map[string]*domain.EmailTemplate),
		sms:       make(map[string]*domain.SMSTemplate),
		legacy:    make(map[string]string),
		leads:     make(map[uuid.UUID]*domain.Lead),
	}
}

func (s *Store) Workflows() ports.WorkflowRepository {
	return workflowStore{s}
}

func (s *Store) Instances() ports.InstanceRepository {
	return instanceStore{s}
}

func (s *Store) Templates() ports.TemplateRepository {
	return templateStore{s}
}

func (s *Store) Logs() ports.CommunicationLogRepository {
	return logStore{s}
}

func (s *Store) Leads() ports.LeadRepository {
	return leadStore{s}
}

// SetLegacyEmailTemplate stores html under the legacy settings map.
func (s *Store) SetLegacyEmailTemplate(id, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacy[id] = html
}

func copyInstance(in *domain.WorkflowInstance) *domain.WorkflowInstance {
	out := *in
	out.History = append(datatypes.JSONSlice[domain.HistoryEntry]{}, in.History...)
	if in.NextExecutionAt != nil {
		t := *in.NextExecutionAt
		out.NextExecutionAt = &t
	}
	return &out
}

func copyWorkflow(in *domain.WorkflowDefinition) *domain.WorkflowDefinition {
	out := *in
	out.Steps = append(datatypes.JSONSlice[domain.Step]{}, in.Steps...)
	return &out
}

// --- workflows ---

type workflowStore struct{ *Store }

func (s workflowStore) Create(_ context.Context, workflow *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}
	if _, exists := s.workflows[workflow.ID]; exists {
		return fmt.Errorf("workflow %s: %w", workflow.ID, domain.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	workflow.CreatedAt, workflow.UpdatedAt = now, now
	s.workflows[workflow.ID] = copyWorkflow(workflow)
	return nil
}

func (s workflowStore) Update(_ context.Context, workflow *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.workflows[workflow.ID]
	if !ok {
		return fmt.Errorf("workflow %s: %w", workflow.ID, domain.ErrNotFound)
	}
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()
	s.workflows[workflow.ID] = copyWorkflow(workflow)
	return nil
}

func (s workflowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	delete(s.workflows, id)
	return nil
}

func (s workflowStore) GetByID(_ context.Context, id string) (*domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflow, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	return copyWorkflow(workflow), nil
}

func (s workflowStore) List(_ context.Context) ([]*domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.WorkflowDefinition, 0, len(s.workflows))
	for _, workflow := range s.workflows {
		out = append(out, copyWorkflow(workflow))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s workflowStore) ListEnabledByTrigger(_ context.Context, trigger domain.TriggerType) ([]*domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WorkflowDefinition
	for _, workflow := range s.workflows {
		if workflow.Enabled && workflow.Trigger == trigger {
			out = append(out, copyWorkflow(workflow))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- instances ---

type instanceStore struct{ *Store }

func (s instanceStore) Create(_ context.Context, instance *domain.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[instance.ID]; exists {
		return fmt.Errorf("create instance %s: duplicate id", instance.ID)
	}
	s.instances[instance.ID] = copyInstance(instance)
	return nil
}

func (s instanceStore) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	return copyInstance(instance), nil
}

func (s instanceStore) FindDue(_ context.Context, now time.Time, limit int) ([]*domain.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WorkflowInstance
	for _, instance := range s.instances {
		if instance.IsDue(now) {
			out = append(out, copyInstance(instance))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextExecutionAt.Before(*out[j].NextExecutionAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s instanceStore) FindActiveByEmail(_ context.Context, email string) ([]*domain.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WorkflowInstance
	for _, instance := range s.instances {
		if instance.Status == domain.InstanceActive && instance.ContactEmail == email {
			out = append(out, copyInstance(instance))
		}
	}
	return out, nil
}

func (s instanceStore) FindByContact(_ context.Context, contactID string) ([]*domain.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WorkflowInstance
	for _, instance := range s.instances {
		if instance.ContactID == contactID {
			out = append(out, copyInstance(instance))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s instanceStore) HasActive(_ context.Context, contactID, workflowID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, instance := range s.instances {
		if instance.Status == domain.InstanceActive && instance.ContactID == contactID && instance.WorkflowID == workflowID {
			return true, nil
		}
	}
	return false, nil
}

func (s instanceStore) CountActiveByWorkflow(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, instance := range s.instances {
		if instance.Status == domain.InstanceActive {
			counts[instance.WorkflowID]++
		}
	}
	return counts, nil
}

func (s instanceStore) Claim(_ context.Context, id uuid.UUID, currentVersion int, leaseUntil time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	instance, ok := s.instances[id]
	if !ok || instance.Version != currentVersion || instance.Status != domain.InstanceActive {
		return domain.ErrClaimConflict
	}
	instance.Version = currentVersion + 1
	lease := leaseUntil
	instance.NextExecutionAt = &lease
	return nil
}

func (s instanceStore) Save(_ context.Context, instance *domain.WorkflowInstance, claimedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[instance.ID]
	if !ok || stored.Version != claimedVersion || stored.Status != domain.InstanceActive {
		return domain.ErrClaimConflict
	}
	instance.Version = claimedVersion + 1
	s.instances[instance.ID] = copyInstance(instance)
	return nil
}

// CancelBatch stages every change before applying any of them.
func (s instanceStore) CancelBatch(_ context.Context, ids []uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]*domain.WorkflowInstance, 0, len(ids))
	for _, id := range ids {
		stored, ok := s.instances[id]
		if !ok || stored.Status != domain.InstanceActive {
			continue
		}
		next := copyInstance(stored)
		if err := next.Cancel(reason, at); err != nil {
			return nil, fmt.Errorf("cancel instance %s: %w", id, err)
		}
		next.Version++
		staged = append(staged, next)
	}

	cancelled := make([]uuid.UUID, 0, len(staged))
	for _, instance := range staged {
		s.instances[instance.ID] = instance
		cancelled = append(cancelled, instance.ID)
	}
	return cancelled, nil
}

// --- templates ---

type templateStore struct{ *Store }

func (s templateStore) GetEmailTemplate(_ context.Context, id string) (*domain.EmailTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.email[id]
	if !ok {
		return nil, fmt.Errorf("email template %s: %w", id, domain.ErrNotFound)
	}
	out := *template
	return &out, nil
}

func (s templateStore) GetLegacyEmailTemplate(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	html, ok := s.legacy[id]
	if !ok || html == "" {
		return "", fmt.Errorf("legacy email template %s: %w", id, domain.ErrNotFound)
	}
	return html, nil
}

func (s templateStore) GetSMSTemplate(_ context.Context, id string) (*domain.SMSTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.sms[id]
	if !ok {
		return nil, fmt.Errorf("sms template %s: %w", id, domain.ErrNotFound)
	}
	out := *template
	return &out, nil
}

func (s templateStore) SaveEmailTemplate(_ context.Context, template *domain.EmailTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template.UpdatedAt = time.Now().UTC()
	stored := *template
	s.email[template.ID] = &stored
	return nil
}

func (s templateStore) SaveSMSTemplate(_ context.Context, template *domain.SMSTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template.UpdatedAt = time.Now().UTC()
	stored := *template
	s.sms[template.ID] = &stored
	return nil
}

func (s templateStore) ListEmailTemplates(_ context.Context) ([]*domain.EmailTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.EmailTemplate, 0, len(s.email))
	for _, template := range s.email {
		t := *template
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s templateStore) ListSMSTemplates(_ context.Context) ([]*domain.SMSTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.SMSTemplate, 0, len(s.sms))
	for _, template := range s.sms {
		t := *template
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- communication logs ---

type logStore struct{ *Store }

func (s logStore) Create(_ context.Context, entry *domain.CommunicationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	stored := *entry
	s.logs = append(s.logs, &stored)
	return nil
}

func (s logStore) ListRecent(_ context.Context, limit int) ([]*domain.CommunicationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CommunicationLogEntry, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		entry := *s.logs[i]
		out = append(out, &entry)
	}
	return out, nil
}

// --- leads ---

type leadStore struct{ *Store }

func (s leadStore) Create(_ context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *lead
	s.leads[lead.ID] = &stored
	return nil
}

func (s leadStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	out := *lead
	return &out, nil
}

func (s leadStore) List(_ context.Context, limit int) ([]*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		l := *lead
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s leadStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.LeadStatus) (domain.LeadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return "", fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	previous := lead.Status
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return previous, nil
}

func (s leadStore) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	lead.Notes = notes
	lead.UpdatedAt = time.Now().UTC()
	return nil
}
