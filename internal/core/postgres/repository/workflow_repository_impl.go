package repository

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new instance of WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) ports.WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, workflow *domain.WorkflowDefinition) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("workflow %s: %w", workflow.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create workflow %s: %w", workflow.ID, err)
	}
	return nil
}

func (r *workflowRepository) Update(ctx context.Context, workflow *domain.WorkflowDefinition) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowDefinition{}).
		Where("id = ?", workflow.ID).
		Select("name", "trigger", "trigger_status", "enabled", "category", "steps", "updated_at").
		Updates(workflow)
	if result.Error != nil {
		return fmt.Errorf("update workflow %s: %w", workflow.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", workflow.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.WorkflowDefinition{})
	if result.Error != nil {
		return fmt.Errorf("delete workflow %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *workflowRepository) GetByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	var workflow domain.WorkflowDefinition
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&workflow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return &workflow, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]*domain.WorkflowDefinition, error) {
	var workflows []*domain.WorkflowDefinition
	if err := r.db.WithContext(ctx).Order("category, name").Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return workflows, nil
}

func (r *workflowRepository) ListEnabledByTrigger(ctx context.Context, trigger domain.TriggerType) ([]*domain.WorkflowDefinition, error) {
	var workflows []*domain.WorkflowDefinition
	err := r.db.WithContext(ctx).
		Where("trigger = ? AND enabled = ?", trigger, true).
		Find(&workflows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s workflows: %w", trigger, err)
	}
	return workflows, nil
}
