package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository creates a new instance of InstanceRepository
func NewInstanceRepository(db *gorm.DB) ports.InstanceRepository {
	return &instanceRepository{db: db}
}

func (r *instanceRepository) Create(ctx context.Context, instance *domain.WorkflowInstance) error {
	if err := r.db.WithContext(ctx).Create(instance).Error; err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	return nil
}

func (r *instanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowInstance, error) {
	var instance domain.WorkflowInstance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	return &instance, nil
}

// FindDue is served by idx_instance_due (status, next_execution_at).
func (r *instanceRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.WorkflowInstance, error) {
	var instances []*domain.WorkflowInstance
	query := r.db.WithContext(ctx).
		Where("status = ? AND next_execution_at <= ?", domain.InstanceActive, now).
		Order("next_execution_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("find due instances: %w", err)
	}
	return instances, nil
}

func (r *instanceRepository) FindActiveByEmail(ctx context.Context, email string) ([]*domain.WorkflowInstance, error) {
	var instances []*domain.WorkflowInstance
	err := r.db.WithContext(ctx).
		Where("contact_email = ? AND status = ?", email, domain.InstanceActive).
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("find active instances for %s: %w", email, err)
	}
	return instances, nil
}

func (r *instanceRepository) FindByContact(ctx context.Context, contactID string) ([]*domain.WorkflowInstance, error) {
	var instances []*domain.WorkflowInstance
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at DESC").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("find instances for contact %s: %w", contactID, err)
	}
	return instances, nil
}

func (r *instanceRepository) HasActive(ctx context.Context, contactID, workflowID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.WorkflowInstance{}).
		Where("contact_id = ? AND workflow_id = ? AND status = ?", contactID, workflowID, domain.InstanceActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count active instances: %w", err)
	}
	return count > 0, nil
}

func (r *instanceRepository) CountActiveByWorkflow(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		WorkflowID string
		Count      int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.WorkflowInstance{}).
		Select("workflow_id, count(*) AS count").
		Where("status = ?", domain.InstanceActive).
		Group("workflow_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count active instances by workflow: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.WorkflowID] = row.Count
	}
	return counts, nil
}

// Claim pushes next_execution_at out to leaseUntil so overlapping sweeps no
// longer see the instance as due, and bumps the version so a sweep that read
// it before the claim loses the compare-and-swap.
func (r *instanceRepository) Claim(ctx context.Context, id uuid.UUID, currentVersion int, leaseUntil time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowInstance{}).
		Where("id = ? AND version = ? AND status = ?", id, currentVersion, domain.InstanceActive).
		Updates(map[string]interface{}{
			"version":           currentVersion + 1,
			"next_execution_at": leaseUntil,
		})

	if result.Error != nil {
		return fmt.Errorf("claim instance %s: %w", id, result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}

	return nil
}

func (r *instanceRepository) Save(ctx context.Context, instance *domain.WorkflowInstance, claimedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowInstance{}).
		Where("id = ? AND version = ? AND status = ?", instance.ID, claimedVersion, domain.InstanceActive).
		Updates(map[string]interface{}{
			"status":             instance.Status,
			"current_step_index": instance.CurrentStepIndex,
			"next_execution_at":  instance.NextExecutionAt,
			"history":            instance.History,
			"error":              instance.Error,
			"completed_at":       instance.CompletedAt,
			"updated_at":         instance.UpdatedAt,
			"version":            claimedVersion + 1,
		})

	if result.Error != nil {
		return fmt.Errorf("save instance %s: %w", instance.ID, result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}

	instance.Version = claimedVersion + 1
	return nil
}

// CancelBatch runs every update in one transaction; any failure rolls the
// whole batch back.
func (r *instanceRepository) CancelBatch(ctx context.Context, ids []uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error) {
	var cancelled []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Model(&domain.WorkflowInstance{}).
				Where("id = ? AND status = ?", id, domain.InstanceActive).
				Updates(map[string]interface{}{
					"status":              domain.InstanceCancelled,
					"cancellation_reason": reason,
					"cancelled_at":        at,
					"next_execution_at":   nil,
					"updated_at":          at,
					"version":             gorm.Expr("version + 1"),
				})
			if result.Error != nil {
				return fmt.Errorf("cancel instance %s: %w", id, result.Error)
			}
			if result.RowsAffected > 0 {
				cancelled = append(cancelled, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
