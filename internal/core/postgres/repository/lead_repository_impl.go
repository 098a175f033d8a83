package repository

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new instance of LeadRepository
func NewLeadRepository(db *gorm.DB) ports.LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *leadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %s: %w", id, err)
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context, limit int) ([]*domain.Lead, error) {
	var leads []*domain.Lead
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// UpdateStatus locks the row so the returned previous status is exact.
func (r *leadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (domain.LeadStatus, error) {
	var previous domain.LeadStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead domain.Lead
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&lead).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		previous = lead.Status
		return tx.Model(&domain.Lead{}).Where("id = ?", id).Update("status", status).Error
	})
	if err != nil {
		return "", fmt.Errorf("update lead %s status: %w", id, err)
	}
	return previous, nil
}

func (r *leadRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	result := r.db.WithContext(ctx).Model(&domain.Lead{}).Where("id = ?", id).Update("notes", notes)
	if result.Error != nil {
		return fmt.Errorf("update lead %s notes: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
