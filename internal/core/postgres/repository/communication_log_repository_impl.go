package repository

import (
	"context"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type communicationLogRepository struct {
	db *gorm.DB
}

// NewCommunicationLogRepository creates a new instance of CommunicationLogRepository
func NewCommunicationLogRepository(db *gorm.DB) ports.CommunicationLogRepository {
	return &communicationLogRepository{db: db}
}

func (r *communicationLogRepository) Create(ctx context.Context, entry *domain.CommunicationLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create communication log: %w", err)
	}
	return nil
}

func (r *communicationLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CommunicationLogEntry, error) {
	var entries []*domain.CommunicationLogEntry
	query := r.db.WithContext(ctx).Order("logged_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list communication logs: %w", err)
	}
	return entries, nil
}
