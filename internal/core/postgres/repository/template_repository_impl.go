package repository

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new instance of TemplateRepository
func NewTemplateRepository(db *gorm.DB) ports.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetEmailTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	var template domain.EmailTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("email template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email template %s: %w", id, err)
	}
	return &template, nil
}

func (r *templateRepository) GetLegacyEmailTemplate(ctx context.Context, id string) (string, error) {
	var setting domain.Setting
	err := r.db.WithContext(ctx).Where("key = ?", domain.LegacyEmailTemplatesKey).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("legacy email template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get legacy email templates: %w", err)
	}

	html, ok := setting.Values.Data()[id]
	if !ok || html == "" {
		return "", fmt.Errorf("legacy email template %s: %w", id, domain.ErrNotFound)
	}
	return html, nil
}

func (r *templateRepository) GetSMSTemplate(ctx context.Context, id string) (*domain.SMSTemplate, error) {
	var template domain.SMSTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sms template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sms template %s: %w", id, err)
	}
	return &template, nil
}

// SaveEmailTemplate upserts by id.
func (r *templateRepository) SaveEmailTemplate(ctx context.Context, template *domain.EmailTemplate) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(template).Error
	if err != nil {
		return fmt.Errorf("save email template %s: %w", template.ID, err)
	}
	return nil
}

// SaveSMSTemplate upserts by id.
func (r *templateRepository) SaveSMSTemplate(ctx context.Context, template *domain.SMSTemplate) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(template).Error
	if err != nil {
		return fmt.Errorf("save sms template %s: %w", template.ID, err)
	}
	return nil
}

func (r *templateRepository) ListEmailTemplates(ctx context.Context) ([]*domain.EmailTemplate, error) {
	var templates []*domain.EmailTemplate
	if err := r.db.WithContext(ctx).Order("category, id").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) ListSMSTemplates(ctx context.Context) ([]*domain.SMSTemplate, error) {
	var templates []*domain.SMSTemplate
	if err := r.db.WithContext(ctx).Order("category, id").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list sms templates: %w", err)
	}
	return templates, nil
}
