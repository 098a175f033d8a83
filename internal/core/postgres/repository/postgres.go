package repository

import (
	"context"
	"fmt"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories bundles every gorm-backed store over one connection.
type Repositories struct {
	DB        *gorm.DB
	Workflows ports.WorkflowRepository
	Instances ports.InstanceRepository
	Templates ports.TemplateRepository
	Logs      ports.CommunicationLogRepository
	Leads     ports.LeadRepository
}

// Open connects to Postgres and pings it.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table and index.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&domain.WorkflowDefinition{},
		&domain.WorkflowInstance{},
		&domain.EmailTemplate{},
		&domain.SMSTemplate{},
		&domain.Setting{},
		&domain.CommunicationLogEntry{},
		&domain.Lead{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Workflows: NewWorkflowRepository(db),
		Instances: NewInstanceRepository(db),
		Templates: NewTemplateRepository(db),
		Logs:      NewCommunicationLogRepository(db),
		Leads:     NewLeadRepository(db),
	}
}

func (r *Repositories) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
