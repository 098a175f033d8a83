package main

import (
	"context"
	"errors"

	"leadflow/internal/config"
	"leadflow/internal/core/memory"
	"leadflow/internal/core/ports"
	"leadflow/internal/core/postgres/repository"
	"leadflow/internal/infrastructure/plivo"
	"leadflow/internal/infrastructure/redis"
	"leadflow/internal/infrastructure/resend"
	"leadflow/internal/logging"
	"leadflow/internal/messaging"
)

const memoryQueueCapacity = 1024

// backend is the set of stores plus the lead queue and event bus the
// commands run against.
type backend struct {
	workflows ports.WorkflowRepository
	instances ports.InstanceRepository
	templates ports.TemplateRepository
	logs      ports.CommunicationLogRepository
	leads     ports.LeadRepository
	queue     ports.LeadQueue
	bus       ports.EventBus

	closers []func() error
}

// openBackend picks Postgres or the in-process store from the database URL,
// and Redis or in-process channels from the Redis address.
func openBackend(ctx context.Context, cfg config.Config, migrate bool) (*backend, error) {
	logger := logging.WithModule("server")
	b := &backend{}

	if cfg.UsesMemoryStore() {
		logger.Warn("using the in-process store; nothing survives a restart")
		store := memory.NewStore()
		b.workflows = store.Workflows()
		b.instances = store.Instances()
		b.templates = store.Templates()
		b.logs = store.Logs()
		b.leads = store.Leads()
	} else {
		db, err := repository.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repos := repository.NewRepositories(db)
		b.closers = append(b.closers, repos.Close)

		if migrate {
			if err := repository.Migrate(ctx, db); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.workflows = repos.Workflows
		b.instances = repos.Instances
		b.templates = repos.Templates
		b.logs = repos.Logs
		b.leads = repos.Leads
	}

	if cfg.RedisAddr == "" {
		b.queue = memory.NewQueue(memoryQueueCapacity)
		b.bus = memory.NewEventBus()
		return b, nil
	}

	client, err := redis.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, client.Close)
	b.queue = redis.NewRedisQueue(client)
	b.bus = redis.NewRedisEventBus(client)
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return b, nil
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

func newGateway(cfg config.Config, b *backend) (*messaging.Gateway, error) {
	logger := logging.WithModule("server")

	var email ports.EmailSender
	if s := resend.NewSender(cfg.ResendAPIKey); s != nil {
		email = s
	} else {
		logger.Warn("no email provider configured; email sends will fail")
	}

	var sms ports.SMSSender
	s, err := plivo.NewSender(cfg.PlivoAuthID, cfg.PlivoAuthToken)
	if err != nil {
		return nil, err
	}
	if s != nil {
		sms = s
	} else {
		logger.Warn("no sms provider configured; sms sends will fail")
	}

	return messaging.NewGateway(b.templates, b.logs, email, sms, messaging.Config{
		EmailFrom:   cfg.EmailFrom,
		SMSFrom:     cfg.PlivoFrom,
		CompanyName: cfg.CompanyName,
	}), nil
}
