// Package config maps command-line flags and their environment variables
// onto a validated Config.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
)

// MemoryDatabaseURL selects the in-process store.
const MemoryDatabaseURL = "memory://"

type Config struct {
	DatabaseURL string `validate:"required"`
	RedisAddr   string `validate:"omitempty,hostname_port"`
	Port        int    `validate:"min=1,max=65535"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=text json"`

	SweepSchedule    string        `validate:"required"`
	SweepConcurrency int           `validate:"min=0"`
	SweepBatchSize   int           `validate:"min=1"`
	ClaimLease       time.Duration `validate:"min=1s"`
	LeadWorkers      int           `validate:"min=1"`
	DedupEnrollments bool

	ResendAPIKey   string
	EmailFrom      string `validate:"required_with=ResendAPIKey"`
	PlivoAuthID    string `validate:"required_with=PlivoAuthToken"`
	PlivoAuthToken string `validate:"required_with=PlivoAuthID"`
	PlivoFrom      string `validate:"required_with=PlivoAuthID"`

	CompanyName    string `validate:"required"`
	DefaultService string
	Timezone       string `validate:"required,timezone"`
}

func (c Config) UsesMemoryStore() bool {
	return c.DatabaseURL == MemoryDatabaseURL || strings.HasPrefix(c.DatabaseURL, "memory:")
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Flags are shared by every subcommand.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Postgres connection URL, or memory:// for an in-process store",
			Value:   MemoryDatabaseURL,
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the lead queue and event bus; empty keeps both in-process",
			Sources: cli.EnvVars("REDIS_ADDR"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the HTTP server on",
			Value:   8080,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "sweep-schedule",
			Usage:   "Cron spec for the scheduler sweep",
			Value:   "@every 1m",
			Sources: cli.EnvVars("SWEEP_SCHEDULE"),
		},
		&cli.IntFlag{
			Name:    "sweep-concurrency",
			Usage:   "Instances processed in parallel per sweep (0 = unbounded)",
			Value:   0,
			Sources: cli.EnvVars("SWEEP_CONCURRENCY"),
		},
		&cli.IntFlag{
			Name:    "sweep-batch-size",
			Usage:   "Maximum due instances picked up per sweep",
			Value:   500,
			Sources: cli.EnvVars("SWEEP_BATCH_SIZE"),
		},
		&cli.DurationFlag{
			Name:    "claim-lease",
			Usage:   "How long a claimed instance is hidden from other sweeps",
			Value:   5 * time.Minute,
			Sources: cli.EnvVars("CLAIM_LEASE"),
		},
		&cli.IntFlag{
			Name:    "lead-workers",
			Usage:   "Concurrent lead event workers",
			Value:   4,
			Sources: cli.EnvVars("LEAD_WORKERS"),
		},
		&cli.BoolFlag{
			Name:    "dedup-enrollments",
			Usage:   "Skip enrollment when the contact already has an active instance of the workflow",
			Sources: cli.EnvVars("DEDUP_ENROLLMENTS"),
		},
		&cli.StringFlag{
			Name:    "resend-api-key",
			Usage:   "Resend API key; email sends fail when unset",
			Sources: cli.EnvVars("RESEND_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "email-from",
			Usage:   "Sender address for outgoing email",
			Sources: cli.EnvVars("EMAIL_FROM"),
		},
		&cli.StringFlag{
			Name:    "plivo-auth-id",
			Usage:   "Plivo auth id; SMS sends fail when unset",
			Sources: cli.EnvVars("PLIVO_AUTH_ID"),
		},
		&cli.StringFlag{
			Name:    "plivo-auth-token",
			Usage:   "Plivo auth token",
			Sources: cli.EnvVars("PLIVO_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "plivo-from",
			Usage:   "Sender number for outgoing SMS",
			Sources: cli.EnvVars("PLIVO_FROM"),
		},
		&cli.StringFlag{
			Name:    "company-name",
			Usage:   "Company name used in default email subjects",
			Value:   "Our Team",
			Sources: cli.EnvVars("COMPANY_NAME"),
		},
		&cli.StringFlag{
			Name:    "default-service",
			Usage:   "Value of {{service}} for contacts without one",
			Sources: cli.EnvVars("DEFAULT_SERVICE"),
		},
		&cli.StringFlag{
			Name:    "timezone",
			Usage:   "IANA zone appointment times are rendered in",
			Value:   "UTC",
			Sources: cli.EnvVars("TZ_APPOINTMENTS"),
		},
	}
}

// FromCommand reads every flag from Flags.
func FromCommand(cmd *cli.Command) Config {
	return Config{
		DatabaseURL:      cmd.String("database-url"),
		RedisAddr:        cmd.String("redis-addr"),
		Port:             cmd.Int("port"),
		LogLevel:         cmd.String("log-level"),
		LogFormat:        cmd.String("log-format"),
		SweepSchedule:    cmd.String("sweep-schedule"),
		SweepConcurrency: cmd.Int("sweep-concurrency"),
		SweepBatchSize:   cmd.Int("sweep-batch-size"),
		ClaimLease:       cmd.Duration("claim-lease"),
		LeadWorkers:      cmd.Int("lead-workers"),
		DedupEnrollments: cmd.Bool("dedup-enrollments"),
		ResendAPIKey:     cmd.String("resend-api-key"),
		EmailFrom:        cmd.String("email-from"),
		PlivoAuthID:      cmd.String("plivo-auth-id"),
		PlivoAuthToken:   cmd.String("plivo-auth-token"),
		PlivoFrom:        cmd.String("plivo-from"),
		CompanyName:      cmd.String("company-name"),
		DefaultService:   cmd.String("default-service"),
		Timezone:         cmd.String("timezone"),
	}
}
