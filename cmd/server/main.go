package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow/internal/api/handler"
	"leadflow/internal/config"
	"leadflow/internal/coordinator"
	"leadflow/internal/logging"
	"leadflow/internal/messaging"
	"leadflow/internal/scheduler"
	"leadflow/internal/seed"
	"leadflow/internal/service"
	"leadflow/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "leadflow",
		Usage: "Lead nurture workflow engine",
		Flags: config.Flags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg := config.FromCommand(cmd)
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return ctx, cfg.Validate()
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, lead workers and the sweep schedule",
				Action: serve,
			},
			{
				Name:   "sweep",
				Usage:  "Run a single scheduler sweep and exit",
				Action: sweepOnce,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Upsert the default workflows and templates",
				Action: seedDefaults,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("leadflow exited", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)
	logger := logging.WithModule("server")

	b, err := openBackend(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer b.Close()

	// The in-process store starts empty on every boot.
	if cfg.UsesMemoryStore() {
		if err := applySeed(ctx, b); err != nil {
			return err
		}
	}

	gateway, err := newGateway(cfg, b)
	if err != nil {
		return err
	}

	enrollment := service.NewEnrollmentService(b.workflows, b.instances, b.bus, service.EnrollmentOptions{
		Dedup: cfg.DedupEnrollments,
	})
	leads := service.NewLeadService(b.leads, b.workflows, b.queue, enrollment, cfg.Location())

	runner := scheduler.NewRunner(newScheduler(cfg, b, gateway), cfg.SweepSchedule)
	if err := runner.Start(ctx); err != nil {
		return err
	}
	defer runner.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.Handlers{
		Workflows: handler.NewWorkflowHandler(b.workflows, b.instances, leads),
		Leads:     handler.NewLeadHandler(leads, b.leads),
		Templates: handler.NewTemplateHandler(b.templates, b.logs, gateway),
		Webhooks:  handler.NewWebhookHandler(leads),
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	leadWorker := worker.NewWorker(b.queue, leads)
	leadWorker.StartPool(gctx, cfg.LeadWorkers)

	g.Go(func() error {
		return coordinator.NewCoordinator(b.bus).Start(gctx)
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	leadWorker.Wait()
	return err
}

func sweepOnce(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)

	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	gateway, err := newGateway(cfg, b)
	if err != nil {
		return err
	}

	result, err := newScheduler(cfg, b, gateway).Sweep(ctx)
	if err != nil {
		return err
	}
	logging.WithModule("server").Info("sweep finished",
		"due", result.Due,
		"advanced", result.Advanced,
		"completed", result.Completed,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"errors", result.Errors,
		"skipped", result.Skipped)
	return nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)
	if cfg.UsesMemoryStore() {
		return errors.New("migrate needs --database-url to point at Postgres")
	}

	b, err := openBackend(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer b.Close()

	logging.WithModule("server").Info("schema is up to date")
	return nil
}

func seedDefaults(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)
	if cfg.UsesMemoryStore() {
		return errors.New("seed needs --database-url to point at Postgres")
	}

	b, err := openBackend(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer b.Close()

	return applySeed(ctx, b)
}

func applySeed(ctx context.Context, b *backend) error {
	data, err := seed.Default()
	if err != nil {
		return err
	}
	summary, err := data.Apply(ctx, b.workflows, b.templates)
	if err != nil {
		return err
	}
	logging.WithModule("seed").Info("seed data applied",
		"workflows", summary.Workflows,
		"email_templates", summary.EmailTemplates,
		"sms_templates", summary.SMSTemplates)
	return nil
}

func newScheduler(cfg config.Config, b *backend, gateway *messaging.Gateway) *scheduler.Scheduler {
	return scheduler.New(b.workflows, b.instances, b.bus, scheduler.NewStepRegistry(gateway), scheduler.Config{
		BatchSize:      cfg.SweepBatchSize,
		Concurrency:    cfg.SweepConcurrency,
		ClaimLease:     cfg.ClaimLease,
		DefaultService: cfg.DefaultService,
	})
}
