package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"leadflow/internal/logging"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 1m"

// Runner fires Sweep on a cron schedule. A sweep that overruns its slot
// makes the next tick skip rather than overlap.
type Runner struct {
	cron      *cron.Cron
	scheduler *Scheduler
	schedule  string
	logger    *slog.Logger
}

func NewRunner(s *Scheduler, schedule string) *Runner {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	logger := logging.WithModule("cron")
	cl := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(
				cron.SkipIfStillRunning(cl),
				cron.Recover(cl),
			),
		),
		scheduler: s,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the sweep job and starts the cron loop. The job runs
// until ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.scheduler.Sweep(ctx); err != nil {
			r.logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	r.logger.Info("sweep scheduled", "schedule", r.schedule)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to return.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
