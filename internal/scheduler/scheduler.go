// Package scheduler advances due workflow instances one step per sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"
	"leadflow/internal/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultClaimLease = 5 * time.Minute
	DefaultBatchSize  = 500
)

type Config struct {
	// BatchSize caps how many due instances one sweep picks up.
	BatchSize int
	// Concurrency caps in-flight instances per sweep; 0 means unbounded.
	Concurrency int
	// ClaimLease is how long a claimed instance stays invisible to other
	// sweeps. An instance whose sweep dies mid-step is due again after it.
	ClaimLease     time.Duration
	DefaultService string
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Due       int
	Advanced  int
	Completed int
	Failed    int
	Conflicts int
	Errors    int
	// Skipped counts due instances left unclaimed because ctx was done.
	Skipped   int
}

type outcome int

const (
	outcomeAdvanced outcome = iota
	outcomeCompleted
	outcomeFailed
	outcomeConflict
	outcomeSkipped
	outcomeError
)

type Scheduler struct {
	workflows ports.WorkflowRepository
	instances ports.InstanceRepository
	bus       ports.EventBus
	registry  StepRegistry
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

func New(
	workflows ports.WorkflowRepository,
	instances ports.InstanceRepository,
	bus ports.EventBus,
	registry StepRegistry,
	cfg Config,
) *Scheduler {
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = DefaultClaimLease
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Scheduler{
		workflows: workflows,
		instances: instances,
		bus:       bus,
		registry:  registry,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logging.WithModule("scheduler"),
	}
}

// WithClock replaces the scheduler's time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Sweep processes every due instance concurrently. Per-instance failures
// are logged and counted; only a failed due-query is returned. Once ctx is
// done no further instances are claimed, and those already claimed finish.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()
	metrics.SweepsTotal.Inc()

	tick := s.now()
	due, err := s.instances.FindDue(ctx, tick, s.cfg.BatchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find due instances: %w", err)
	}
	metrics.DueInstances.Set(float64(len(due)))

	result := SweepResult{Due: len(due)}
	if len(due) == 0 {
		return result, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}

	// Cancelling ctx stops new claims only. A claimed instance always runs
	// to its final Save so the send and its log entry are not cut short.
	work := context.WithoutCancel(ctx)
	for _, instance := range due {
		g.Go(func() error {
			o := outcomeSkipped
			if ctx.Err() == nil {
				o = s.safeProcess(work, instance)
			}

			mu.Lock()
			defer mu.Unlock()
			switch o {
			case outcomeAdvanced:
				result.Advanced++
			case outcomeCompleted:
				result.Completed++
			case outcomeFailed:
				result.Failed++
			case outcomeConflict:
				result.Conflicts++
			case outcomeSkipped:
				result.Skipped++
			default:
				result.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("sweep finished",
		"due", result.Due,
		"advanced", result.Advanced,
		"completed", result.Completed,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"errors", result.Errors,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Scheduler) safeProcess(ctx context.Context, instance *domain.WorkflowInstance) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("instance processing panicked", "instance_id", instance.ID, "panic", r)
			o = outcomeError
		}
	}()
	return s.processInstance(ctx, instance)
}

// processInstance claims the instance and advances it by exactly one step.
func (s *Scheduler) processInstance(ctx context.Context, instance *domain.WorkflowInstance) outcome {
	logger := s.logger.With("instance_id", instance.ID, "workflow_id", instance.WorkflowID)

	// 1. CLAIM: Compare-and-swap on version, lease the due time forward
	now := s.now()
	if err := s.instances.Claim(ctx, instance.ID, instance.Version, now.Add(s.cfg.ClaimLease)); err != nil {
		if errors.Is(err, domain.ErrClaimConflict) {
			metrics.ClaimConflicts.Inc()
			logger.Debug("instance claimed elsewhere, skipping")
			return outcomeConflict
		}
		logger.Error("failed to claim instance", "error", err)
		return outcomeError
	}
	// Update in-memory version to match the store after claim
	instance.Version++
	claimed := instance.Version

	// 2. FETCH: The definition is read fresh on every step
	workflow, err := s.workflows.GetByID(ctx, instance.WorkflowID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = instance.Fail(fmt.Sprintf("workflow %s not found", instance.WorkflowID), s.now())
		return s.save(ctx, logger, instance, claimed, outcomeFailed)
	case err != nil:
		// Left claimed; the lease makes it due again.
		logger.Error("failed to load workflow", "error", err)
		return outcomeError
	}

	// 3. LOCATE: Running past the last step is the success path
	step, ok := workflow.StepAt(instance.CurrentStepIndex)
	if !ok {
		_ = instance.Complete(s.now())
		return s.save(ctx, logger, instance, claimed, outcomeCompleted)
	}

	// 4. EXECUTE
	vars := instance.TemplateVariables(s.cfg.DefaultService)
	result := s.registry.Execute(ctx, instance, step, vars)
	executedAt := s.now()
	instance.RecordStep(instance.CurrentStepIndex, step.Type, executedAt, result)
	metrics.StepExecutions.WithLabelValues(string(step.Type), stepResultLabel(result)).Inc()

	logger = logger.With("step_index", instance.CurrentStepIndex, "step_type", step.Type)
	if !result.Success {
		logger.Warn("step failed", "error", result.Error)
		_ = instance.Fail(result.Error, executedAt)
		return s.save(ctx, logger, instance, claimed, outcomeFailed)
	}

	// 5. ADVANCE: The next step's own delay decides when it is due
	nextIndex := instance.CurrentStepIndex + 1
	next, ok := workflow.StepAt(nextIndex)
	if !ok {
		instance.CurrentStepIndex = nextIndex
		_ = instance.Complete(executedAt)
		return s.save(ctx, logger, instance, claimed, outcomeCompleted)
	}
	if err := instance.Advance(nextIndex, executedAt.Add(next.Delay())); err != nil {
		logger.Error("failed to advance instance", "error", err)
		return outcomeError
	}
	return s.save(ctx, logger, instance, claimed, outcomeAdvanced)
}

func (s *Scheduler) save(ctx context.Context, logger *slog.Logger, instance *domain.WorkflowInstance, claimed int, o outcome) outcome {
	if err := s.instances.Save(ctx, instance, claimed); err != nil {
		if errors.Is(err, domain.ErrClaimConflict) {
			// Cancelled by a booking while the step ran
			metrics.ClaimConflicts.Inc()
			logger.Info("instance changed while processing, dropping result")
			return outcomeConflict
		}
		logger.Error("failed to save instance", "error", err)
		return outcomeError
	}

	metrics.Transitions.WithLabelValues(string(instance.Status)).Inc()
	if s.bus != nil {
		event := domain.NewInstanceEvent(instance, s.now())
		if err := s.bus.PublishInstanceEvent(ctx, event); err != nil {
			logger.Warn("failed to publish instance event", "error", err)
		}
	}

	switch instance.Status {
	case domain.InstanceCompleted:
		logger.Info("instance completed")
	case domain.InstanceError:
		logger.Warn("instance failed", "error", instance.Error)
	default:
		logger.Debug("instance advanced", "next_step_index", instance.CurrentStepIndex, "next_execution_at", instance.NextExecutionAt)
	}
	return o
}

func stepResultLabel(o domain.Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Success:
		return "success"
	default:
		return "failure"
	}
}
