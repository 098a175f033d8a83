package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"

	"github.com/google/uuid"
)

// LeadHandler turns one lead event into cancellations and enrollments.
type LeadHandler interface {
	HandleLeadEvent(ctx context.Context, event domain.LeadEvent) error
}

// popBackoff throttles the loop when the queue itself is failing.
const popBackoff = time.Second

type Worker struct {
	workerID string
	queue    ports.LeadQueue
	handler  LeadHandler
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewWorker(q ports.LeadQueue, h LeadHandler) *Worker {
	id := uuid.New().String()
	return &Worker{
		workerID: id,
		queue:    q,
		handler:  h,
		logger:   logging.WithModule("worker").With("worker_id", id),
	}
}

// ProcessNextEvent handles exactly ONE lead event. It reports false when
// nothing was popped.
func (w *Worker) ProcessNextEvent(ctx context.Context) bool {
	// 1. POP: Wait until an event is available
	event, err := w.queue.Pop(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to pop lead event", "error", err)
		}
		return false
	}

	// 2. HANDLE: Cancellation + enrollment fan-out
	logger := w.logger.With("lead_id", event.LeadID, "kind", event.Kind)
	if err := w.handler.HandleLeadEvent(ctx, event); err != nil {
		logger.Error("lead event failed", "error", err)
		return true
	}

	logger.Debug("lead event handled")
	return true
}

// StartPool launches multiple concurrent worker loops
func (w *Worker) StartPool(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	w.logger.Info("starting lead worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go func(threadID int) {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					w.logger.Debug("worker thread shutting down", "thread", threadID)
					return
				default:
					if !w.ProcessNextEvent(ctx) && ctx.Err() == nil {
						select {
						case <-time.After(popBackoff):
						case <-ctx.Done():
						}
					}
				}
			}
		}(i)
	}
}

// Wait blocks until every loop started by StartPool has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
