// Package recurrence runs the background tick that fires due schedules.
package recurrence

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
	"github.com/jasonlvhit/gocron"
)

// Worker periodically asks the schedule service for due schedules and
// dispatches them. A single worker process suffices; multiple replicas are
// safe because each schedule run is claimed optimistically before dispatch.
type Worker struct {
	scheduleService portssvc.ScheduleSvcFacade
	logger          *slog.Logger
	interval        time.Duration

	scheduler *gocron.Scheduler
	stop      chan bool
}

// NewWorker creates a recurrence worker ticking at the given interval.
func NewWorker(ss portssvc.ScheduleSvcFacade, logger *slog.Logger, interval time.Duration) *Worker {
	if interval < time.Second {
		interval = time.Second
	}
	return &Worker{
		scheduleService: ss,
		logger:          logger.With(slog.String("component", "recurrence_worker")),
		interval:        interval,
	}
}

// Start begins ticking in a background goroutine. It returns immediately.
func (w *Worker) Start() {
	w.scheduler = gocron.NewScheduler()
	w.scheduler.Every(uint64(w.interval.Seconds())).Seconds().Do(w.tick)
	w.stop = w.scheduler.Start()
	w.logger.Info("Recurrence worker started", slog.Duration("tick_interval", w.interval))
}

// Stop halts the tick loop. A tick already in progress runs to completion.
func (w *Worker) Stop() {
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
	w.logger.Info("Recurrence worker stopped")
}

// tick claims and dispatches everything due right now. Errors are logged and
// swallowed; the next tick retries whatever is still due.
func (w *Worker) tick() {
	now := time.Now().UTC()
	tickLogger := w.logger.With(slog.Time("tick_at", now))
	ctx := middleware.WithLogger(context.Background(), tickLogger)

	dispatched, err := w.scheduleService.RunDueSchedules(ctx, now)
	if err != nil {
		tickLogger.Error("Recurrence tick failed", slog.String("error", err.Error()))
		return
	}
	if dispatched > 0 {
		tickLogger.Info("Recurrence tick completed", slog.Int("dispatched", dispatched))
	}
}
