// Package scheduler runs periodic background sweeps — currently a memory
// store size-logging pass — on a robfig/cron schedule, the
// background-maintenance leg of SPEC_FULL.md's domain stack.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/kunpai/hashiru/internal/memorystore"
)

// Scheduler wraps a cron.Cron instance and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New constructs a Scheduler. Call Start to begin running registered jobs.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cron: cron.New(), logger: logger}
}

// ScheduleMemorySweep registers a job on spec (standard 5-field cron syntax)
// that lists the memory store and logs its current size. Store reads its
// backing file only on first access, so later sweeps count the in-memory
// records and do not re-check the file.
func (s *Scheduler) ScheduleMemorySweep(spec string, store *memorystore.Store) error {
	_, err := s.cron.AddFunc(spec, func() {
		records, err := store.List()
		if err != nil {
			s.logger.Error("memory sweep failed to list store", "error", err)
			return
		}
		s.logger.Info("memory sweep complete", "record_count", len(records))
	})
	return err
}

// Start begins running scheduled jobs in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
}

// Stop halts the scheduler and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
