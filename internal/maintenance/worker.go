package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
)

type SweepArgs struct{}

func (SweepArgs) Kind() string { return "expire_overdue_tasks" }

// Sweeper defines the contract the worker needs to expire overdue tasks.
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	sweeper Sweeper
	logger  *slog.Logger
}

func NewSweepWorker(sweeper Sweeper, logger *slog.Logger) *SweepWorker {
	return &SweepWorker{sweeper: sweeper, logger: logger}
}

func (w *SweepWorker) Work(ctx context.Context, _ *river.Job[SweepArgs]) error {
	n, err := w.sweeper.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("sweep overdue tasks: %w", err)
	}
	w.logger.Debug("sweep finished", "expired", n)
	return nil
}
