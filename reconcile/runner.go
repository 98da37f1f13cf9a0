package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Job      *Job
	Interval time.Duration
	Logger   *slog.Logger
}

// Runner executes the reconciliation job on a fixed cadence, independent of
// the event-driven path. It shares no in-memory state with the workflow
// engine; the persistence layer is the only shared resource.
type Runner struct {
	job      *Job
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner creates a runner that sweeps every interval.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{job: opts.Job, interval: opts.Interval, logger: opts.Logger}, nil
}

// Run sweeps immediately, then on every tick until the context is
// canceled. A failed sweep is logged and the cadence continues; the next
// tick re-derives whatever the failed sweep missed.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		result, err := r.job.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("reconciliation sweep failed", "error", err)
		} else {
			r.logger.Debug("reconciliation sweep ok",
				"created", result.Created,
				"skipped", result.Skipped)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
