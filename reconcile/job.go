// Package reconcile implements the check-in reconciliation sweep: a
// scheduled, idempotent batch job that re-derives obligations the
// event-driven path should have created but did not. The sweep reads
// primary application records directly and inserts missing obligations
// with conflict-safe writes, so it is safe to run repeatedly and
// concurrently with the event path.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// Result reports what one sweep did.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// JobOptions configures a reconciliation job.
type JobOptions struct {
	Applications coach.ApplicationStore
	Obligations  coach.ObligationStore
	Logger       *slog.Logger

	// GracePeriod is how old a submission must be before the sweep
	// considers its obligation missing. Defaults to the check-in window.
	GracePeriod time.Duration

	Clock func() time.Time
}

// Job sweeps submitted applications older than the grace period and
// creates any obligation that should exist but does not.
type Job struct {
	applications coach.ApplicationStore
	obligations  coach.ObligationStore
	logger       *slog.Logger
	gracePeriod  time.Duration
	clock        func() time.Time
}

// NewJob creates a reconciliation job.
func NewJob(opts JobOptions) (*Job, error) {
	if opts.Applications == nil {
		return nil, fmt.Errorf("application store is required")
	}
	if opts.Obligations == nil {
		return nil, fmt.Errorf("obligation store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = coach.CheckinWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Job{
		applications: opts.Applications,
		obligations:  opts.Obligations,
		logger:       opts.Logger,
		gracePeriod:  opts.GracePeriod,
		clock:        opts.Clock,
	}, nil
}

// Run executes one sweep. Unique-constraint rejections count as skips: the
// event path or a concurrent sweep won the race, which is the desired
// outcome. Any other insert failure aborts the run with a hard error;
// obligations created earlier in the same run are kept.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var result Result

	cutoff := j.clock().Add(-j.gracePeriod)
	candidates, err := j.applications.ListSubmittedBefore(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list submitted applications: %w", err)
	}

	for _, app := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Re-check immediately before the insert to shrink the race
		// window against the event-driven path.
		exists, err := j.obligations.Exists(ctx, app.UserID, app.ID)
		if err != nil {
			return result, fmt.Errorf("failed to check obligation for application %q: %w", app.ID, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		err = j.obligations.Insert(ctx, coach.Obligation{
			ID:            uuid.NewString(),
			UserID:        app.UserID,
			ApplicationID: app.ID,
			DueAt:         app.SubmittedAt.Add(coach.CheckinWindow),
			Status:        coach.ObligationStatusPending,
			CreatedAt:     j.clock(),
		})
		switch {
		case err == nil:
			result.Created++
			j.logger.Info("created missing check-in obligation",
				"user_id", app.UserID,
				"application_id", app.ID,
				"due_at", app.SubmittedAt.Add(coach.CheckinWindow))
		case errors.Is(err, coach.ErrUniqueConflict):
			// A concurrent writer created it between the existence
			// check and the insert.
			result.Skipped++
		default:
			return result, fmt.Errorf("failed to insert obligation for application %q: %w", app.ID, err)
		}
	}

	j.logger.Info("reconciliation sweep finished",
		"candidates", len(candidates),
		"created", result.Created,
		"skipped", result.Skipped)
	return result, nil
}
