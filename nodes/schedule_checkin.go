package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// ScheduleCheckinNode creates the 21-day check-in obligation for the
// submission recorded in state, then completes the workflow pass. The
// creation is idempotent on (user, application): re-execution after a
// checkpoint write failure, or a race with the reconciliation job, never
// produces a second obligation.
type ScheduleCheckinNode struct {
	obligations coach.ObligationStore
	clock       func() time.Time
}

// NewScheduleCheckinNode creates the check-in scheduling node.
func NewScheduleCheckinNode(obligations coach.ObligationStore, clock func() time.Time) *ScheduleCheckinNode {
	if clock == nil {
		clock = time.Now
	}
	return &ScheduleCheckinNode{obligations: obligations, clock: clock}
}

func (n *ScheduleCheckinNode) Name() string {
	return "schedule_checkin"
}

func (n *ScheduleCheckinNode) Execute(ctx context.Context, state *coach.WorkflowState) (*coach.WorkflowState, coach.Route, error) {
	if state.Submission == nil {
		return nil, coach.Route{}, fmt.Errorf("no submission recorded for thread %q", state.ThreadID)
	}

	exists, err := n.obligations.Exists(ctx, state.UserID, state.Submission.ApplicationID)
	if err != nil {
		return nil, coach.Route{}, fmt.Errorf("failed to check obligation existence: %w", err)
	}
	if !exists {
		err := n.obligations.Insert(ctx, coach.Obligation{
			ID:            uuid.NewString(),
			UserID:        state.UserID,
			ApplicationID: state.Submission.ApplicationID,
			DueAt:         state.Submission.SubmittedAt.Add(coach.CheckinWindow),
			Status:        coach.ObligationStatusPending,
			CreatedAt:     n.clock(),
		})
		// A unique conflict means a concurrent writer (the
		// reconciliation job, or a retried pass) already created it.
		if err != nil && !errors.Is(err, coach.ErrUniqueConflict) {
			return nil, coach.Route{}, fmt.Errorf("failed to insert obligation: %w", err)
		}
	}
	return state, coach.RouteTerminal(), nil
}
