package nodes

import (
	"context"
	"fmt"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// AwaitSubmissionNode suspends the thread until the user submits an
// application. External events (or a scheduler) re-trigger Advance; on each
// visit the node checks the application store and either records the
// submission or suspends again.
type AwaitSubmissionNode struct {
	applications coach.ApplicationStore
	next         string
}

// NewAwaitSubmissionNode creates the await node routing to next once a
// submission exists.
func NewAwaitSubmissionNode(applications coach.ApplicationStore, next string) *AwaitSubmissionNode {
	return &AwaitSubmissionNode{applications: applications, next: next}
}

func (n *AwaitSubmissionNode) Name() string {
	return "await_submission"
}

func (n *AwaitSubmissionNode) Execute(ctx context.Context, state *coach.WorkflowState) (*coach.WorkflowState, coach.Route, error) {
	// A submission already recorded in state (a resumed pass) routes
	// forward without another store read.
	if state.Submission != nil {
		return state, coach.RouteTo(n.next), nil
	}

	submitted, err := n.applications.ListSubmittedByUser(ctx, state.UserID)
	if err != nil {
		return nil, coach.Route{}, fmt.Errorf("failed to list submitted applications: %w", err)
	}
	if len(submitted) == 0 {
		return state, coach.RouteSuspend(), nil
	}

	// Coach the earliest submission first; its check-in comes due first.
	earliest := submitted[0]
	for _, app := range submitted[1:] {
		if app.SubmittedAt.Before(earliest.SubmittedAt) {
			earliest = app
		}
	}
	state.Submission = &coach.SubmissionRecord{
		ApplicationID: earliest.ID,
		SubmittedAt:   earliest.SubmittedAt,
	}
	return state, coach.RouteTo(n.next), nil
}
