// Package nodes contains the workflow node implementations for the
// scholarship coaching plan.
package nodes

import (
	"context"
	"errors"
	"fmt"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

// LoadProfileNode fetches the latest profile snapshot for the thread's user
// and recomputes the derived bracket. A missing user record halts the
// workflow with a profile-not-found error rather than retrying forever.
type LoadProfileNode struct {
	profiles coach.ProfileStore
	next     string
}

// NewLoadProfileNode creates the profile-load node routing to next on
// success.
func NewLoadProfileNode(profiles coach.ProfileStore, next string) *LoadProfileNode {
	return &LoadProfileNode{profiles: profiles, next: next}
}

func (n *LoadProfileNode) Name() string {
	return "load_profile"
}

func (n *LoadProfileNode) Execute(ctx context.Context, state *coach.WorkflowState) (*coach.WorkflowState, coach.Route, error) {
	profile, err := n.profiles.GetProfile(ctx, state.UserID)
	if err != nil {
		if errors.Is(err, coach.ErrProfileNotFound) {
			return nil, coach.Route{}, &coach.ProfileNotFoundError{UserID: state.UserID}
		}
		return nil, coach.Route{}, fmt.Errorf("failed to load profile: %w", err)
	}

	// Malformed fields are refused here, before they reach the stored
	// state or the derived bracket.
	if profile.FinancialIndex != nil && !finaid.ValidateIndex(*profile.FinancialIndex) {
		return nil, coach.Route{}, fmt.Errorf("profile for user %q has financial index %d outside [%d, %d]",
			state.UserID, *profile.FinancialIndex, finaid.IndexMin, finaid.IndexMax)
	}

	state.Profile = profile.Copy()
	state.DerivedBracket = finaid.ClassifyHouseholdIncome(profile.FinancialIndex)
	return state, coach.RouteTo(n.next), nil
}
