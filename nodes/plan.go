package nodes

import (
	"time"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// Deps are the external stores the default coaching plan's nodes consume.
type Deps struct {
	Profiles     coach.ProfileStore
	Applications coach.ApplicationStore
	Obligations  coach.ObligationStore
	Clock        func() time.Time
}

// DefaultPlan returns the standard scholarship coaching plan: load the
// profile, match programs, wait for a submission, then schedule the
// check-in.
func DefaultPlan() (*coach.Plan, error) {
	return coach.NewPlan(coach.PlanOptions{
		Name:  "scholarship-coaching",
		Entry: "load_profile",
		Nodes: []*coach.PlanNode{
			{Name: "load_profile", AutoContinue: true},
			{Name: "match_scholarships", AutoContinue: true},
			{Name: "await_submission", AutoContinue: true},
			{Name: "schedule_checkin", AutoContinue: true},
		},
	})
}

// RegisterDefault registers the default plan's node implementations.
func RegisterDefault(registry *coach.Registry, deps Deps) error {
	all := []coach.Node{
		NewLoadProfileNode(deps.Profiles, "match_scholarships"),
		NewMatchScholarshipsNode("await_submission"),
		NewAwaitSubmissionNode(deps.Applications, "schedule_checkin"),
		NewScheduleCheckinNode(deps.Obligations, deps.Clock),
	}
	for _, node := range all {
		if err := registry.Register(node); err != nil {
			return err
		}
	}
	return nil
}
