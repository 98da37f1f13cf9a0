package nodes

import (
	"context"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

// program is one entry in the static scholarship catalog the match node
// routes against.
type program struct {
	name       string
	minGPA     float64
	maxBracket finaid.Bracket
	pellOnly   bool
}

var catalog = []program{
	{name: "Pell Pathway Grant", minGPA: 0, maxBracket: finaid.BracketModerateNeed, pellOnly: true},
	{name: "First Generation Promise", minGPA: 2.5, maxBracket: finaid.BracketModerateNeed},
	{name: "State Need Award", minGPA: 2.0, maxBracket: finaid.BracketLowNeed},
	{name: "Dean's Merit Scholarship", minGPA: 3.5, maxBracket: finaid.BracketNoNeed},
	{name: "STEM Opportunity Fund", minGPA: 3.0, maxBracket: finaid.BracketMinimalNeed},
}

// MatchScholarshipsNode selects candidate programs for the user. The
// decision reads only fields already inside the state, so re-running the
// node for the same state always produces the same matches and route.
type MatchScholarshipsNode struct {
	next string
}

// NewMatchScholarshipsNode creates the match node routing to next.
func NewMatchScholarshipsNode(next string) *MatchScholarshipsNode {
	return &MatchScholarshipsNode{next: next}
}

func (n *MatchScholarshipsNode) Name() string {
	return "match_scholarships"
}

func (n *MatchScholarshipsNode) Execute(ctx context.Context, state *coach.WorkflowState) (*coach.WorkflowState, coach.Route, error) {
	var matches []string
	for _, p := range catalog {
		if state.Profile.GPA < p.minGPA {
			continue
		}
		if p.pellOnly && state.Profile.PellStatus != coach.PellStatusEligible {
			continue
		}
		// An unknown bracket only qualifies for programs open to all
		// standings.
		if state.DerivedBracket == finaid.BracketUnknown && p.maxBracket != finaid.BracketNoNeed {
			continue
		}
		if state.DerivedBracket > p.maxBracket {
			continue
		}
		matches = append(matches, p.name)
	}
	state.Matches = matches
	return state, coach.RouteTo(n.next), nil
}
