package coach

import (
	"time"

	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

// TerminalNode is the sentinel pending-node value marking a thread whose
// workflow pass has run to completion. It is never a registered node name.
const TerminalNode = "__terminal__"

// Outcome values recorded in a thread's history.
const (
	OutcomeCompleted = "completed"
	OutcomeSuspended = "suspended"
	OutcomeFailed    = "failed"
)

// PellStatus is the pell-eligibility determination carried on a profile.
type PellStatus string

const (
	PellStatusUnknown    PellStatus = "unknown"
	PellStatusEligible   PellStatus = "eligible"
	PellStatusIneligible PellStatus = "ineligible"
)

// Profile is the snapshot of profile facts a workflow pass routes on. It is
// loaded once per pass and not re-fetched mid-graph unless a node explicitly
// refreshes it.
type Profile struct {
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	Major           string     `json:"major"`
	State           string     `json:"state"`
	GPA             float64    `json:"gpa"`
	FinancialIndex  *int       `json:"financial_index,omitempty"`
	PellStatus      PellStatus `json:"pell_status"`
	HouseholdSize   int        `json:"household_size"`
	NumberInCollege int        `json:"number_in_college"`
	UpdatedAt       time.Time  `json:"updated_at,omitzero"`
}

// Copy returns a copy of the profile with its own financial index pointer.
func (p Profile) Copy() Profile {
	cp := p
	if p.FinancialIndex != nil {
		v := *p.FinancialIndex
		cp.FinancialIndex = &v
	}
	return cp
}

// HistoryEntry records one node execution for observability and replay
// debugging. History is append-only and ordered oldest-first.
type HistoryEntry struct {
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// SubmissionRecord captures the application submission a pass observed.
type SubmissionRecord struct {
	ApplicationID string    `json:"application_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// WorkflowState is the single versioned record threaded through the graph
// for one coaching thread. Nodes receive a copy and return a new state; the
// engine owns persistence and version bookkeeping. This struct is designed
// to be fully JSON serializable.
type WorkflowState struct {
	ThreadID       string            `json:"thread_id"`
	UserID         string            `json:"user_id"`
	Profile        Profile           `json:"profile"`
	DerivedBracket finaid.Bracket    `json:"derived_bracket"`
	Matches        []string          `json:"matches,omitempty"`
	Submission     *SubmissionRecord `json:"submission,omitempty"`
	PendingNode    string            `json:"pending_node"`
	Version        int64             `json:"version"`
	History        []HistoryEntry    `json:"history"`
}

// NewWorkflowState initializes state for a brand-new thread positioned at
// the given entry node. Threads are 1:1 with users, so the thread ID doubles
// as the user identity until a profile load replaces the snapshot.
func NewWorkflowState(threadID, entryNode string) *WorkflowState {
	return &WorkflowState{
		ThreadID:       threadID,
		UserID:         threadID,
		DerivedBracket: finaid.BracketUnknown,
		PendingNode:    entryNode,
	}
}

// Clone returns a deep copy of the state. The engine clones before invoking
// a node so a node may freely build its returned state from the copy.
func (s *WorkflowState) Clone() *WorkflowState {
	cp := *s
	cp.Profile = s.Profile.Copy()
	if s.Submission != nil {
		sub := *s.Submission
		cp.Submission = &sub
	}
	cp.Matches = append([]string(nil), s.Matches...)
	cp.History = append([]HistoryEntry(nil), s.History...)
	return &cp
}

// Terminal reports whether the workflow pass for this thread has completed.
func (s *WorkflowState) Terminal() bool {
	return s.PendingNode == TerminalNode
}

// appendHistory records a node outcome. History is never truncated.
func (s *WorkflowState) appendHistory(node string, at time.Time, outcome, detail string) {
	s.History = append(s.History, HistoryEntry{
		Node:      node,
		Timestamp: at,
		Outcome:   outcome,
		Detail:    detail,
	})
}
