package coach

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by stores.
var (
	// ErrCheckpointNotFound indicates a thread has no stored checkpoint.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrVersionConflict indicates a compare-and-swap save lost to a
	// concurrent writer. The caller may retry from a fresh load.
	ErrVersionConflict = errors.New("checkpoint version conflict")

	// ErrUniqueConflict indicates an insert was rejected by a unique
	// constraint because a concurrent writer created the row first.
	ErrUniqueConflict = errors.New("unique constraint conflict")

	// ErrProfileNotFound indicates no profile record exists for a user.
	ErrProfileNotFound = errors.New("profile not found")
)

// UnknownNodeError indicates a pending-node name was not found in the
// registry. This is a data-integrity error: the thread halts at its current
// checkpoint and must be surfaced to an operator.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Node)
}

// ConcurrentAdvanceError indicates another process advanced the thread
// while this call was executing. The call aborted without side effects and
// is safe to retry.
type ConcurrentAdvanceError struct {
	ThreadID string
	Version  int64
}

func (e *ConcurrentAdvanceError) Error() string {
	return fmt.Sprintf("thread %q advanced concurrently at version %d", e.ThreadID, e.Version)
}

// Unwrap lets errors.Is match ErrVersionConflict.
func (e *ConcurrentAdvanceError) Unwrap() error {
	return ErrVersionConflict
}

// NodeExecutionError wraps a node's own failure. The thread halts at the
// failing node; a later Advance re-executes the same node.
type NodeExecutionError struct {
	ThreadID string
	Node     string
	Err      error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q failed for thread %q: %v", e.Node, e.ThreadID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// ProfileNotFoundError identifies the user whose profile lookup failed
// during an active thread. It matches ErrProfileNotFound with errors.Is.
type ProfileNotFoundError struct {
	UserID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile not found for user %q", e.UserID)
}

func (e *ProfileNotFoundError) Unwrap() error {
	return ErrProfileNotFound
}

// IsRetryable reports whether an Advance or reconciliation failure is
// transient. Version conflicts and unique-constraint races resolve
// themselves: the work was done by a concurrent writer or can be retried
// from a fresh load. Integrity errors (missing profiles, unknown nodes)
// are not retryable and need an operator.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrUniqueConflict) {
		return true
	}
	var unknown *UnknownNodeError
	if errors.As(err, &unknown) {
		return false
	}
	if errors.Is(err, ErrProfileNotFound) {
		return false
	}
	// Unknown failures default to retryable so transient persistence
	// outages are re-driven by the caller. Nodes must tolerate
	// at-least-once execution for exactly this reason.
	return true
}
