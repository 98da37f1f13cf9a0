package coach

import "time"

// Checkpoint is a durable snapshot of one thread's workflow state plus the
// pointer to its next node. The engine can resume any thread solely from
// its latest checkpoint and the node registry.
type Checkpoint struct {
	ThreadID     string         `json:"thread_id"`
	State        *WorkflowState `json:"state"`
	PendingNode  string         `json:"pending_node"`
	Version      int64          `json:"version"`
	CheckpointAt time.Time      `json:"checkpoint_at"`
}

// Copy returns a deep copy of the checkpoint.
func (c *Checkpoint) Copy() *Checkpoint {
	cp := *c
	if c.State != nil {
		cp.State = c.State.Clone()
	}
	return &cp
}
