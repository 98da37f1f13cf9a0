package coach

import (
	"context"
)

// CheckpointStore is the durable persistence contract for thread
// checkpoints. Save is a compare-and-swap on version and is the sole
// concurrency-control mechanism for the engine; no external locking is
// assumed.
type CheckpointStore interface {
	// Load returns the latest checkpoint for a thread, or
	// ErrCheckpointNotFound if the thread has never been checkpointed.
	Load(ctx context.Context, threadID string) (*Checkpoint, error)

	// Save persists a checkpoint if and only if the currently stored
	// version equals expectedVersion (zero for a thread with no prior
	// checkpoint). The written checkpoint carries version
	// expectedVersion+1. A mismatch returns ErrVersionConflict and
	// leaves the stored checkpoint untouched.
	Save(ctx context.Context, checkpoint *Checkpoint, expectedVersion int64) error
}

// ThreadLister is implemented by checkpoint stores that can enumerate known
// threads, for operator tooling.
type ThreadLister interface {
	ListThreads(ctx context.Context) ([]string, error)
}
