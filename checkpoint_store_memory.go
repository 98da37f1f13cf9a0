package coach

import (
	"context"
	"sort"
	"sync"
)

// MemoryCheckpointStore is an in-memory CheckpointStore for tests and
// single-process use. Compare-and-swap semantics match the durable
// implementations exactly.
type MemoryCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]*Checkpoint
}

// NewMemoryCheckpointStore creates an empty in-memory checkpoint store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{checkpoints: make(map[string]*Checkpoint)}
}

// Load returns the latest checkpoint for a thread.
func (s *MemoryCheckpointStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	checkpoint, ok := s.checkpoints[threadID]
	if !ok {
		return nil, ErrCheckpointNotFound
	}
	return checkpoint.Copy(), nil
}

// Save persists a checkpoint if the stored version equals expectedVersion.
func (s *MemoryCheckpointStore) Save(ctx context.Context, checkpoint *Checkpoint, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.checkpoints[checkpoint.ThreadID]
	if !exists {
		if expectedVersion != 0 {
			return ErrVersionConflict
		}
	} else if current.Version != expectedVersion {
		return ErrVersionConflict
	}

	stored := checkpoint.Copy()
	stored.Version = expectedVersion + 1
	if stored.State != nil {
		stored.State.Version = stored.Version
	}
	s.checkpoints[checkpoint.ThreadID] = stored
	return nil
}

// ListThreads returns the IDs of all checkpointed threads in sorted order.
func (s *MemoryCheckpointStore) ListThreads(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
