package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileCheckpointStore persists checkpoints as one JSON file per thread.
// Compare-and-swap is enforced under a process-wide mutex, so this store is
// suitable for a single process only; use the sqlite or postgres stores
// when multiple processes advance threads.
type FileCheckpointStore struct {
	dataDir string
	mu      sync.Mutex
}

// NewFileCheckpointStore creates a file-based checkpoint store rooted at
// dataDir, defaulting to ~/.tuitionlift/threads.
func NewFileCheckpointStore(dataDir string) (*FileCheckpointStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".tuitionlift", "threads")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileCheckpointStore{dataDir: dataDir}, nil
}

// Load returns the latest checkpoint for a thread.
func (s *FileCheckpointStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(threadID)
}

// Save persists a checkpoint if the stored version equals expectedVersion.
// The write goes through a temp file and rename so a crash never leaves a
// torn checkpoint behind.
func (s *FileCheckpointStore) Save(ctx context.Context, checkpoint *Checkpoint, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(checkpoint.ThreadID)
	switch {
	case errors.Is(err, ErrCheckpointNotFound):
		if expectedVersion != 0 {
			return ErrVersionConflict
		}
	case err != nil:
		return err
	case current.Version != expectedVersion:
		return ErrVersionConflict
	}

	stored := checkpoint.Copy()
	stored.Version = expectedVersion + 1
	if stored.State != nil {
		stored.State.Version = stored.Version
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.path(checkpoint.ThreadID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// ListThreads returns the IDs of all checkpointed threads in sorted order.
func (s *FileCheckpointStore) ListThreads(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read threads directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileCheckpointStore) path(threadID string) string {
	return filepath.Join(s.dataDir, threadID+".json")
}

func (s *FileCheckpointStore) read(threadID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}
