package coach

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testCheckpoint(threadID string) *Checkpoint {
	state := NewWorkflowState(threadID, "load_profile")
	return &Checkpoint{
		ThreadID:     threadID,
		State:        state,
		PendingNode:  state.PendingNode,
		CheckpointAt: time.Now(),
	}
}

// checkpointStoreContract runs the store contract every implementation must
// satisfy.
func checkpointStoreContract(t *testing.T, newStore func(t *testing.T) CheckpointStore) {
	ctx := context.Background()

	t.Run("load missing thread returns not found", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Load(ctx, "thread-missing")
		require.ErrorIs(t, err, ErrCheckpointNotFound)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		store := newStore(t)
		checkpoint := testCheckpoint("thread-1")
		require.NoError(t, store.Save(ctx, checkpoint, 0))

		loaded, err := store.Load(ctx, "thread-1")
		require.NoError(t, err)
		require.Equal(t, int64(1), loaded.Version)
		require.Equal(t, "load_profile", loaded.PendingNode)
		require.Equal(t, "thread-1", loaded.State.ThreadID)
		require.Equal(t, int64(1), loaded.State.Version)
	})

	t.Run("version advances by exactly one per save", func(t *testing.T) {
		store := newStore(t)
		checkpoint := testCheckpoint("thread-2")
		require.NoError(t, store.Save(ctx, checkpoint, 0))
		require.NoError(t, store.Save(ctx, checkpoint, 1))
		require.NoError(t, store.Save(ctx, checkpoint, 2))

		loaded, err := store.Load(ctx, "thread-2")
		require.NoError(t, err)
		require.Equal(t, int64(3), loaded.Version)
	})

	t.Run("stale expected version is rejected", func(t *testing.T) {
		store := newStore(t)
		checkpoint := testCheckpoint("thread-3")
		require.NoError(t, store.Save(ctx, checkpoint, 0))
		require.ErrorIs(t, store.Save(ctx, checkpoint, 0), ErrVersionConflict)
		require.ErrorIs(t, store.Save(ctx, checkpoint, 2), ErrVersionConflict)
	})

	t.Run("fresh thread requires expected version zero", func(t *testing.T) {
		store := newStore(t)
		checkpoint := testCheckpoint("thread-4")
		require.ErrorIs(t, store.Save(ctx, checkpoint, 3), ErrVersionConflict)
	})

	t.Run("concurrent saves admit exactly one winner", func(t *testing.T) {
		store := newStore(t)
		checkpoint := testCheckpoint("thread-5")
		require.NoError(t, store.Save(ctx, checkpoint, 0))

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Save(ctx, testCheckpoint("thread-5"), 1)
			}(i)
		}
		wg.Wait()

		var wins, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			default:
				require.ErrorIs(t, err, ErrVersionConflict)
				conflicts++
			}
		}
		require.Equal(t, 1, wins)
		require.Equal(t, writers-1, conflicts)

		loaded, err := store.Load(ctx, "thread-5")
		require.NoError(t, err)
		require.Equal(t, int64(2), loaded.Version)
	})
}

func TestMemoryCheckpointStore(t *testing.T) {
	checkpointStoreContract(t, func(t *testing.T) CheckpointStore {
		return NewMemoryCheckpointStore()
	})

	t.Run("loaded checkpoint is a copy", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryCheckpointStore()
		require.NoError(t, store.Save(ctx, testCheckpoint("thread-copy"), 0))

		first, err := store.Load(ctx, "thread-copy")
		require.NoError(t, err)
		first.State.PendingNode = "mutated"

		second, err := store.Load(ctx, "thread-copy")
		require.NoError(t, err)
		require.Equal(t, "load_profile", second.State.PendingNode)
	})

	t.Run("list threads", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryCheckpointStore()
		require.NoError(t, store.Save(ctx, testCheckpoint("b"), 0))
		require.NoError(t, store.Save(ctx, testCheckpoint("a"), 0))

		ids, err := store.ListThreads(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, ids)
	})
}

func TestFileCheckpointStore(t *testing.T) {
	checkpointStoreContract(t, func(t *testing.T) CheckpointStore {
		store, err := NewFileCheckpointStore(t.TempDir())
		require.NoError(t, err)
		return store
	})

	t.Run("survives reopening the directory", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()

		store, err := NewFileCheckpointStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, testCheckpoint("thread-durable"), 0))

		reopened, err := NewFileCheckpointStore(dir)
		require.NoError(t, err)
		loaded, err := reopened.Load(ctx, "thread-durable")
		require.NoError(t, err)
		require.Equal(t, int64(1), loaded.Version)

		ids, err := reopened.ListThreads(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"thread-durable"}, ids)
	})
}
