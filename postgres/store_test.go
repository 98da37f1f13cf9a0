package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("coach"),
		tcpostgres.WithUsername("coach"),
		tcpostgres.WithPassword("coach"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func intPtr(v int) *int { return &v }

func testCheckpoint(threadID string) *coach.Checkpoint {
	state := coach.NewWorkflowState(threadID, "load_profile")
	return &coach.Checkpoint{
		ThreadID:     threadID,
		State:        state,
		PendingNode:  state.PendingNode,
		CheckpointAt: time.Now().UTC(),
	}
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("checkpoint not found", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		require.ErrorIs(t, err, coach.ErrCheckpointNotFound)
	})

	t.Run("checkpoint compare and swap", func(t *testing.T) {
		cp := testCheckpoint("thread-cas")
		require.NoError(t, store.Save(ctx, cp, 0))

		// A second fresh insert for the same thread loses.
		require.ErrorIs(t, store.Save(ctx, testCheckpoint("thread-cas"), 0), coach.ErrVersionConflict)

		loaded, err := store.Load(ctx, "thread-cas")
		require.NoError(t, err)
		require.Equal(t, int64(1), loaded.Version)

		loaded.PendingNode = "match_scholarships"
		loaded.State.PendingNode = "match_scholarships"
		require.NoError(t, store.Save(ctx, loaded, 1))

		// The stale version is now rejected.
		require.ErrorIs(t, store.Save(ctx, loaded, 1), coach.ErrVersionConflict)

		current, err := store.Load(ctx, "thread-cas")
		require.NoError(t, err)
		require.Equal(t, int64(2), current.Version)
		require.Equal(t, "match_scholarships", current.PendingNode)
	})

	t.Run("checkpoint state round trip", func(t *testing.T) {
		cp := testCheckpoint("thread-state")
		cp.State.Matches = []string{"State Need Award", "Pell Pathway Grant"}
		cp.State.Submission = &coach.SubmissionRecord{
			ApplicationID: "app-1",
			SubmittedAt:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.Save(ctx, cp, 0))

		loaded, err := store.Load(ctx, "thread-state")
		require.NoError(t, err)
		require.Equal(t, cp.State.Matches, loaded.State.Matches)
		require.Equal(t, "app-1", loaded.State.Submission.ApplicationID)
	})

	t.Run("list threads", func(t *testing.T) {
		ids, err := store.ListThreads(ctx)
		require.NoError(t, err)
		require.Contains(t, ids, "thread-cas")
		require.Contains(t, ids, "thread-state")
	})

	t.Run("profile encoded at rest", func(t *testing.T) {
		require.NoError(t, store.PutProfile(ctx, coach.Profile{
			UserID:         "user-1",
			Name:           "Jordan",
			GPA:            3.2,
			FinancialIndex: intPtr(4200),
			PellStatus:     coach.PellStatusEligible,
			UpdatedAt:      time.Now().UTC(),
		}))

		var stored string
		err := store.DB().QueryRowContext(ctx,
			`SELECT financial_index FROM profiles WHERE user_id = $1`, "user-1").Scan(&stored)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stored, "fx1."))

		profile, err := store.GetProfile(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, profile.FinancialIndex)
		require.Equal(t, 4200, *profile.FinancialIndex)
	})

	t.Run("legacy plaintext profile row", func(t *testing.T) {
		_, err := store.DB().ExecContext(ctx, `
			INSERT INTO profiles (user_id, financial_index, updated_at)
			VALUES ($1, $2, $3)
		`, "user-legacy", "-250", time.Now().UTC())
		require.NoError(t, err)

		profile, err := store.GetProfile(ctx, "user-legacy")
		require.NoError(t, err)
		require.NotNil(t, profile.FinancialIndex)
		require.Equal(t, -250, *profile.FinancialIndex)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := store.GetProfile(ctx, "ghost")
		require.ErrorIs(t, err, coach.ErrProfileNotFound)
	})

	t.Run("application queries", func(t *testing.T) {
		base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, store.PutApplication(ctx, coach.Application{
			ID: "app-old", UserID: "user-1", Program: "State Need Award",
			Status: coach.ApplicationStatusSubmitted, SubmittedAt: base,
		}))
		require.NoError(t, store.PutApplication(ctx, coach.Application{
			ID: "app-new", UserID: "user-1",
			Status: coach.ApplicationStatusSubmitted, SubmittedAt: base.Add(72 * time.Hour),
		}))
		require.NoError(t, store.PutApplication(ctx, coach.Application{
			ID: "app-draft", UserID: "user-1",
			Status: coach.ApplicationStatusDraft,
		}))

		before, err := store.ListSubmittedBefore(ctx, base)
		require.NoError(t, err)
		require.Len(t, before, 1)
		require.Equal(t, "app-old", before[0].ID)

		byUser, err := store.ListSubmittedByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, byUser, 2)
	})

	t.Run("obligation unique pair", func(t *testing.T) {
		now := time.Now().UTC()
		obligation := coach.Obligation{
			ID:            "ob-1",
			UserID:        "user-1",
			ApplicationID: "app-old",
			DueAt:         now.Add(coach.CheckinWindow),
			Status:        coach.ObligationStatusPending,
			CreatedAt:     now,
		}
		require.NoError(t, store.Insert(ctx, obligation))

		exists, err := store.Exists(ctx, "user-1", "app-old")
		require.NoError(t, err)
		require.True(t, exists)

		dup := obligation
		dup.ID = "ob-2"
		require.ErrorIs(t, store.Insert(ctx, dup), coach.ErrUniqueConflict)
	})
}
