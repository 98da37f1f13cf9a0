package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// Load returns the latest checkpoint for a thread.
func (s *Store) Load(ctx context.Context, threadID string) (*coach.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, state, pending_node, version, checkpoint_at
		FROM checkpoints
		WHERE thread_id = $1
	`, threadID)

	var checkpoint coach.Checkpoint
	var stateJSON []byte
	err := row.Scan(
		&checkpoint.ThreadID,
		&stateJSON,
		&checkpoint.PendingNode,
		&checkpoint.Version,
		&checkpoint.CheckpointAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coach.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &checkpoint.State); err != nil {
		return nil, fmt.Errorf("load checkpoint: unmarshal state: %w", err)
	}
	return &checkpoint, nil
}

// Save persists a checkpoint if the stored version equals expectedVersion.
func (s *Store) Save(ctx context.Context, checkpoint *coach.Checkpoint, expectedVersion int64) error {
	stored := checkpoint.Copy()
	stored.Version = expectedVersion + 1
	if stored.State != nil {
		stored.State.Version = stored.Version
	}
	stateJSON, err := json.Marshal(stored.State)
	if err != nil {
		return fmt.Errorf("save checkpoint: marshal state: %w", err)
	}

	var res sql.Result
	if expectedVersion == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO checkpoints (thread_id, state, pending_node, version, checkpoint_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (thread_id) DO NOTHING
		`, stored.ThreadID, stateJSON, stored.PendingNode, stored.Version, stored.CheckpointAt)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE checkpoints
			SET state = $1, pending_node = $2, version = $3, checkpoint_at = $4
			WHERE thread_id = $5 AND version = $6
		`, stateJSON, stored.PendingNode, stored.Version, stored.CheckpointAt, stored.ThreadID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if affected == 0 {
		return coach.ErrVersionConflict
	}
	return nil
}

// ListThreads returns the IDs of all checkpointed threads in sorted order.
func (s *Store) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
