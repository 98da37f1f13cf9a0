package sqlite

import (
	"context"
	"fmt"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// Exists reports whether an obligation exists for the pair.
func (s *Store) Exists(ctx context.Context, userID, applicationID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM obligations
		WHERE user_id = ? AND application_id = ?
	`, userID, applicationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("obligation exists: %w", err)
	}
	return count > 0, nil
}

// Insert creates a pending obligation. ON CONFLICT DO NOTHING keeps the
// write race-safe; zero rows affected means a concurrent writer already
// created the pair and surfaces as coach.ErrUniqueConflict.
func (s *Store) Insert(ctx context.Context, obligation coach.Obligation) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO obligations (id, user_id, application_id, due_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, application_id) DO NOTHING
	`,
		obligation.ID,
		obligation.UserID,
		obligation.ApplicationID,
		obligation.DueAt,
		string(obligation.Status),
		obligation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}
	if affected == 0 {
		return coach.ErrUniqueConflict
	}
	return nil
}

// ListObligations returns all obligations for a user, for operator tooling.
func (s *Store) ListObligations(ctx context.Context, userID string) ([]coach.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, application_id, due_at, status, created_at
		FROM obligations
		WHERE user_id = ?
		ORDER BY due_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []coach.Obligation
	for rows.Next() {
		var obligation coach.Obligation
		var status string
		if err := rows.Scan(
			&obligation.ID,
			&obligation.UserID,
			&obligation.ApplicationID,
			&obligation.DueAt,
			&status,
			&obligation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obligation.Status = coach.ObligationStatus(status)
		out = append(out, obligation)
	}
	return out, rows.Err()
}
