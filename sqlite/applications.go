package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// PutApplication stores or replaces an application row.
func (s *Store) PutApplication(ctx context.Context, app coach.Application) error {
	var submittedAt sql.NullTime
	if !app.SubmittedAt.IsZero() {
		submittedAt = sql.NullTime{Time: app.SubmittedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, program, status, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			program = excluded.program,
			status = excluded.status,
			submitted_at = excluded.submitted_at
	`, app.ID, app.UserID, app.Program, string(app.Status), submittedAt)
	if err != nil {
		return fmt.Errorf("put application: %w", err)
	}
	return nil
}

// ListSubmittedBefore returns submitted applications at or before cutoff.
func (s *Store) ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]coach.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, program, status, submitted_at
		FROM applications
		WHERE status = ? AND submitted_at <= ?
		ORDER BY submitted_at
	`, string(coach.ApplicationStatusSubmitted), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list submitted applications: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

// ListSubmittedByUser returns a user's submitted applications.
func (s *Store) ListSubmittedByUser(ctx context.Context, userID string) ([]coach.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, program, status, submitted_at
		FROM applications
		WHERE user_id = ? AND status = ?
		ORDER BY submitted_at
	`, userID, string(coach.ApplicationStatusSubmitted))
	if err != nil {
		return nil, fmt.Errorf("list user applications: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

func scanApplications(rows *sql.Rows) ([]coach.Application, error) {
	var out []coach.Application
	for rows.Next() {
		var app coach.Application
		var status string
		var submittedAt sql.NullTime
		if err := rows.Scan(&app.ID, &app.UserID, &app.Program, &status, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app.Status = coach.ApplicationStatus(status)
		if submittedAt.Valid {
			app.SubmittedAt = submittedAt.Time
		}
		out = append(out, app)
	}
	return out, rows.Err()
}
