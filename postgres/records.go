package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

// GetProfile returns the profile for a user. The financial index is decoded
// from its at-rest form; legacy plaintext rows are read unchanged.
func (s *Store) GetProfile(ctx context.Context, userID string) (*coach.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, major, state, gpa, financial_index,
		       pell_status, household_size, number_in_college, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID)

	var profile coach.Profile
	var storedIndex sql.NullString
	var pellStatus string
	err := row.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Major,
		&profile.State,
		&profile.GPA,
		&storedIndex,
		&pellStatus,
		&profile.HouseholdSize,
		&profile.NumberInCollege,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coach.ProfileNotFoundError{UserID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.PellStatus = coach.PellStatus(pellStatus)

	if storedIndex.Valid && storedIndex.String != "" {
		value, err := finaid.Decode(storedIndex.String)
		if err != nil {
			return nil, fmt.Errorf("get profile: %w", err)
		}
		profile.FinancialIndex = &value
	}
	return &profile, nil
}

// PutProfile stores or replaces a user's profile, encoding the financial
// index at rest. An out-of-scale index is refused at this boundary.
func (s *Store) PutProfile(ctx context.Context, profile coach.Profile) error {
	var storedIndex sql.NullString
	if profile.FinancialIndex != nil {
		if !finaid.ValidateIndex(*profile.FinancialIndex) {
			return fmt.Errorf("put profile: financial index %d outside [%d, %d]",
				*profile.FinancialIndex, finaid.IndexMin, finaid.IndexMax)
		}
		storedIndex = sql.NullString{String: finaid.Encode(*profile.FinancialIndex), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, major, state, gpa, financial_index,
		                      pell_status, household_size, number_in_college, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			major = EXCLUDED.major,
			state = EXCLUDED.state,
			gpa = EXCLUDED.gpa,
			financial_index = EXCLUDED.financial_index,
			pell_status = EXCLUDED.pell_status,
			household_size = EXCLUDED.household_size,
			number_in_college = EXCLUDED.number_in_college,
			updated_at = EXCLUDED.updated_at
	`,
		profile.UserID,
		profile.Name,
		profile.Major,
		profile.State,
		profile.GPA,
		storedIndex,
		string(profile.PellStatus),
		profile.HouseholdSize,
		profile.NumberInCollege,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// PutApplication stores or replaces an application row.
func (s *Store) PutApplication(ctx context.Context, app coach.Application) error {
	var submittedAt sql.NullTime
	if !app.SubmittedAt.IsZero() {
		submittedAt = sql.NullTime{Time: app.SubmittedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, program, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			program = EXCLUDED.program,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at
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
		WHERE status = $1 AND submitted_at <= $2
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
		WHERE user_id = $1 AND status = $2
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

// Exists reports whether an obligation exists for the pair.
func (s *Store) Exists(ctx context.Context, userID, applicationID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM obligations
		WHERE user_id = $1 AND application_id = $2
	`, userID, applicationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("obligation exists: %w", err)
	}
	return count > 0, nil
}

// Insert creates a pending obligation. Zero rows affected after ON CONFLICT
// DO NOTHING means a concurrent writer created the pair first.
func (s *Store) Insert(ctx context.Context, obligation coach.Obligation) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO obligations (id, user_id, application_id, due_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, application_id) DO NOTHING
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
