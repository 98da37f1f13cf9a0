package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
		WHERE user_id = ?
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			major = excluded.major,
			state = excluded.state,
			gpa = excluded.gpa,
			financial_index = excluded.financial_index,
			pell_status = excluded.pell_status,
			household_size = excluded.household_size,
			number_in_college = excluded.number_in_college,
			updated_at = excluded.updated_at
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
