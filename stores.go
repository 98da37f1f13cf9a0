package coach

import (
	"context"
	"time"
)

// ApplicationStatus is the lifecycle status of a scholarship application.
type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
	ApplicationStatusAwarded   ApplicationStatus = "awarded"
	ApplicationStatusDeclined  ApplicationStatus = "declined"
)

// Application is a scholarship application row as the workflow sees it.
type Application struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Program     string            `json:"program,omitempty"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at,omitzero"`
}

// ObligationStatus is the lifecycle status of a check-in obligation.
type ObligationStatus string

const (
	ObligationStatusPending   ObligationStatus = "pending"
	ObligationStatusCompleted ObligationStatus = "completed"
	ObligationStatusDismissed ObligationStatus = "dismissed"
)

// CheckinWindow is how long after submission a check-in comes due.
const CheckinWindow = 21 * 24 * time.Hour

// Obligation is the post-submission check-in duty for one application. At
// most one obligation per (user, application) pair ever exists; once
// created it is never recreated.
type Obligation struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	ApplicationID string           `json:"application_id"`
	DueAt         time.Time        `json:"due_at"`
	Status        ObligationStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at,omitzero"`
}

// ProfileStore provides read access to user profiles. Implementations are
// responsible for decoding a financial index stored encrypted at rest.
type ProfileStore interface {
	// GetProfile returns the profile for a user, or an error matching
	// ErrProfileNotFound if no record exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// ApplicationStore provides read access to scholarship applications.
type ApplicationStore interface {
	// ListSubmittedBefore returns submitted applications whose
	// submission time is at or before the cutoff.
	ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]Application, error)

	// ListSubmittedByUser returns a user's submitted applications.
	ListSubmittedByUser(ctx context.Context, userID string) ([]Application, error)
}

// ObligationStore persists check-in obligations. Insert must be
// conflict-safe: a concurrent creation of the same (user, application)
// pair surfaces as ErrUniqueConflict, never as a duplicate row.
type ObligationStore interface {
	// Exists reports whether an obligation exists for the pair.
	Exists(ctx context.Context, userID, applicationID string) (bool, error)

	// Insert creates a pending obligation. Returns an error matching
	// ErrUniqueConflict if the pair already has one.
	Insert(ctx context.Context, obligation Obligation) error
}
