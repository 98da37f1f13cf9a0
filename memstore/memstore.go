// Package memstore provides in-memory implementations of the profile,
// application, and obligation stores for tests and single-process demos.
// Semantics (missing-row errors, unique-constraint conflicts) match the
// durable sqlite and postgres implementations.
package memstore

import (
	"context"
	"sync"
	"time"

	coach "github.com/wesleylhandy/tuition-lift-sub001"
)

// ProfileStore is an in-memory coach.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]coach.Profile
}

// NewProfileStore creates an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]coach.Profile)}
}

// Put stores or replaces a user's profile.
func (s *ProfileStore) Put(profile coach.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile.Copy()
}

// GetProfile returns the profile for a user.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*coach.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, &coach.ProfileNotFoundError{UserID: userID}
	}
	cp := profile.Copy()
	return &cp, nil
}

// ApplicationStore is an in-memory coach.ApplicationStore.
type ApplicationStore struct {
	mu           sync.RWMutex
	applications []coach.Application
}

// NewApplicationStore creates an empty in-memory application store.
func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{}
}

// Add appends an application row.
func (s *ApplicationStore) Add(app coach.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, app)
}

// ListSubmittedBefore returns submitted applications at or before cutoff.
func (s *ApplicationStore) ListSubmittedBefore(ctx context.Context, cutoff time.Time) ([]coach.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []coach.Application
	for _, app := range s.applications {
		if app.Status == coach.ApplicationStatusSubmitted && !app.SubmittedAt.After(cutoff) {
			out = append(out, app)
		}
	}
	return out, nil
}

// ListSubmittedByUser returns a user's submitted applications.
func (s *ApplicationStore) ListSubmittedByUser(ctx context.Context, userID string) ([]coach.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []coach.Application
	for _, app := range s.applications {
		if app.UserID == userID && app.Status == coach.ApplicationStatusSubmitted {
			out = append(out, app)
		}
	}
	return out, nil
}

type obligationKey struct {
	userID        string
	applicationID string
}

// ObligationStore is an in-memory coach.ObligationStore with the same
// unique-pair constraint as the durable stores.
type ObligationStore struct {
	mu          sync.RWMutex
	obligations map[obligationKey]coach.Obligation
}

// NewObligationStore creates an empty in-memory obligation store.
func NewObligationStore() *ObligationStore {
	return &ObligationStore{obligations: make(map[obligationKey]coach.Obligation)}
}

// Exists reports whether an obligation exists for the pair.
func (s *ObligationStore) Exists(ctx context.Context, userID, applicationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.obligations[obligationKey{userID, applicationID}]
	return ok, nil
}

// Insert creates a pending obligation, or returns coach.ErrUniqueConflict
// if the pair already has one.
func (s *ObligationStore) Insert(ctx context.Context, obligation coach.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := obligationKey{obligation.UserID, obligation.ApplicationID}
	if _, ok := s.obligations[key]; ok {
		return coach.ErrUniqueConflict
	}
	s.obligations[key] = obligation
	return nil
}

// All returns every stored obligation, for assertions in tests.
func (s *ObligationStore) All() []coach.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]coach.Obligation, 0, len(s.obligations))
	for _, obligation := range s.obligations {
		out = append(out, obligation)
	}
	return out
}
