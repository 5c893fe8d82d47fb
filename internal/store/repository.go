// Package store provides persistence for matching profiles and
// assignments, with an in-memory implementation for tests and small
// deployments and a Postgres implementation for production.
package store

import (
	"context"
	"errors"

	"github.com/onmission/matchd/internal/match"
)

// Common errors for store operations.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrUnavailable        = errors.New("store unavailable")
)

// ProfileStore defines profile persistence operations.
type ProfileStore interface {
	// GetProfile retrieves a profile by ID.
	GetProfile(ctx context.Context, id string) (*match.Profile, error)

	// UpsertProfile inserts or replaces a profile by ID.
	UpsertProfile(ctx context.Context, p *match.Profile) error

	// DeleteProfile removes a profile. Deleting a missing profile returns
	// ErrProfileNotFound.
	DeleteProfile(ctx context.Context, id string) error
}

// AssignmentStore defines assignment persistence operations.
type AssignmentStore interface {
	// GetAssignment retrieves an assignment by ID regardless of status.
	GetAssignment(ctx context.Context, id string) (*match.Assignment, error)

	// ListActive returns all assignments whose status admits them to the
	// ranking pool.
	ListActive(ctx context.Context) ([]match.Assignment, error)

	// UpsertAssignment inserts or replaces an assignment by ID.
	UpsertAssignment(ctx context.Context, a *match.Assignment) error

	// DeleteAssignment removes an assignment. Deleting a missing assignment
	// returns ErrAssignmentNotFound.
	DeleteAssignment(ctx context.Context, id string) error
}

// Store combines both repositories. The Postgres and in-memory
// implementations each satisfy it.
type Store interface {
	ProfileStore
	AssignmentStore
}
