package activity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	maxAnonymousIDLength = 128
	// progress at or beyond this share of the duration counts as completed
	completionThreshold = 0.9
)

var (
	ErrOwnerRequired       = errors.New("authentication or anonymous id required")
	ErrAnonymousIDRequired = errors.New("anonymousId is required")
	ErrInvalidAnonymousID  = errors.New("anonymous id must be 1-128 characters")
	ErrMovieNotFound       = errors.New("movie not found")
	ErrRentalNotFound      = errors.New("no active rental for this movie")
	ErrProgressNotFound    = errors.New("no watch progress for this movie")
	ErrInvalidProgress     = errors.New("progress and duration must be non-negative")
)

// Owner identifies whose activity a row belongs to. Exactly one field is set.
type Owner struct {
	UserID      *uuid.UUID
	AnonymousID *string
}

// UserOwner returns an owner keyed by user id
func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

// AnonymousOwner returns an owner keyed by a client-generated id
func AnonymousOwner(id string) (Owner, error) {
	if id == "" || len(id) > maxAnonymousIDLength {
		return Owner{}, ErrInvalidAnonymousID
	}
	return Owner{AnonymousID: &id}, nil
}

// IsAnonymous reports whether the owner is keyed by anonymous id.
func (o Owner) IsAnonymous() bool {
	return o.UserID == nil
}

func (o Owner) valid() bool {
	return (o.UserID == nil) != (o.AnonymousID == nil)
}

type Rental struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"userId"`
	AnonymousID *string    `json:"anonymousId"`
	MovieID     uuid.UUID  `json:"movieId"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsActive reports whether the rental has not yet expired at now.
// A rental expiring exactly at now is no longer active.
func (r *Rental) IsActive(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

type WatchProgress struct {
	ID              uuid.UUID  `json:"id"`
	UserID          *uuid.UUID `json:"userId"`
	AnonymousID     *string    `json:"anonymousId"`
	MovieID         uuid.UUID  `json:"movieId"`
	ProgressSeconds int        `json:"progressSeconds"`
	DurationSeconds int        `json:"durationSeconds"`
	Completed       bool       `json:"completed"`
	LastWatchedAt   time.Time  `json:"lastWatchedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProgressUpdate is the input of SaveProgress.
type ProgressUpdate struct {
	ProgressSeconds int
	DurationSeconds int
	Completed       bool
}

// MigrationResult counts the rows reassigned by Migrate.
type MigrationResult struct {
	MigratedRentals  int `json:"migratedRentals"`
	MigratedProgress int `json:"migratedProgress"`
}

// Stats summarizes a user's activity.
type Stats struct {
	TotalRentals       int `json:"totalRentals"`
	ActiveRentals      int `json:"activeRentals"`
	TotalWatchProgress int `json:"totalWatchProgress"`
	CompletedMovies    int `json:"completedMovies"`
}

func isCompleted(u ProgressUpdate) bool {
	if u.Completed {
		return true
	}
	if u.DurationSeconds <= 0 {
		return false
	}
	return float64(u.ProgressSeconds) >= completionThreshold*float64(u.DurationSeconds)
}
