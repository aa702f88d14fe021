package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/metrics"
)

// Store is implemented by *Repository.
type Store interface {
	MovieExists(ctx context.Context, movieID uuid.UUID) (bool, error)
	FindActiveRental(ctx context.Context, owner Owner, movieID uuid.UUID, now time.Time) (*Rental, error)
	CreateRental(ctx context.Context, rental *Rental) error
	ListRentals(ctx context.Context, owner Owner, includeExpired bool, now time.Time) ([]*Rental, error)
	FindLatestProgress(ctx context.Context, owner Owner, movieID uuid.UUID) (*WatchProgress, error)
	InsertProgress(ctx context.Context, p *WatchProgress) error
	UpdateProgress(ctx context.Context, p *WatchProgress) error
	ListProgress(ctx context.Context, owner Owner) ([]*WatchProgress, error)
	Migrate(ctx context.Context, userID uuid.UUID, anonymousID string) (MigrationResult, error)
	Stats(ctx context.Context, userID uuid.UUID, now time.Time) (Stats, error)
}

// Service implements rentals, watch progress and the anonymous-to-user migration.
type Service struct {
	store          Store
	logger         *logging.Logger
	rentalDuration time.Duration
	now            func() time.Time
}

func NewService(store Store, logger *logging.Logger, rentalDuration time.Duration) *Service {
	if rentalDuration <= 0 {
		rentalDuration = 48 * time.Hour
	}
	return &Service{
		store:          store,
		logger:         logger,
		rentalDuration: rentalDuration,
		now:            time.Now,
	}
}

// Rent returns the owner's active rental of the movie, creating one if none
// exists. created reports whether a new row was inserted.
func (s *Service) Rent(ctx context.Context, owner Owner, movieID uuid.UUID) (rental *Rental, created bool, err error) {
	if !owner.valid() {
		return nil, false, ErrOwnerRequired
	}
	if err := s.requireMovie(ctx, movieID); err != nil {
		return nil, false, err
	}

	// Reuse a rental that is still running
	now := s.now()
	existing, err := s.store.FindActiveRental(ctx, owner, movieID, now)
	if err == nil && existing.IsActive(now) {
		return existing, false, nil
	}
	if err != nil && !errors.Is(err, ErrRentalNotFound) {
		return nil, false, err
	}

	// Otherwise start a new one

	rental = &Rental{
		UserID:      owner.UserID,
		AnonymousID: owner.AnonymousID,
		MovieID:     movieID,
		PurchasedAt: now,
		ExpiresAt:   now.Add(s.rentalDuration),
	}
	if err := s.store.CreateRental(ctx, rental); err != nil {
		return nil, false, err
	}

	metrics.RecordRentalCreated(owner.IsAnonymous())
	return rental, true, nil
}

// GetRental returns the owner's active rental of a movie
func (s *Service) GetRental(ctx context.Context, owner Owner, movieID uuid.UUID) (*Rental, error) {
	if !owner.valid() {
		return nil, ErrOwnerRequired
	}
	now := s.now()
	rental, err := s.store.FindActiveRental(ctx, owner, movieID, now)
	if err != nil {
		return nil, err
	}
	if !rental.IsActive(now) {
		return nil, ErrRentalNotFound
	}
	return rental, nil
}

// ListRentals returns the owner's rentals
func (s *Service) ListRentals(ctx context.Context, owner Owner, includeExpired bool) ([]*Rental, error) {
	if !owner.valid() {
		return nil, ErrOwnerRequired
	}
	return s.store.ListRentals(ctx, owner, includeExpired, s.now())
}

// SaveProgress updates the owner's latest progress row for the movie or inserts one.
func (s *Service) SaveProgress(ctx context.Context, owner Owner, movieID uuid.UUID, update ProgressUpdate) (*WatchProgress, error) {
	if !owner.valid() {
		return nil, ErrOwnerRequired
	}
	if update.ProgressSeconds < 0 || update.DurationSeconds < 0 {
		return nil, ErrInvalidProgress
	}
	if err := s.requireMovie(ctx, movieID); err != nil {
		return nil, err
	}

	now := s.now()
	completed := isCompleted(update)

	existing, err := s.store.FindLatestProgress(ctx, owner, movieID)
	switch {
	case err == nil:
		existing.ProgressSeconds = update.ProgressSeconds
		existing.DurationSeconds = update.DurationSeconds
		existing.Completed = completed
		existing.LastWatchedAt = now
		existing.UpdatedAt = now
		if err := s.store.UpdateProgress(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, ErrProgressNotFound):
		p := &WatchProgress{
			UserID:          owner.UserID,
			AnonymousID:     owner.AnonymousID,
			MovieID:         movieID,
			ProgressSeconds: update.ProgressSeconds,
			DurationSeconds: update.DurationSeconds,
			Completed:       completed,
			LastWatchedAt:   now,
		}
		if err := s.store.InsertProgress(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}

// GetProgress returns the owner's latest progress row for a movie
func (s *Service) GetProgress(ctx context.Context, owner Owner, movieID uuid.UUID) (*WatchProgress, error) {
	if !owner.valid() {
		return nil, ErrOwnerRequired
	}
	return s.store.FindLatestProgress(ctx, owner, movieID)
}

// ListProgress returns every progress row of the owner
func (s *Service) ListProgress(ctx context.Context, owner Owner) ([]*WatchProgress, error) {
	if !owner.valid() {
		return nil, ErrOwnerRequired
	}
	return s.store.ListProgress(ctx, owner)
}

// Migrate folds every rental and progress row keyed by anonymousID into userID.
// Rows of other anonymous ids are untouched. Duplicates with the user's own
// rows are kept as they are.
func (s *Service) Migrate(ctx context.Context, userID uuid.UUID, anonymousID string) (MigrationResult, error) {
	if userID == uuid.Nil {
		return MigrationResult{}, ErrOwnerRequired
	}
	if anonymousID == "" {
		return MigrationResult{}, ErrAnonymousIDRequired
	}
	if len(anonymousID) > maxAnonymousIDLength {
		return MigrationResult{}, ErrInvalidAnonymousID
	}

	result, err := s.store.Migrate(ctx, userID, anonymousID)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("migration failed: %w", err)
	}

	metrics.RecordMigration(result.MigratedRentals, result.MigratedProgress)
	if result.MigratedRentals > 0 || result.MigratedProgress > 0 {
		s.logger.Info("anonymous activity migrated",
			"user_id", userID,
			"rentals", result.MigratedRentals,
			"progress", result.MigratedProgress,
		)
	}
	return result, nil
}

// GetStats returns activity counts for the user
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	if userID == uuid.Nil {
		return Stats{}, ErrOwnerRequired
	}
	return s.store.Stats(ctx, userID, s.now())
}

func (s *Service) requireMovie(ctx context.Context, movieID uuid.UUID) error {
	exists, err := s.store.MovieExists(ctx, movieID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrMovieNotFound
	}
	return nil
}
