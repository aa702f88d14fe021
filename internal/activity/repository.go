package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

// Repository persists rentals and watch progress in PostgreSQL
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

func ownerFilter(o Owner) (string, any) {
	if o.UserID != nil {
		return "user_id = ?", *o.UserID
	}
	return "anonymous_id = ?", *o.AnonymousID
}

// MovieExists reports whether a movie row exists
func (r *Repository) MovieExists(ctx context.Context, movieID uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Movie)(nil)).
		Where("id = ?", movieID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check movie: %w", err)
	}
	return exists, nil
}

// FindActiveRental returns the owner's latest unexpired rental of a movie
func (r *Repository) FindActiveRental(ctx context.Context, owner Owner, movieID uuid.UUID, now time.Time) (*Rental, error) {
	col, val := ownerFilter(owner)
	dbRental := new(database.Rental)
	err := r.db.NewSelect().
		Model(dbRental).
		Where(col, val).
		Where("movie_id = ?", movieID).
		Where("expires_at > ?", now).
		OrderExpr("expires_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrRentalNotFound
		}
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return mapRental(dbRental), nil
}

// CreateRental inserts a rental and fills in generated fields
func (r *Repository) CreateRental(ctx context.Context, rental *Rental) error {
	dbRental := &database.Rental{
		UserID:      rental.UserID,
		AnonymousID: rental.AnonymousID,
		MovieID:     rental.MovieID,
		PurchasedAt: rental.PurchasedAt,
		ExpiresAt:   rental.ExpiresAt,
	}
	if _, err := r.db.NewInsert().Model(dbRental).Returning("*").Exec(ctx); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("failed to create rental: %w", err)
	}
	*rental = *mapRental(dbRental)
	return nil
}

// ListRentals returns the owner's rentals, newest first
func (r *Repository) ListRentals(ctx context.Context, owner Owner, includeExpired bool, now time.Time) ([]*Rental, error) {
	col, val := ownerFilter(owner)
	var rows []*database.Rental
	q := r.db.NewSelect().
		Model(&rows).
		Where(col, val).
		OrderExpr("purchased_at DESC")
	if !includeExpired {
		q = q.Where("expires_at > ?", now)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}

	out := make([]*Rental, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapRental(row))
	}
	return out, nil
}

// FindLatestProgress returns the most recently watched progress row of a movie.
// Several rows can exist for one user after a migration.
func (r *Repository) FindLatestProgress(ctx context.Context, owner Owner, movieID uuid.UUID) (*WatchProgress, error) {
	col, val := ownerFilter(owner)
	dbProgress := new(database.WatchProgress)
	err := r.db.NewSelect().
		Model(dbProgress).
		Where(col, val).
		Where("movie_id = ?", movieID).
		OrderExpr("last_watched_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get watch progress: %w", err)
	}
	return mapProgress(dbProgress), nil
}

// InsertProgress creates a progress row
func (r *Repository) InsertProgress(ctx context.Context, p *WatchProgress) error {
	dbProgress := &database.WatchProgress{
		UserID:          p.UserID,
		AnonymousID:     p.AnonymousID,
		MovieID:         p.MovieID,
		ProgressSeconds: p.ProgressSeconds,
		DurationSeconds: p.DurationSeconds,
		Completed:       p.Completed,
		LastWatchedAt:   p.LastWatchedAt,
	}
	if _, err := r.db.NewInsert().Model(dbProgress).Returning("*").Exec(ctx); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("failed to insert watch progress: %w", err)
	}
	*p = *mapProgress(dbProgress)
	return nil
}

// UpdateProgress overwrites the mutable fields of an existing row
func (r *Repository) UpdateProgress(ctx context.Context, p *WatchProgress) error {
	_, err := r.db.NewUpdate().
		Model((*database.WatchProgress)(nil)).
		Set("progress_seconds = ?", p.ProgressSeconds).
		Set("duration_seconds = ?", p.DurationSeconds).
		Set("completed = ?", p.Completed).
		Set("last_watched_at = ?", p.LastWatchedAt).
		Set("updated_at = ?", p.UpdatedAt).
		Where("id = ?", p.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update watch progress: %w", err)
	}
	return nil
}

// ListProgress returns the owner's progress rows, most recently watched first
func (r *Repository) ListProgress(ctx context.Context, owner Owner) ([]*WatchProgress, error) {
	col, val := ownerFilter(owner)
	var rows []*database.WatchProgress
	err := r.db.NewSelect().
		Model(&rows).
		Where(col, val).
		OrderExpr("last_watched_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch progress: %w", err)
	}

	out := make([]*WatchProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapProgress(row))
	}
	return out, nil
}

// Migrate reassigns every row keyed by anonymousID to userID in one transaction.
func (r *Repository) Migrate(ctx context.Context, userID uuid.UUID, anonymousID string) (MigrationResult, error) {
	var result MigrationResult

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*database.Rental)(nil)).
			Set("user_id = ?", userID).
			Set("anonymous_id = NULL").
			Where("anonymous_id = ?", anonymousID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate rentals: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.MigratedRentals = int(n)

		res, err = tx.NewUpdate().
			Model((*database.WatchProgress)(nil)).
			Set("user_id = ?", userID).
			Set("anonymous_id = NULL").
			Set("updated_at = NOW()").
			Where("anonymous_id = ?", anonymousID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate watch progress: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		result.MigratedProgress = int(n)
		return nil
	})
	if err != nil {
		return MigrationResult{}, err
	}
	return result, nil
}

type statsRow struct {
	TotalRentals       int `bun:"total_rentals"`
	ActiveRentals      int `bun:"active_rentals"`
	TotalWatchProgress int `bun:"total_watch_progress"`
	CompletedMovies    int `bun:"completed_movies"`
}

// Stats counts a user's rentals and progress rows in one round trip
func (r *Repository) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (Stats, error) {
	var row statsRow
	err := r.db.NewRaw(`
		SELECT
			(SELECT COUNT(*) FROM rentals WHERE user_id = ?0) AS total_rentals,
			(SELECT COUNT(*) FROM rentals WHERE user_id = ?0 AND expires_at > ?1) AS active_rentals,
			(SELECT COUNT(*) FROM watch_progress WHERE user_id = ?0) AS total_watch_progress,
			(SELECT COUNT(*) FROM watch_progress WHERE user_id = ?0 AND completed) AS completed_movies`,
		userID, now,
	).Scan(ctx, &row)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return Stats(row), nil
}

func mapRental(r *database.Rental) *Rental {
	return &Rental{
		ID:          r.ID,
		UserID:      r.UserID,
		AnonymousID: r.AnonymousID,
		MovieID:     r.MovieID,
		PurchasedAt: r.PurchasedAt,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

func mapProgress(p *database.WatchProgress) *WatchProgress {
	return &WatchProgress{
		ID:              p.ID,
		UserID:          p.UserID,
		AnonymousID:     p.AnonymousID,
		MovieID:         p.MovieID,
		ProgressSeconds: p.ProgressSeconds,
		DurationSeconds: p.DurationSeconds,
		Completed:       p.Completed,
		LastWatchedAt:   p.LastWatchedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
