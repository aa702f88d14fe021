package activity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore mirrors the SQL semantics of Repository in memory.
type memStore struct {
	mu       sync.Mutex
	movies   map[uuid.UUID]bool
	rentals  []*Rental
	progress []*WatchProgress
}

func newMemStore(movies ...uuid.UUID) *memStore {
	s := &memStore{movies: map[uuid.UUID]bool{}}
	for _, m := range movies {
		s.movies[m] = true
	}
	return s
}

func matches(o Owner, userID *uuid.UUID, anonymousID *string) bool {
	if o.UserID != nil {
		return userID != nil && *userID == *o.UserID
	}
	return anonymousID != nil && *anonymousID == *o.AnonymousID
}

func (s *memStore) MovieExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movies[id], nil
}

func (s *memStore) FindActiveRental(_ context.Context, o Owner, movieID uuid.UUID, now time.Time) (*Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Rental
	for _, r := range s.rentals {
		if matches(o, r.UserID, r.AnonymousID) && r.MovieID == movieID && r.IsActive(now) {
			if best == nil || r.ExpiresAt.After(best.ExpiresAt) {
				best = r
			}
		}
	}
	if best == nil {
		return nil, ErrRentalNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) CreateRental(_ context.Context, r *Rental) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.movies[r.MovieID] {
		return ErrMovieNotFound
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	cp := *r
	s.rentals = append(s.rentals, &cp)
	return nil
}

func (s *memStore) ListRentals(_ context.Context, o Owner, includeExpired bool, now time.Time) ([]*Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Rental
	for _, r := range s.rentals {
		if matches(o, r.UserID, r.AnonymousID) && (includeExpired || r.IsActive(now)) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (s *memStore) FindLatestProgress(_ context.Context, o Owner, movieID uuid.UUID) (*WatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *WatchProgress
	for _, p := range s.progress {
		if matches(o, p.UserID, p.AnonymousID) && p.MovieID == movieID {
			if best == nil || p.LastWatchedAt.After(best.LastWatchedAt) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, ErrProgressNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) InsertProgress(_ context.Context, p *WatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.progress = append(s.progress, &cp)
	return nil
}

func (s *memStore) UpdateProgress(_ context.Context, p *WatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.progress {
		if existing.ID == p.ID {
			cp := *p
			s.progress[i] = &cp
		}
	}
	return nil
}

func (s *memStore) ListProgress(_ context.Context, o Owner) ([]*WatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*WatchProgress
	for _, p := range s.progress {
		if matches(o, p.UserID, p.AnonymousID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) Migrate(_ context.Context, userID uuid.UUID, anonymousID string) (MigrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res MigrationResult
	for _, r := range s.rentals {
		if r.AnonymousID != nil && *r.AnonymousID == anonymousID {
			id := userID
			r.UserID, r.AnonymousID = &id, nil
			res.MigratedRentals++
		}
	}
	for _, p := range s.progress {
		if p.AnonymousID != nil && *p.AnonymousID == anonymousID {
			id := userID
			p.UserID, p.AnonymousID = &id, nil
			res.MigratedProgress++
		}
	}
	return res, nil
}

func (s *memStore) Stats(_ context.Context, userID uuid.UUID, now time.Time) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, r := range s.rentals {
		if r.UserID != nil && *r.UserID == userID {
			st.TotalRentals++
			if r.ExpiresAt.After(now) {
				st.ActiveRentals++
			}
		}
	}
	for _, p := range s.progress {
		if p.UserID != nil && *p.UserID == userID {
			st.TotalWatchProgress++
			if p.Completed {
				st.CompletedMovies++
			}
		}
	}
	return st, nil
}

func (s *memStore) addRental(o Owner, movieID uuid.UUID, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rentals = append(s.rentals, &Rental{
		ID:          uuid.New(),
		UserID:      o.UserID,
		AnonymousID: o.AnonymousID,
		MovieID:     movieID,
		PurchasedAt: expiresAt.Add(-48 * time.Hour),
		ExpiresAt:   expiresAt,
	})
}

func (s *memStore) addProgress(o Owner, movieID uuid.UUID, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, &WatchProgress{
		ID:            uuid.New(),
		UserID:        o.UserID,
		AnonymousID:   o.AnonymousID,
		MovieID:       movieID,
		Completed:     completed,
		LastWatchedAt: time.Now(),
	})
}
