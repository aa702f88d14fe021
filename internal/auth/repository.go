package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository handles session persistence in PostgreSQL
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create stores a new session row
func (r *Repository) Create(ctx context.Context, session *Session) error {
	dbSession := &database.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		TokenHash: session.TokenHash,
		ExpiresAt: session.ExpiresAt,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
	}

	_, err := r.db.NewInsert().
		Model(dbSession).
		Returning("created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	session.CreatedAt = dbSession.CreatedAt
	return nil
}

// GetByTokenHash retrieves a session by the hash of its token
func (r *Repository) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("token_hash = ?", tokenHash).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return mapDBSessionToModel(dbSession), nil
}

// DeleteByTokenHash removes one session. Missing rows are not an error.
func (r *Repository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("token_hash = ?", tokenHash).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID removes every session for a user
func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes sessions past their expiry. Run by the admin CLI.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at <= NOW()").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func mapDBSessionToModel(dbs *database.Session) *Session {
	return &Session{
		ID:        dbs.ID,
		UserID:    dbs.UserID,
		TokenHash: dbs.TokenHash,
		ExpiresAt: dbs.ExpiresAt,
		IPAddress: dbs.IPAddress,
		UserAgent: dbs.UserAgent,
		CreatedAt: dbs.CreatedAt,
	}
}
