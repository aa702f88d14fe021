package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/user"
)

// TokenService creates and parses the bearer tokens handed to clients.
type TokenService interface {
	CreateToken(sessionID, userID uuid.UUID, expiresAt time.Time) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository is the subset of the account store the service needs.
type UserRepository interface {
	Create(ctx context.Context, params user.CreateParams) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName *string) (*user.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// SessionRepository persists sessions keyed by token hash.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// ResetTokenRepository stores short-lived password reset tokens.
type ResetTokenRepository interface {
	StorePasswordResetToken(ctx context.Context, userID uuid.UUID, token string) error
	GetPasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)
	DeletePasswordResetToken(ctx context.Context, token string) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}
