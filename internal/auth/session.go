package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/user"
)

// Session is one logged-in device. Only the token hash is stored.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress *string   `json:"ipAddress,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the session is past its absolute expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientInfo is the request metadata recorded on new sessions.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *user.User `json:"user"`
	Token     string     `json:"token"`
	TokenType string     `json:"tokenType"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User    *user.User
	Session *Session
	Token   string
}

// hashToken returns the hex SHA-256 of a bearer or reset token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
