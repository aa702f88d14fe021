package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/user"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrInvalidPassword          = errors.New("current password is incorrect")
	ErrMissingToken             = errors.New("missing authentication token")
	ErrEmailRequired            = errors.New("email is required")
	ErrInvalidEmailFormat       = errors.New("invalid email format")
	ErrPasswordRequired         = errors.New("password is required")
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrVerificationExpired      = errors.New("verification token has expired")
)

const (
	maxEmailLength           = 254
	verificationTokenTTL     = 24 * time.Hour
	defaultMinPasswordLength = 8
)

// Options holds the tunables of the session issuer.
type Options struct {
	SessionDuration   time.Duration
	MinPasswordLength int
}

// Service handles authentication business logic
type Service struct {
	users    UserRepository
	sessions SessionRepository
	resets   ResetTokenRepository
	tokens   TokenService
	mailer   EmailService
	logger   *logging.Logger

	sessionDuration   time.Duration
	minPasswordLength int
	now               func() time.Time

	// tracks detached email sends so shutdown can wait for them
	pending sync.WaitGroup
}

func NewService(
	users UserRepository,
	sessions SessionRepository,
	resets ResetTokenRepository,
	tokens TokenService,
	mailer EmailService,
	logger *logging.Logger,
	opts Options,
) *Service {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = defaultMinPasswordLength
	}
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = 30 * 24 * time.Hour
	}
	return &Service{
		users:             users,
		sessions:          sessions,
		resets:            resets,
		tokens:            tokens,
		mailer:            mailer,
		logger:            logger,
		sessionDuration:   opts.SessionDuration,
		minPasswordLength: opts.MinPasswordLength,
		now:               time.Now,
	}
}

// MinPasswordLength is the configured minimum password length.
func (s *Service) MinPasswordLength() int {
	return s.minPasswordLength
}

// Wait blocks until every background email send has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Register creates an account with an initial session.
func (s *Service) Register(ctx context.Context, email, password string, displayName *string, client ClientInfo) (*AuthResult, error) {
	// Validate input
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(password); err != nil {
		return nil, err
	}

	// Hash password
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Generate verification token
	verificationToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	// Create user
	newUser, err := s.users.Create(ctx, user.CreateParams{
		Email:             email,
		PasswordHash:      &passwordHash,
		DisplayName:       trimOptional(displayName),
		Role:              user.RoleUser,
		VerificationToken: &verificationToken,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Issue the first session; on failure remove the user so the email stays free
	result, err := s.issueSession(ctx, newUser, client)
	if err != nil {
		if delErr := s.users.Delete(context.WithoutCancel(ctx), newUser.ID); delErr != nil {
			s.logger.Error("failed to remove user after session error", "user_id", newUser.ID, "error", delErr)
		}
		return nil, err
	}

	// Send verification email
	s.sendAsync("verification", email, func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, email, verificationToken)
	})

	return result, nil
}

// Login authenticates a user and issues a new session.
// Every failure is reported as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	// Find user by email
	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Verify password
	if !existingUser.HasPassword() || !VerifyPassword(*existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, existingUser, client)
}

// ValidateToken resolves a bearer token to its session and user. Read-only.
func (s *Service) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	// Check the token signature and expiry first
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	// Session row must exist and match the claims
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.ID != claims.SessionID || session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	if session.IsExpired(s.now()) {
		return nil, ErrExpiredToken
	}

	u, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &Principal{User: u, Session: session, Token: token}, nil
}

// Logout deletes the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, hashToken(token))
}

// LogoutAll deletes every session for the user and returns how many were removed.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.sessions.DeleteByUserID(ctx, userID)
}

// PruneExpiredSessions removes sessions past their expiry.
func (s *Service) PruneExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// GetMe returns the current user's account.
func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile sets or clears the display name.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName *string) (*user.User, error) {
	return s.users.UpdateProfile(ctx, userID, trimOptional(displayName))
}

// ChangePassword replaces the password hash. Existing sessions stay valid.
// The current password is verified before the new one is validated.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	// Verify current password
	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !existingUser.HasPassword() || !VerifyPassword(*existingUser.PasswordHash, currentPassword) {
		return ErrInvalidPassword
	}

	// Validate new password
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	// Hash and store
	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, userID, passwordHash)
}

// DeleteAccount removes the user row after confirming the password.
// Sessions, rentals and watch progress go with it.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !existingUser.HasPassword() || !VerifyPassword(*existingUser.PasswordHash, password) {
		return ErrInvalidPassword
	}

	return s.users.Delete(ctx, userID)
}

// VerifyEmail verifies a user's email using the verification token
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerificationToken
	}

	existingUser, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("failed to find user by token: %w", err)
	}

	if existingUser.EmailVerificationSentAt == nil ||
		s.now().After(existingUser.EmailVerificationSentAt.Add(verificationTokenTTL)) {
		return ErrVerificationExpired
	}

	if err := s.users.MarkEmailAsVerified(ctx, existingUser.ID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	return nil
}

// ResendVerificationEmail sends a new verification email.
// Always returns nil to prevent email enumeration.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for resend verification", "error", err)
		}
		return nil
	}
	if existingUser.EmailVerified {
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate verification token", "error", err)
		return nil
	}

	if err := s.users.UpdateVerificationToken(ctx, existingUser.ID, token); err != nil {
		s.logger.Warn("failed to update verification token", "error", err)
		return nil
	}

	s.sendAsync("verification", email, func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, email, token)
	})
	return nil
}

// RequestPasswordReset issues a reset token and mails it.
// Always returns nil to prevent email enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := s.resets.StorePasswordResetToken(ctx, existingUser.ID, token); err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	s.sendAsync("password reset", email, func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, email, token)
	})
	return nil
}

// ResetPassword sets a new password from a reset token and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.resets.GetPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to get password reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.resets.DeletePasswordResetToken(ctx, token); err != nil {
		s.logger.Warn("failed to delete password reset token", "error", err)
	}
	if _, err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", "error", err)
	}

	return nil
}

func (s *Service) issueSession(ctx context.Context, u *user.User, client ClientInfo) (*AuthResult, error) {
	sessionID := uuid.New()
	expiresAt := s.now().Add(s.sessionDuration)

	token, err := s.tokens.CreateToken(sessionID, u.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	session := &Session{
		ID:        sessionID,
		UserID:    u.ID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		IPAddress: optional(client.IPAddress),
		UserAgent: optional(client.UserAgent),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &AuthResult{
		User:      u,
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}

// sendAsync runs send on a detached context so request cancellation doesn't abort it.
func (s *Service) sendAsync(kind, email string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(logging.WithContext(ctx, s.logger)); err != nil {
			s.logger.Warn("failed to send email", "kind", kind, "email", email, "error", err)
		}
	}()
}

func (s *Service) validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < s.minPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", ErrPasswordTooShort, s.minPasswordLength)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return ErrInvalidEmailFormat
	}
	if err := validation.Validator().Var(email, "email"); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
