package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/user"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	svc      *Service
	users    *fakeUsers
	sessions *fakeSessions
	resets   *fakeResets
	mailer   *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := NewPasetoService(testKey)
	require.NoError(t, err)

	sessions := newFakeSessions()
	env := &testEnv{
		users:    newFakeUsers(sessions),
		sessions: sessions,
		resets:   newFakeResets(),
		mailer:   &fakeMailer{},
	}
	env.svc = NewService(env.users, env.sessions, env.resets, tokens, env.mailer, logging.Discard(), Options{
		SessionDuration:   time.Hour,
		MinPasswordLength: 8,
	})
	t.Cleanup(env.svc.Wait)
	return env
}

func (e *testEnv) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), email, password, nil, ClientInfo{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	return res
}

func TestRegister_CreatesUserAndSession(t *testing.T) {
	env := newTestEnv(t)
	name := "  Noy  "

	res, err := env.svc.Register(context.Background(), "Noy@Example.com", "supersecret", &name, ClientInfo{UserAgent: "test"})
	require.NoError(t, err)

	assert.Equal(t, "noy@example.com", res.User.Email)
	require.NotNil(t, res.User.DisplayName)
	assert.Equal(t, "Noy", *res.User.DisplayName)
	assert.Equal(t, user.RoleUser, res.User.Role)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 1, env.sessions.count())

	p, err := env.svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.User.ID)

	env.svc.Wait()
	mail, ok := env.mailer.last("verify")
	require.True(t, ok)
	assert.Equal(t, "noy@example.com", mail.to)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@example.com", "password1")

	_, err := env.svc.Register(context.Background(), "A@example.com", "password2", nil, ClientInfo{})
	require.ErrorIs(t, err, user.ErrDuplicateEmail)
	assert.Len(t, env.users.byID, 1)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "empty email", email: "", password: "password1", wantErr: ErrEmailRequired},
		{name: "malformed email", email: "not-an-email", password: "password1", wantErr: ErrInvalidEmailFormat},
		{name: "too long email", email: strings.Repeat("a", 250) + "@x.io", password: "password1", wantErr: ErrInvalidEmailFormat},
		{name: "empty password", email: "a@example.com", password: "", wantErr: ErrPasswordRequired},
		{name: "short password", email: "a@example.com", password: "1234567", wantErr: ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.Register(context.Background(), tt.email, tt.password, nil, ClientInfo{})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.users.byID)
			assert.Zero(t, env.sessions.count())
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@example.com", "password1")

	t.Run("success issues another session", func(t *testing.T) {
		res, err := env.svc.Login(context.Background(), "A@EXAMPLE.com", "password1", ClientInfo{})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, 2, env.sessions.count())
	})

	t.Run("wrong password", func(t *testing.T) {
		res, err := env.svc.Login(context.Background(), "a@example.com", "wrong-password", ClientInfo{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, res)
	})

	t.Run("unknown email has the same error", func(t *testing.T) {
		_, err := env.svc.Login(context.Background(), "nobody@example.com", "password1", ClientInfo{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, "invalid email or password", err.Error())
	})
}

func TestLogin_AccountWithoutPassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Create(context.Background(), user.CreateParams{Email: "oauth@example.com", Role: user.RoleUser})
	require.NoError(t, err)

	_, err = env.svc.Login(context.Background(), "oauth@example.com", "anything1", ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")

	t.Run("missing", func(t *testing.T) {
		_, err := env.svc.ValidateToken(context.Background(), "")
		require.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := env.svc.ValidateToken(context.Background(), "v4.local.garbage")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("session expired", func(t *testing.T) {
		env.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { env.svc.now = time.Now }()

		_, err := env.svc.ValidateToken(context.Background(), res.Token)
		require.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("signed token with no session row", func(t *testing.T) {
		tokens, err := NewPasetoService(testKey)
		require.NoError(t, err)
		forged, err := tokens.CreateToken(uuid.New(), res.User.ID, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = env.svc.ValidateToken(context.Background(), forged)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "a@example.com", "password1")
	second, err := env.svc.Login(context.Background(), "a@example.com", "password1", ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(context.Background(), first.Token))
	_, err = env.svc.ValidateToken(context.Background(), first.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	// other device unaffected
	_, err = env.svc.ValidateToken(context.Background(), second.Token)
	require.NoError(t, err)

	// already gone
	require.NoError(t, env.svc.Logout(context.Background(), first.Token))
}

func TestLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "a@example.com", "password1")
	second, err := env.svc.Login(context.Background(), "a@example.com", "password1", ClientInfo{})
	require.NoError(t, err)
	other := env.register(t, "b@example.com", "password1")

	n, err := env.svc.LogoutAll(context.Background(), first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, tok := range []string{first.Token, second.Token} {
		_, err := env.svc.ValidateToken(context.Background(), tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
	_, err = env.svc.ValidateToken(context.Background(), other.Token)
	require.NoError(t, err)
}

func TestRegister_SessionFailureRemovesUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sessions.createErr = errors.New("connection reset")

	_, err := env.svc.Register(ctx, "a@example.com", "password1", nil, ClientInfo{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrDuplicateEmail)

	_, err = env.users.GetByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, user.ErrNotFound)

	env.sessions.createErr = nil
	res, err := env.svc.Register(ctx, "a@example.com", "password1", nil, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", res.User.Email)
	assert.Equal(t, 1, env.sessions.count())
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	ctx := context.Background()

	t.Run("current password is checked before the new one", func(t *testing.T) {
		err := env.svc.ChangePassword(ctx, res.User.ID, "wrong-current", "short")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("short new password", func(t *testing.T) {
		err := env.svc.ChangePassword(ctx, res.User.ID, "password1", "short")
		require.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := env.svc.ChangePassword(ctx, res.User.ID, "wrong-current", "password2")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, env.svc.ChangePassword(ctx, res.User.ID, "password1", "password2"))

		_, err := env.svc.Login(ctx, "a@example.com", "password1", ClientInfo{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = env.svc.Login(ctx, "a@example.com", "password2", ClientInfo{})
		require.NoError(t, err)

		// sessions survive a password change
		_, err = env.svc.ValidateToken(ctx, res.Token)
		require.NoError(t, err)
	})
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	ctx := context.Background()

	err := env.svc.DeleteAccount(ctx, res.User.ID, "wrong-password")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = env.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(ctx, res.User.ID, "password1"))

	_, err = env.svc.Login(ctx, "a@example.com", "password1", ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.ValidateToken(ctx, res.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")

	name := "Souk"
	u, err := env.svc.UpdateProfile(context.Background(), res.User.ID, &name)
	require.NoError(t, err)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Souk", *u.DisplayName)

	blank := "   "
	u, err = env.svc.UpdateProfile(context.Background(), res.User.ID, &blank)
	require.NoError(t, err)
	assert.Nil(t, u.DisplayName)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	env.svc.Wait()
	mail, ok := env.mailer.last("verify")
	require.True(t, ok)

	t.Run("unknown token", func(t *testing.T) {
		require.ErrorIs(t, env.svc.VerifyEmail(context.Background(), "nope"), ErrInvalidVerificationToken)
	})

	t.Run("expired", func(t *testing.T) {
		env.users.setVerificationSentAt(res.User.ID, time.Now().Add(-25*time.Hour))
		require.ErrorIs(t, env.svc.VerifyEmail(context.Background(), mail.token), ErrVerificationExpired)
		env.users.setVerificationSentAt(res.User.ID, time.Now())
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, env.svc.VerifyEmail(context.Background(), mail.token))
		u, err := env.users.GetByID(context.Background(), res.User.ID)
		require.NoError(t, err)
		assert.True(t, u.EmailVerified)

		// token is single use
		require.ErrorIs(t, env.svc.VerifyEmail(context.Background(), mail.token), ErrInvalidVerificationToken)
	})
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	ctx := context.Background()

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	require.NoError(t, env.svc.RequestPasswordReset(ctx, "A@example.com"))
	env.svc.Wait()

	mail, ok := env.mailer.last("reset")
	require.True(t, ok)
	assert.Equal(t, "a@example.com", mail.to)

	require.ErrorIs(t, env.svc.ResetPassword(ctx, mail.token, "short"), ErrPasswordTooShort)
	require.ErrorIs(t, env.svc.ResetPassword(ctx, "bogus", "password2"), ErrPasswordResetTokenNotFound)

	require.NoError(t, env.svc.ResetPassword(ctx, mail.token, "password2"))

	// every session revoked, token consumed
	_, err := env.svc.ValidateToken(ctx, res.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, env.svc.ResetPassword(ctx, mail.token, "password3"), ErrPasswordResetTokenNotFound)

	_, err = env.svc.Login(ctx, "a@example.com", "password2", ClientInfo{})
	require.NoError(t, err)
}

func TestPruneExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")

	require.NoError(t, env.sessions.Create(context.Background(), &Session{
		ID:        uuid.New(),
		UserID:    res.User.ID,
		TokenHash: "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	n, err := env.svc.PruneExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, env.sessions.count())
}
