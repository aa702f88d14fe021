package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/user"
)

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*user.User
	sessions *fakeSessions
}

func newFakeUsers(sessions *fakeSessions) *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*user.User{}, sessions: sessions}
}

func (f *fakeUsers) Create(_ context.Context, p user.CreateParams) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == p.Email {
			return nil, user.ErrDuplicateEmail
		}
	}
	now := time.Now()
	u := &user.User{
		ID:                     uuid.New(),
		Email:                  p.Email,
		PasswordHash:           p.PasswordHash,
		DisplayName:            p.DisplayName,
		Role:                   p.Role,
		EmailVerificationToken: p.VerificationToken,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if p.VerificationToken != nil {
		u.EmailVerificationSentAt = &now
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if !u.EmailVerified && u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) MarkEmailAsVerified(_ context.Context, userID uuid.UUID) error {
	return f.update(userID, func(u *user.User) {
		u.EmailVerified = true
		u.EmailVerificationToken = nil
		u.EmailVerificationSentAt = nil
	})
}

func (f *fakeUsers) UpdateVerificationToken(_ context.Context, userID uuid.UUID, token string) error {
	return f.update(userID, func(u *user.User) {
		now := time.Now()
		u.EmailVerificationToken = &token
		u.EmailVerificationSentAt = &now
	})
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID uuid.UUID, hash string) error {
	return f.update(userID, func(u *user.User) { u.PasswordHash = &hash })
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID uuid.UUID, displayName *string) (*user.User, error) {
	if err := f.update(userID, func(u *user.User) { u.DisplayName = displayName }); err != nil {
		return nil, err
	}
	return f.GetByID(context.Background(), userID)
}

func (f *fakeUsers) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	_, ok := f.byID[userID]
	delete(f.byID, userID)
	f.mu.Unlock()
	if !ok {
		return user.ErrNotFound
	}
	if f.sessions != nil {
		_, _ = f.sessions.DeleteByUserID(context.Background(), userID)
	}
	return nil
}

func (f *fakeUsers) update(id uuid.UUID, fn func(*user.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) setVerificationSentAt(id uuid.UUID, t time.Time) {
	_ = f.update(id, func(u *user.User) { u.EmailVerificationSentAt = &t })
}

type fakeSessions struct {
	mu        sync.Mutex
	byHash    map[string]*Session
	createErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: map[string]*Session{}}
}

func (f *fakeSessions) Create(_ context.Context, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	s.CreatedAt = time.Now()
	cp := *s
	f.byHash[s.TokenHash] = &cp
	return nil
}

func (f *fakeSessions) GetByTokenHash(_ context.Context, hash string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byHash[hash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) DeleteByTokenHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byHash, hash)
	return nil
}

func (f *fakeSessions) DeleteByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, s := range f.byHash {
		if s.UserID == userID {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for h, s := range f.byHash {
		if s.IsExpired(now) {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byHash)
}

type fakeResets struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeResets() *fakeResets {
	return &fakeResets{tokens: map[string]uuid.UUID{}}
}

func (f *fakeResets) StorePasswordResetToken(_ context.Context, userID uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeResets) GetPasswordResetToken(_ context.Context, token string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	return id, nil
}

func (f *fakeResets) DeletePasswordResetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

type sentEmail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "verify", to: to, token: token})
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "reset", to: to, token: token})
	return nil
}

func (f *fakeMailer) last(kind string) (sentEmail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i], true
		}
	}
	return sentEmail{}, false
}

type fakeLimiter struct {
	allow    bool
	cooldown bool
	err      error

	// when set, AcquireCooldown succeeds once per purpose and key
	trackKeys bool
	mu        sync.Mutex
	held      map[string]bool
}

func (f *fakeLimiter) Allow(context.Context, string, string) (bool, error) {
	return f.allow, f.err
}

func (f *fakeLimiter) AcquireCooldown(_ context.Context, purpose, key string) (bool, error) {
	if !f.trackKeys {
		return f.cooldown, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	k := purpose + ":" + key
	if f.held[k] {
		return false, nil
	}
	f.held[k] = true
	return true, nil
}
