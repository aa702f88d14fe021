package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(env *testEnv, limiter RateLimiter) http.Handler {
	h := NewHandler(env.svc, limiter)
	mw := NewMiddleware(env.svc)

	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/me", h.Me)
		r.Patch("/me", h.UpdateMe)
		r.Patch("/me/password", h.ChangePassword)
		r.Delete("/me", h.DeleteMe)
		r.Post("/logout", h.Logout)
		r.Post("/logout-all", h.LogoutAll)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) AuthResult {
	t.Helper()
	var res AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHandler_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, &fakeLimiter{allow: true, cooldown: true})

	rec := doRequest(t, router, http.MethodPost, "/register", "", `{"email":"a@example.com","password":"password1","displayName":"A"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "argon2id")
	token := decodeAuth(t, rec).Token

	rec = doRequest(t, router, http.MethodGet, "/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@example.com"`)

	rec = doRequest(t, router, http.MethodPost, "/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Register_Errors(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, nil)

	rec := doRequest(t, router, http.MethodPost, "/register", "", `{"email":"a@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "duplicate", body: `{"email":"a@example.com","password":"password1"}`, wantCode: http.StatusConflict, wantErr: "EMAIL_ALREADY_EXISTS"},
		{name: "short password", body: `{"email":"b@example.com","password":"short"}`, wantCode: http.StatusBadRequest, wantErr: "PASSWORD_TOO_SHORT"},
		{name: "bad email", body: `{"email":"nope","password":"password1"}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_EMAIL_FORMAT"},
		{name: "malformed body", body: `{"email":`, wantCode: http.StatusBadRequest, wantErr: "INVALID_REQUEST_BODY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantErr)
		})
	}
}

func TestHandler_Login_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@example.com", "password1")
	router := newTestRouter(env, nil)

	rec := doRequest(t, router, http.MethodPost, "/login", "", `{"email":"a@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid email or password","code":"INVALID_CREDENTIALS"}`, rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/login", "", `{"email":"ghost@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid email or password","code":"INVALID_CREDENTIALS"}`, rec.Body.String())
}

func TestHandler_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, &fakeLimiter{allow: false})

	rec := doRequest(t, router, http.MethodPost, "/login", "", `{"email":"a@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_ForgotPassword_Cooldown(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, &fakeLimiter{allow: true, cooldown: false})

	rec := doRequest(t, router, http.MethodPost, "/forgot-password", "", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_ForgotPassword_CooldownIgnoresEmailCase(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, &fakeLimiter{allow: true, trackKeys: true})

	rec := doRequest(t, router, http.MethodPost, "/forgot-password", "", `{"email":"noy@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/forgot-password", "", `{"email":"  NOY@Example.COM "}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/forgot-password", "", `{"email":"other@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientInfo_TruncatesUserAgentOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		wantLen int
	}{
		{name: "short", ua: "Mozilla/5.0", wantLen: 11},
		{name: "ascii over limit", ua: strings.Repeat("a", 600), wantLen: maxUserAgentLength},
		{name: "multibyte rune across the limit", ua: strings.Repeat("a", 511) + "ລາວ", wantLen: 511},
		{name: "multibyte rune ending at the limit", ua: strings.Repeat("a", 509) + "ລາວ", wantLen: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.Header.Set("User-Agent", tt.ua)

			got := clientInfo(req).UserAgent
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), maxUserAgentLength)
			assert.Len(t, got, tt.wantLen)
			assert.True(t, strings.HasPrefix(tt.ua, got))
		})
	}
}

func TestHandler_ChangePasswordAndDelete(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	router := newTestRouter(env, nil)

	rec := doRequest(t, router, http.MethodPatch, "/me/password", res.Token, `{"currentPassword":"wrong-one","newPassword":"password2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/me/password", res.Token, `{"currentPassword":"wrong-one","newPassword":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/me/password", res.Token, `{"currentPassword":"password1","newPassword":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/me/password", res.Token, `{"currentPassword":"password1","newPassword":"password2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/me", res.Token, `{"password":"password1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/me", res.Token, `{"password":"password2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/login", "", `{"email":"a@example.com","password":"password2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_LogoutAll(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "a@example.com", "password1")
	router := newTestRouter(env, nil)

	rec := doRequest(t, router, http.MethodPost, "/login", "", `{"email":"a@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeAuth(t, rec).Token

	rec = doRequest(t, router, http.MethodPost, "/logout-all", second, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"revokedSessions":2`)

	for _, tok := range []string{first.Token, second} {
		rec = doRequest(t, router, http.MethodGet, "/me", tok, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestMiddleware_HeaderErrors(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env, nil)

	rec := doRequest(t, router, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_HEADER")
}

func TestOptionalAuth(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@example.com", "password1")
	mw := NewMiddleware(env.svc)

	var gotUser bool
	h := mw.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, gotUser = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		header string
		want   bool
	}{
		{header: "", want: false},
		{header: "Bearer not-a-token", want: false},
		{header: "Bearer " + res.Token, want: true},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, tc.want, gotUser, tc.header)
	}
}
