package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"unicode/utf8"

	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/user"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

// RateLimiter guards the unauthenticated endpoints. Errors fail open.
type RateLimiter interface {
	Allow(ctx context.Context, purpose, key string) (bool, error)
	AcquireCooldown(ctx context.Context, purpose, key string) (bool, error)
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
}

func NewHandler(service *Service, rateLimiter RateLimiter) *Handler {
	return &Handler{service: service, rateLimiter: rateLimiter}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents PATCH /me
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
}

// ChangePasswordRequest represents PATCH /me/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// DeleteAccountRequest represents DELETE /me
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// EmailRequest is used by forgot-password and resend-verification
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse wraps the current user
type UserResponse struct {
	User *user.User `json:"user"`
}

// LogoutAllResponse reports how many sessions were removed
type LogoutAllResponse struct {
	Message         string `json:"message"`
	RevokedSessions int64  `json:"revokedSessions"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an account and return its first session token. A verification email is sent in the background.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} AuthResult
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		logger.Warn("invalid registration request body", "error", err)
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName, clientInfo(r))
	if err != nil {
		if h.respondCredentialValidation(w, err) {
			logger.Warn("registration failed: validation error", "error", err)
			return
		}
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
			respondError(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("registration failed: internal error", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("user registered", "user_id", result.User.ID)
	respondJSON(w, result, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResult
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		logger.Warn("invalid login request body", "error", err)
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			respondError(w, ErrInvalidCredentials.Error(), httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("user logged in", "user_id", result.User.ID)
	respondJSON(w, result, http.StatusOK)
}

// Me returns the current user
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}
	respondJSON(w, UserResponse{User: principal.User}, http.StatusOK)
}

// UpdateMe updates the display name
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), principal.User.ID, req.DisplayName)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}
		logger.Error("profile update failed", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	respondJSON(w, UserResponse{User: updated}, http.StatusOK)
}

// ChangePassword replaces the caller's password
// @Summary      Change password
// @Description  Existing sessions are kept. Call logout-all to sign out other devices.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "New password too short"
// @Failure      401 {object} httputil.ErrorResponse "Current password incorrect"
// @Router       /auth/me/password [patch]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ChangePassword(r.Context(), principal.User.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if h.respondCredentialValidation(w, err) {
			return
		}
		if errors.Is(err, ErrInvalidPassword) || errors.Is(err, user.ErrNotFound) {
			logger.Warn("password change failed: invalid current password")
			respondError(w, ErrInvalidPassword.Error(), httputil.CodeInvalidPassword, http.StatusUnauthorized)
			return
		}
		logger.Error("password change failed: internal error", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("password changed")
	httputil.RespondMessage(w, "password updated", http.StatusOK)
}

// Logout deletes the current session
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.MessageResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), principal.Token); err != nil {
		logger.Error("logout failed", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("user logged out")
	httputil.RespondMessage(w, "logged out", http.StatusOK)
}

// LogoutAll deletes every session of the caller
// @Summary      Logout from all devices
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} LogoutAllResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/logout-all [post]
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	n, err := h.service.LogoutAll(r.Context(), principal.User.ID)
	if err != nil {
		logger.Error("logout-all failed", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("user logged out everywhere", "sessions", n)
	respondJSON(w, LogoutAllResponse{Message: "logged out from all devices", RevokedSessions: n}, http.StatusOK)
}

// DeleteMe permanently deletes the caller's account
// @Summary      Delete account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeleteAccountRequest true "Password confirmation"
// @Success      200 {object} httputil.MessageResponse
// @Failure      401 {object} httputil.ErrorResponse "Password incorrect"
// @Router       /auth/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), principal.User.ID, req.Password); err != nil {
		if errors.Is(err, ErrInvalidPassword) || errors.Is(err, user.ErrNotFound) {
			logger.Warn("account deletion failed: invalid password")
			respondError(w, "password is incorrect", httputil.CodeInvalidPassword, http.StatusUnauthorized)
			return
		}
		logger.Error("account deletion failed: internal error", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("account deleted")
	httputil.RespondMessage(w, "account deleted", http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "verification token required", httputil.CodeVerificationMissing, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrVerificationExpired):
			logger.Warn("email verification failed: token expired")
			respondError(w, "verification link has expired, please request a new one", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidVerificationToken):
			logger.Warn("email verification failed: invalid token")
			respondError(w, "invalid verification token", httputil.CodeVerificationFailed, http.StatusBadRequest)
		default:
			logger.Error("email verification failed: internal error", "error", err)
			httputil.RespondInternalError(w)
		}
		return
	}

	logger.Info("email verified")
	httputil.RespondMessage(w, "email verified", http.StatusOK)
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Always succeeds to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if !h.allow(w, r, "resend-verification") || !h.cooldown(w, r, "resend-verification", req.Email) {
		return
	}

	_ = h.service.ResendVerificationEmail(r.Context(), req.Email)

	httputil.RespondMessage(w, "If your email is registered and not verified, a new verification link has been sent.", http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Always succeeds to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if !h.allow(w, r, "forgot-password") || !h.cooldown(w, r, "forgot-password", req.Email) {
		return
	}

	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondMessage(w, "If an account exists with that email, a password reset link has been sent.", http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Sets a new password and revokes every session of the account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if h.respondCredentialValidation(w, err) {
			return
		}
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("password reset")
	httputil.RespondMessage(w, "Password reset successfully. You can now login with your new password.", http.StatusOK)
}

// respondCredentialValidation writes a 400 for email/password validation errors.
func (h *Handler) respondCredentialValidation(w http.ResponseWriter, err error) bool {
	var code string
	switch {
	case errors.Is(err, ErrEmailRequired):
		code = httputil.CodeEmailRequired
	case errors.Is(err, ErrInvalidEmailFormat):
		code = httputil.CodeInvalidEmailFormat
	case errors.Is(err, ErrPasswordRequired):
		code = httputil.CodePasswordRequired
	case errors.Is(err, ErrPasswordTooShort):
		code = httputil.CodePasswordTooShort
	default:
		return false
	}
	respondError(w, err.Error(), code, http.StatusBadRequest)
	return true
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return true
	}
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	ok, err := h.rateLimiter.Allow(r.Context(), purpose, ip)
	if err != nil {
		logger.Error("failed to check rate limit", "purpose", purpose, "error", err)
		return true
	}
	if !ok {
		logger.Warn("rate limit exceeded", "purpose", purpose, "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

func (h *Handler) cooldown(w http.ResponseWriter, r *http.Request, purpose, email string) bool {
	if h.rateLimiter == nil || email == "" {
		return true
	}
	logger := logging.GetLoggerFromContext(r.Context())

	ok, err := h.rateLimiter.AcquireCooldown(r.Context(), purpose, normalizeEmail(email))
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err)
		return true
	}
	if !ok {
		respondError(w, "please wait before requesting another email", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

const maxUserAgentLength = 512

func clientInfo(r *http.Request) ClientInfo {
	return ClientInfo{IPAddress: getClientIP(r), UserAgent: truncateUTF8(r.UserAgent(), maxUserAgentLength)}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// getClientIP returns the caller's IP. chi's RealIP middleware has already
// rewritten RemoteAddr from X-Forwarded-For / X-Real-IP.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

