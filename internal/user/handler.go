package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

// RoleStore is the part of *Repository the admin endpoints need.
type RoleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role string) error
}

// AdminHandler serves user management for administrators.
// Access control is applied by the router.
type AdminHandler struct {
	users RoleStore
}

func NewAdminHandler(users RoleStore) *AdminHandler {
	return &AdminHandler{users: users}
}

// UpdateRoleRequest represents PATCH /admin/users/{id}/role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user editor admin"`
}

// UserResponse wraps a single user
type UserResponse struct {
	User *User `json:"user"`
}

// UpdateRole changes a user's role
// @Summary      Change user role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body UpdateRoleRequest true "New role"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /admin/users/{id}/role [patch]
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	var req UpdateRoleRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRole, http.StatusBadRequest)
		return
	}

	if err := h.users.UpdateRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update role", "user_id", id, "error", err)
		httputil.RespondInternalError(w)
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("failed to reload user", "user_id", id, "error", err)
		httputil.RespondInternalError(w)
		return
	}

	logger.Info("user role changed", "user_id", id, "role", req.Role)
	httputil.RespondJSON(w, UserResponse{User: u}, http.StatusOK)
}
