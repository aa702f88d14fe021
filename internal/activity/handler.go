package activity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/auth"
	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

// AnonymousIDHeader carries the client-generated id of a not-logged-in browser.
const AnonymousIDHeader = "X-Anonymous-Id"

// Handler exposes rentals, watch progress and migration over HTTP
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MigrateRequest is the body of POST /users/migrate
type MigrateRequest struct {
	AnonymousID string `json:"anonymousId" validate:"required,max=128"`
}

// SaveProgressRequest is the body of PUT /watch-progress/{movieId}
type SaveProgressRequest struct {
	ProgressSeconds int  `json:"progressSeconds" validate:"gte=0"`
	DurationSeconds int  `json:"durationSeconds" validate:"gte=0"`
	Completed       bool `json:"completed"`
}

type RentalResponse struct {
	Rental *Rental `json:"rental"`
}

type RentalsResponse struct {
	Rentals []*Rental `json:"rentals"`
}

type ProgressResponse struct {
	Progress *WatchProgress `json:"progress"`
}

type ProgressListResponse struct {
	Progress []*WatchProgress `json:"progress"`
}

// Rent creates or returns an active rental
// @Summary      Rent a movie
// @Description  Returns the caller's active rental (200) or creates one (201). Anonymous callers send X-Anonymous-Id.
// @Tags         rentals
// @Produce      json
// @Param        movieId path string true "Movie ID"
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Success      200 {object} RentalResponse
// @Success      201 {object} RentalResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /rentals/{movieId} [post]
func (h *Handler) Rent(w http.ResponseWriter, r *http.Request) {
	owner, movieID, ok := h.ownerAndMovie(w, r)
	if !ok {
		return
	}

	rental, created, err := h.service.Rent(r.Context(), owner, movieID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.RespondJSON(w, RentalResponse{Rental: rental}, status)
}

// ListRentals lists the caller's rentals
// @Summary      List rentals
// @Tags         rentals
// @Produce      json
// @Param        includeExpired query bool false "Include expired rentals"
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Success      200 {object} RentalsResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /rentals [get]
func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	includeExpired, _ := strconv.ParseBool(r.URL.Query().Get("includeExpired"))

	rentals, err := h.service.ListRentals(r.Context(), owner, includeExpired)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, RentalsResponse{Rentals: rentals}, http.StatusOK)
}

// GetRental returns the active rental of a movie
// @Summary      Get active rental
// @Tags         rentals
// @Produce      json
// @Param        movieId path string true "Movie ID"
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Success      200 {object} RentalResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /rentals/{movieId} [get]
func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	owner, movieID, ok := h.ownerAndMovie(w, r)
	if !ok {
		return
	}

	rental, err := h.service.GetRental(r.Context(), owner, movieID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, RentalResponse{Rental: rental}, http.StatusOK)
}

// SaveProgress records playback position
// @Summary      Save watch progress
// @Tags         watch-progress
// @Accept       json
// @Produce      json
// @Param        movieId path string true "Movie ID"
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Param        request body SaveProgressRequest true "Progress"
// @Success      200 {object} ProgressResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /watch-progress/{movieId} [put]
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	owner, movieID, ok := h.ownerAndMovie(w, r)
	if !ok {
		return
	}

	var req SaveProgressRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	progress, err := h.service.SaveProgress(r.Context(), owner, movieID, ProgressUpdate(req))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ProgressResponse{Progress: progress}, http.StatusOK)
}

// GetProgress returns progress for one movie
// @Summary      Get watch progress
// @Tags         watch-progress
// @Produce      json
// @Param        movieId path string true "Movie ID"
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Success      200 {object} ProgressResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /watch-progress/{movieId} [get]
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	owner, movieID, ok := h.ownerAndMovie(w, r)
	if !ok {
		return
	}

	progress, err := h.service.GetProgress(r.Context(), owner, movieID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ProgressResponse{Progress: progress}, http.StatusOK)
}

// ListProgress returns all progress rows of the caller
// @Summary      List watch progress
// @Tags         watch-progress
// @Produce      json
// @Param        X-Anonymous-Id header string false "Anonymous client id"
// @Success      200 {object} ProgressListResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /watch-progress [get]
func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	progress, err := h.service.ListProgress(r.Context(), owner)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ProgressListResponse{Progress: progress}, http.StatusOK)
}

// Migrate moves anonymous activity onto the authenticated user
// @Summary      Migrate anonymous activity
// @Description  Reassigns every rental and watch-progress row of anonymousId to the caller. Repeating the call returns zero counts.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body MigrateRequest true "Anonymous id"
// @Success      200 {object} MigrationResult
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /users/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req MigrateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAnonymousIDRequired, http.StatusBadRequest)
		return
	}

	result, err := h.service.Migrate(r.Context(), userID, req.AnonymousID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, result, http.StatusOK)
}

// Stats returns activity counts of the authenticated user
// @Summary      Activity statistics
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Stats
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /users/me/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, stats, http.StatusOK)
}

// owner resolves the caller: an authenticated user wins over X-Anonymous-Id.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (Owner, bool) {
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		return UserOwner(userID), true
	}

	anonymousID := r.Header.Get(AnonymousIDHeader)
	if anonymousID == "" {
		httputil.RespondErrorWithCode(w, ErrOwnerRequired.Error(), httputil.CodeOwnerRequired, http.StatusUnauthorized)
		return Owner{}, false
	}
	owner, err := AnonymousOwner(anonymousID)
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return Owner{}, false
	}
	return owner, true
}

func (h *Handler) ownerAndMovie(w http.ResponseWriter, r *http.Request) (Owner, uuid.UUID, bool) {
	owner, ok := h.owner(w, r)
	if !ok {
		return Owner{}, uuid.Nil, false
	}
	movieID, err := uuid.Parse(chi.URLParam(r, "movieId"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid movie id", httputil.CodeValidationError, http.StatusBadRequest)
		return Owner{}, uuid.Nil, false
	}
	return owner, movieID, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrOwnerRequired):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeOwnerRequired, http.StatusUnauthorized)
	case errors.Is(err, ErrAnonymousIDRequired):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAnonymousIDRequired, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidAnonymousID), errors.Is(err, ErrInvalidProgress):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
	case errors.Is(err, ErrMovieNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeMovieNotFound, http.StatusNotFound)
	case errors.Is(err, ErrRentalNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeRentalNotFound, http.StatusNotFound)
	case errors.Is(err, ErrProgressNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeProgressNotFound, http.StatusNotFound)
	default:
		logging.GetLoggerFromContext(r.Context()).Error("activity request failed", "error", err)
		httputil.RespondInternalError(w)
	}
}
