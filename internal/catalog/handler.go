package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/storage"
	"github.com/laocinema/lao-cinema-api/internal/tmdb"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

const (
	dateLayout     = "2006-01-02"
	maxUploadBytes = 10 << 20
)

// Handler exposes the catalog over HTTP
type Handler struct {
	service *Service
	sync    *SyncService
}

func NewHandler(service *Service, sync *SyncService) *Handler {
	return &Handler{service: service, sync: sync}
}

type CreateMovieRequest struct {
	TMDBID           *int          `json:"tmdbId" validate:"omitempty,gt=0"`
	OriginalTitle    string        `json:"originalTitle" validate:"max=500"`
	OriginalLanguage string        `json:"originalLanguage" validate:"omitempty,len=2"`
	Title            LocalizedText `json:"title" validate:"required,min=1,dive,keys,oneof=en lo,endkeys,required,max=500"`
	Overview         LocalizedText `json:"overview" validate:"omitempty,dive,keys,oneof=en lo,endkeys"`
	Tagline          LocalizedText `json:"tagline" validate:"omitempty,dive,keys,oneof=en lo,endkeys"`
	ReleaseDate      *string       `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Runtime          *int          `json:"runtime" validate:"omitempty,gte=0"`
	VideoURL         *string       `json:"videoUrl" validate:"omitempty,url"`
}

type UpdateMovieRequest struct {
	OriginalTitle    *string       `json:"originalTitle" validate:"omitempty,min=1,max=500"`
	OriginalLanguage *string       `json:"originalLanguage" validate:"omitempty,len=2"`
	Title            LocalizedText `json:"title" validate:"omitempty,dive,keys,oneof=en lo,endkeys,required,max=500"`
	Overview         LocalizedText `json:"overview" validate:"omitempty,dive,keys,oneof=en lo,endkeys"`
	Tagline          LocalizedText `json:"tagline" validate:"omitempty,dive,keys,oneof=en lo,endkeys"`
	ReleaseDate      *string       `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Runtime          *int          `json:"runtime" validate:"omitempty,gte=0"`
	VideoURL         *string       `json:"videoUrl" validate:"omitempty,url"`
}

type AddImageRequest struct {
	Type      string  `json:"type" validate:"required,oneof=poster backdrop logo"`
	FilePath  string  `json:"filePath" validate:"required,max=1024"`
	Language  *string `json:"language" validate:"omitempty,oneof=en lo"`
	Width     int     `json:"width" validate:"gte=0"`
	Height    int     `json:"height" validate:"gte=0"`
	IsPrimary bool    `json:"isPrimary"`
}

type SetPrimaryImageRequest struct {
	Type string `json:"type" validate:"required,oneof=poster backdrop logo"`
}

type AddCastRequest struct {
	PersonID  uuid.UUID `json:"personId" validate:"required"`
	Character string    `json:"character" validate:"max=500"`
	Order     int       `json:"order" validate:"gte=0"`
}

type AddCrewRequest struct {
	PersonID   uuid.UUID `json:"personId" validate:"required"`
	Department string    `json:"department" validate:"required,max=100"`
	Job        string    `json:"job" validate:"required,max=100"`
}

type ImportTMDBRequest struct {
	TMDBID int `json:"tmdbId" validate:"required,gt=0"`
}

type MovieResponse struct {
	Movie *Movie `json:"movie"`
}

type MoviesResponse struct {
	Movies []*Movie `json:"movies"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

type ImageResponse struct {
	Image *Image `json:"image"`
}

type ImagesResponse struct {
	Images []*Image `json:"images"`
}

// ListMovies returns a page of movies
// @Summary      List movies
// @Tags         movies
// @Produce      json
// @Param        limit query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {object} MoviesResponse
// @Router       /movies [get]
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	movies, err := h.service.ListMovies(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, offset = pageBounds(limit, offset)
	httputil.RespondJSON(w, MoviesResponse{Movies: movies, Limit: limit, Offset: offset}, http.StatusOK)
}

// GetMovie returns a movie with images and credits
// @Summary      Get movie
// @Tags         movies
// @Produce      json
// @Param        id path string true "Movie ID"
// @Success      200 {object} MovieResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id} [get]
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	movie, err := h.service.GetMovie(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, MovieResponse{Movie: movie}, http.StatusOK)
}

// CreateMovie adds a movie
// @Summary      Create movie
// @Tags         movies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateMovieRequest true "Movie"
// @Success      201 {object} MovieResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /movies [post]
func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	// Decode and validate request
	var req CreateMovieRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	releaseDate, ok := parseDate(w, req.ReleaseDate)
	if !ok {
		return
	}

	// Create movie
	movie, err := h.service.CreateMovie(r.Context(), MovieInput{
		TMDBID:           req.TMDBID,
		OriginalTitle:    req.OriginalTitle,
		OriginalLanguage: req.OriginalLanguage,
		Title:            req.Title,
		Overview:         req.Overview,
		Tagline:          req.Tagline,
		ReleaseDate:      releaseDate,
		Runtime:          req.Runtime,
		VideoURL:         req.VideoURL,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, MovieResponse{Movie: movie}, http.StatusCreated)
}

// UpdateMovie edits a movie
// @Summary      Update movie
// @Description  Only given fields change. Translations are merged per language.
// @Tags         movies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        request body UpdateMovieRequest true "Fields to change"
// @Success      200 {object} MovieResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id} [patch]
func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	// Decode and validate request
	var req UpdateMovieRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	releaseDate, ok := parseDate(w, req.ReleaseDate)
	if !ok {
		return
	}

	// Apply changes
	movie, err := h.service.UpdateMovie(r.Context(), id, MovieUpdate{
		OriginalTitle:    req.OriginalTitle,
		OriginalLanguage: req.OriginalLanguage,
		Title:            req.Title,
		Overview:         req.Overview,
		Tagline:          req.Tagline,
		ReleaseDate:      releaseDate,
		Runtime:          req.Runtime,
		VideoURL:         req.VideoURL,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, MovieResponse{Movie: movie}, http.StatusOK)
}

// DeleteMovie removes a movie
// @Summary      Delete movie
// @Tags         movies
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id} [delete]
func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMovie(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondMessage(w, "movie deleted", http.StatusOK)
}

// ListImages returns the images of a movie
// @Summary      List movie images
// @Tags         images
// @Produce      json
// @Param        id path string true "Movie ID"
// @Success      200 {object} ImagesResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/images [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	images, err := h.service.ListImages(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ImagesResponse{Images: images}, http.StatusOK)
}

// AddImage attaches an image by path or multipart upload
// @Summary      Add movie image
// @Description  Send JSON with filePath, or multipart/form-data with a "file" part plus type, language, width, height and isPrimary fields.
// @Tags         images
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        request body AddImageRequest false "Image by path"
// @Success      201 {object} ImageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/images [post]
func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var (
		in     ImageInput
		upload *Upload
	)
	// Multipart carries a file; JSON carries a path
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			httputil.RespondErrorWithCode(w, "invalid multipart body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.RespondErrorWithCode(w, ErrImageSource.Error(), httputil.CodeValidationError, http.StatusBadRequest)
			return
		}
		defer file.Close()

		in = imageInputFromForm(r)
		upload = &Upload{Name: header.Filename, Body: file}
	} else {
		var req AddImageRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		in = ImageInput(req)
	}

	// Store image
	img, err := h.service.AddImage(r.Context(), movieID, in, upload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ImageResponse{Image: img}, http.StatusCreated)
}

func imageInputFromForm(r *http.Request) ImageInput {
	in := ImageInput{Type: r.FormValue("type")}
	if lang := r.FormValue("language"); lang != "" {
		in.Language = &lang
	}
	in.Width, _ = strconv.Atoi(r.FormValue("width"))
	in.Height, _ = strconv.Atoi(r.FormValue("height"))
	in.IsPrimary, _ = strconv.ParseBool(r.FormValue("isPrimary"))
	return in
}

// SetPrimaryImage selects the primary image of a type
// @Summary      Set primary image
// @Description  Clears the flag on every other image of the type and mirrors the path onto the movie.
// @Tags         images
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        imageId path string true "Image ID"
// @Param        request body SetPrimaryImageRequest true "Image type"
// @Success      200 {object} ImageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/images/{imageId}/primary [put]
func (h *Handler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := pathUUID(w, r, "imageId")
	if !ok {
		return
	}
	var req SetPrimaryImageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	img, err := h.service.SetPrimaryImage(r.Context(), movieID, imageID, req.Type)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, ImageResponse{Image: img}, http.StatusOK)
}

// DeleteImage removes an image
// @Summary      Delete movie image
// @Tags         images
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        imageId path string true "Image ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/images/{imageId} [delete]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := pathUUID(w, r, "imageId")
	if !ok {
		return
	}
	if err := h.service.DeleteImage(r.Context(), movieID, imageID); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondMessage(w, "image deleted", http.StatusOK)
}

// AddCast credits a person as a character
// @Summary      Add cast credit
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        request body AddCastRequest true "Credit"
// @Success      201 {object} CastCredit
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/cast [post]
func (h *Handler) AddCast(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AddCastRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	credit, err := h.service.AddCast(r.Context(), movieID, CastInput(req))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, credit, http.StatusCreated)
}

// AddCrew credits a person with a job
// @Summary      Add crew credit
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        request body AddCrewRequest true "Credit"
// @Success      201 {object} CrewCredit
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/crew [post]
func (h *Handler) AddCrew(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AddCrewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	credit, err := h.service.AddCrew(r.Context(), movieID, CrewInput(req))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, credit, http.StatusCreated)
}

// RemoveCredit drops a person's credits on a movie
// @Summary      Remove credits
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Param        personId path string true "Person ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /movies/{id}/credits/{personId} [delete]
func (h *Handler) RemoveCredit(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	personID, ok := pathUUID(w, r, "personId")
	if !ok {
		return
	}
	if err := h.service.RemoveCredit(r.Context(), movieID, personID); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondMessage(w, "credit removed", http.StatusOK)
}

// ImportTMDB creates a movie from TMDB
// @Summary      Import movie from TMDB
// @Tags         tmdb
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ImportTMDBRequest true "TMDB id"
// @Success      201 {object} SyncResult
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /movies/import/tmdb [post]
func (h *Handler) ImportTMDB(w http.ResponseWriter, r *http.Request) {
	var req ImportTMDBRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.sync.ImportMovie(r.Context(), req.TMDBID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, result, http.StatusCreated)
}

// SyncTMDB refreshes a movie from TMDB
// @Summary      Sync movie from TMDB
// @Tags         tmdb
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Movie ID"
// @Success      200 {object} SyncResult
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /movies/{id}/sync-tmdb [post]
func (h *Handler) SyncTMDB(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.sync.SyncMovie(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, result, http.StatusOK)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid "+name, httputil.CodeValidationError, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst, false); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return false
	}
	return true
}

func parseDate(w http.ResponseWriter, s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		httputil.RespondErrorWithCode(w, "releaseDate must be YYYY-MM-DD", httputil.CodeValidationError, http.StatusBadRequest)
		return nil, false
	}
	return &t, true
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrMovieNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeMovieNotFound, http.StatusNotFound)
	case errors.Is(err, ErrImageNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeImageNotFound, http.StatusNotFound)
	case errors.Is(err, ErrPersonNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePersonNotFound, http.StatusNotFound)
	case errors.Is(err, ErrCreditNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeCreditNotFound, http.StatusNotFound)
	case errors.Is(err, tmdb.ErrNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrImageTypeMismatch):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeImageTypeMismatch, http.StatusBadRequest)
	case errors.Is(err, ErrMissingTMDBID):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeMissingTMDBID, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidReference):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidReference, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidImageType),
		errors.Is(err, ErrImageSource),
		errors.Is(err, ErrInvalidLanguage),
		errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrNomineeRequired),
		errors.Is(err, ErrInvalidNomineeType),
		errors.Is(err, storage.ErrUnsupportedType):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateTMDB):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeDuplicateTMDB, http.StatusConflict)
	case errors.Is(err, ErrDuplicateAccolade):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeConflict, http.StatusConflict)
	case errors.Is(err, ErrUpstream):
		logger.Warn("tmdb unavailable", "error", err)
		httputil.RespondErrorWithCode(w, "tmdb is unavailable, try again later", httputil.CodeUpstreamFailure, http.StatusBadGateway)
	default:
		logger.Error("catalog request failed", "error", err)
		httputil.RespondInternalError(w)
	}
}
