package catalog

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/httputil"
)

type CreatePersonRequest struct {
	TMDBID             *int          `json:"tmdbId" validate:"omitempty,gt=0"`
	Name               LocalizedText `json:"name" validate:"required,min=1,dive,keys,oneof=en lo,endkeys,required,max=300"`
	Biography          LocalizedText `json:"biography" validate:"omitempty,dive,keys,oneof=en lo,endkeys"`
	KnownForDepartment *string       `json:"knownForDepartment" validate:"omitempty,max=100"`
	ProfilePath        *string       `json:"profilePath" validate:"omitempty,max=1024"`
}

type CreateEventRequest struct {
	Name LocalizedText `json:"name" validate:"required,min=1,dive,keys,oneof=en lo,endkeys,required"`
}

type CreateEditionRequest struct {
	EventID       uuid.UUID `json:"eventId" validate:"required"`
	Year          int       `json:"year" validate:"required,gte=1888,lte=2200"`
	EditionNumber *int      `json:"editionNumber" validate:"omitempty,gt=0"`
}

type CreateSectionRequest struct {
	EventID uuid.UUID     `json:"eventId" validate:"required"`
	Name    LocalizedText `json:"name" validate:"required,min=1,dive,keys,oneof=en lo,endkeys,required"`
}

type CreateCategoryRequest struct {
	EventID     uuid.UUID     `json:"eventId" validate:"required"`
	SectionID   *uuid.UUID    `json:"sectionId"`
	Name        LocalizedText `json:"name" validate:"required,min=1,dive,keys,oneof=en lo,endkeys,required"`
	NomineeType string        `json:"nomineeType" validate:"required,oneof=person movie"`
}

type CreateNominationRequest struct {
	EditionID       uuid.UUID  `json:"editionId" validate:"required"`
	CategoryID      uuid.UUID  `json:"categoryId" validate:"required"`
	PersonID        *uuid.UUID `json:"personId"`
	MovieID         *uuid.UUID `json:"movieId"`
	ForMovieID      *uuid.UUID `json:"forMovieId"`
	IsWinner        bool       `json:"isWinner"`
	RecognitionType *string    `json:"recognitionType" validate:"omitempty,max=100"`
}

type CreateSelectionRequest struct {
	EditionID uuid.UUID `json:"editionId" validate:"required"`
	SectionID uuid.UUID `json:"sectionId" validate:"required"`
	MovieID   uuid.UUID `json:"movieId" validate:"required"`
}

type PersonResponse struct {
	Person *Person `json:"person"`
}

type PeopleResponse struct {
	People []*Person `json:"people"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// ListPeople returns a page of people
// @Summary      List people
// @Tags         people
// @Produce      json
// @Param        limit query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {object} PeopleResponse
// @Router       /people [get]
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	people, err := h.service.ListPeople(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, offset = pageBounds(limit, offset)
	httputil.RespondJSON(w, PeopleResponse{People: people, Limit: limit, Offset: offset}, http.StatusOK)
}

// GetPerson returns one person
// @Summary      Get person
// @Tags         people
// @Produce      json
// @Param        id path string true "Person ID"
// @Success      200 {object} PersonResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /people/{id} [get]
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	person, err := h.service.GetPerson(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, PersonResponse{Person: person}, http.StatusOK)
}

// CreatePerson adds a person
// @Summary      Create person
// @Tags         people
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePersonRequest true "Person"
// @Success      201 {object} PersonResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /people [post]
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	person, err := h.service.CreatePerson(r.Context(), PersonInput(req))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, PersonResponse{Person: person}, http.StatusCreated)
}

// GetPersonAccolades returns a person's awards and their films' accolades
// @Summary      Person accolades
// @Description  Winners first, then other nominations, then section selections; newest edition first within each group.
// @Tags         people
// @Produce      json
// @Param        id path string true "Person ID"
// @Success      200 {object} PersonAccolades
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /people/{id}/accolades [get]
func (h *Handler) GetPersonAccolades(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	accolades, err := h.service.GetPersonAccolades(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, accolades, http.StatusOK)
}

// CreateEvent adds an accolade event
// @Summary      Create accolade event
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateEventRequest true "Event"
// @Success      201 {object} Event
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /accolades/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	event, err := h.service.CreateEvent(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, event, http.StatusCreated)
}

// CreateEdition adds a yearly edition of an event
// @Summary      Create accolade edition
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateEditionRequest true "Edition"
// @Success      201 {object} Edition
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /accolades/editions [post]
func (h *Handler) CreateEdition(w http.ResponseWriter, r *http.Request) {
	var req CreateEditionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	edition, err := h.service.CreateEdition(r.Context(), &Edition{
		EventID:       req.EventID,
		Year:          req.Year,
		EditionNumber: req.EditionNumber,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, edition, http.StatusCreated)
}

// CreateSection adds a section of an event
// @Summary      Create accolade section
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSectionRequest true "Section"
// @Success      201 {object} Section
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /accolades/sections [post]
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req CreateSectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	section, err := h.service.CreateSection(r.Context(), &Section{EventID: req.EventID, Name: req.Name})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, section, http.StatusCreated)
}

// CreateCategory adds an award category
// @Summary      Create accolade category
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateCategoryRequest true "Category"
// @Success      201 {object} Category
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /accolades/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	category, err := h.service.CreateCategory(r.Context(), &Category{
		EventID:     req.EventID,
		SectionID:   req.SectionID,
		Name:        req.Name,
		NomineeType: req.NomineeType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, category, http.StatusCreated)
}

// CreateNomination adds a nomination or win
// @Summary      Create nomination
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateNominationRequest true "Nomination"
// @Success      201 {object} Nomination
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /accolades/nominations [post]
func (h *Handler) CreateNomination(w http.ResponseWriter, r *http.Request) {
	var req CreateNominationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	nomination, err := h.service.CreateNomination(r.Context(), &Nomination{
		EditionID:       req.EditionID,
		CategoryID:      req.CategoryID,
		PersonID:        req.PersonID,
		MovieID:         req.MovieID,
		ForMovieID:      req.ForMovieID,
		IsWinner:        req.IsWinner,
		RecognitionType: req.RecognitionType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, nomination, http.StatusCreated)
}

// CreateSelection puts a movie into a festival section
// @Summary      Create section selection
// @Tags         accolades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSelectionRequest true "Selection"
// @Success      201 {object} Selection
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /accolades/selections [post]
func (h *Handler) CreateSelection(w http.ResponseWriter, r *http.Request) {
	var req CreateSelectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	selection, err := h.service.CreateSelection(r.Context(), &Selection{
		EditionID: req.EditionID,
		SectionID: req.SectionID,
		MovieID:   req.MovieID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, selection, http.StatusCreated)
}
