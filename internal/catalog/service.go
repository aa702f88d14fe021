package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements catalog editing and reads.
type Service struct {
	store  Store
	files  FileStore
	logger *logging.Logger
}

func NewService(store Store, files FileStore, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		logger: logger,
	}
}

// MovieInput describes a new movie.
type MovieInput struct {
	TMDBID           *int
	OriginalTitle    string
	OriginalLanguage string
	Title            LocalizedText
	Overview         LocalizedText
	Tagline          LocalizedText
	ReleaseDate      *time.Time
	Runtime          *int
	VideoURL         *string
}

// MovieUpdate changes the non-nil fields of a movie. Translations are merged
// per language so that editing English leaves Lao untouched.
type MovieUpdate struct {
	OriginalTitle    *string
	OriginalLanguage *string
	Title            LocalizedText
	Overview         LocalizedText
	Tagline          LocalizedText
	ReleaseDate      *time.Time
	Runtime          *int
	VideoURL         *string
}

// ImageInput describes an image to attach to a movie. FilePath is ignored
// when a file is uploaded.
type ImageInput struct {
	Type      string
	FilePath  string
	Language  *string
	Width     int
	Height    int
	IsPrimary bool
}

// Upload is an image file received from a client.
type Upload struct {
	Name string
	Body io.Reader
}

type PersonInput struct {
	TMDBID             *int
	Name               LocalizedText
	Biography          LocalizedText
	KnownForDepartment *string
	ProfilePath        *string
}

type CastInput struct {
	PersonID  uuid.UUID
	Character string
	Order     int
}

type CrewInput struct {
	PersonID   uuid.UUID
	Department string
	Job        string
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validateMovieTranslations(m *Movie) error {
	if len(m.Title) == 0 {
		return ErrTitleRequired
	}
	for _, lang := range m.languages() {
		if !validLanguage(lang) {
			return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
		}
		if strings.TrimSpace(m.Title[lang]) == "" {
			return fmt.Errorf("%w: missing %s title", ErrTitleRequired, lang)
		}
	}
	return nil
}

func validateNames(name, extra LocalizedText, missing error) error {
	if len(name) == 0 {
		return missing
	}
	for _, t := range []LocalizedText{name, extra} {
		for lang := range t {
			if !validLanguage(lang) {
				return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
			}
			if strings.TrimSpace(name[lang]) == "" {
				return fmt.Errorf("%w: missing %s", missing, lang)
			}
		}
	}
	return nil
}

func mergeText(dst, src LocalizedText) LocalizedText {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = LocalizedText{}
	}
	for lang, text := range src {
		dst[lang] = text
	}
	return dst
}

// CreateMovie stores a new movie with its translations
func (s *Service) CreateMovie(ctx context.Context, in MovieInput) (*Movie, error) {
	m := &Movie{
		TMDBID:           in.TMDBID,
		OriginalTitle:    strings.TrimSpace(in.OriginalTitle),
		OriginalLanguage: in.OriginalLanguage,
		Title:            in.Title,
		Overview:         in.Overview,
		Tagline:          in.Tagline,
		ReleaseDate:      in.ReleaseDate,
		Runtime:          in.Runtime,
		VideoURL:         in.VideoURL,
	}
	// Fill defaults
	if m.OriginalLanguage == "" {
		m.OriginalLanguage = LangLao
	}
	if m.OriginalTitle == "" {
		m.OriginalTitle = m.Title[LangEnglish]
	}
	if err := validateMovieTranslations(m); err != nil {
		return nil, err
	}

	// Insert movie with translations
	if err := s.store.CreateMovie(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("movie created", "movie_id", m.ID)
	return m, nil
}

// GetMovie returns a movie with images and credits
func (s *Service) GetMovie(ctx context.Context, id uuid.UUID) (*Movie, error) {
	m, err := s.store.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	// Attach images and credits
	if m.Images, err = s.store.ListImages(ctx, id); err != nil {
		return nil, err
	}
	if m.Cast, err = s.store.ListCast(ctx, id); err != nil {
		return nil, err
	}
	if m.Crew, err = s.store.ListCrew(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMovies returns a page of movies, newest first
func (s *Service) ListMovies(ctx context.Context, limit, offset int) ([]*Movie, error) {
	limit, offset = pageBounds(limit, offset)
	return s.store.ListMovies(ctx, limit, offset)
}

// UpdateMovie applies upd and returns the full movie.
func (s *Service) UpdateMovie(ctx context.Context, id uuid.UUID, upd MovieUpdate) (*Movie, error) {
	m, err := s.store.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}

	// Apply scalar fields
	if upd.OriginalTitle != nil {
		m.OriginalTitle = strings.TrimSpace(*upd.OriginalTitle)
	}
	if upd.OriginalLanguage != nil {
		m.OriginalLanguage = *upd.OriginalLanguage
	}
	if upd.ReleaseDate != nil {
		m.ReleaseDate = upd.ReleaseDate
	}
	if upd.Runtime != nil {
		m.Runtime = upd.Runtime
	}
	if upd.VideoURL != nil {
		m.VideoURL = upd.VideoURL
	}

	// Merge translations per language
	m.Title = mergeText(m.Title, upd.Title)
	m.Overview = mergeText(m.Overview, upd.Overview)
	m.Tagline = mergeText(m.Tagline, upd.Tagline)

	if err := validateMovieTranslations(m); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMovie(ctx, m); err != nil {
		return nil, err
	}

	// Reload with images and credits
	return s.GetMovie(ctx, id)
}

// DeleteMovie removes a movie. Images, credits, rentals and progress cascade.
func (s *Service) DeleteMovie(ctx context.Context, id uuid.UUID) error {
	// Collect image paths before the rows cascade away
	images, err := s.store.ListImages(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	// Remove local files
	for _, img := range images {
		s.removeFile(img)
	}
	s.logger.Info("movie deleted", "movie_id", id)
	return nil
}

// ListImages returns every image of a movie
func (s *Service) ListImages(ctx context.Context, movieID uuid.UUID) ([]*Image, error) {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}
	return s.store.ListImages(ctx, movieID)
}

// AddImage attaches an image to a movie, writing upload to local storage
// when given. A primary image goes through the same path as SetPrimaryImage.
func (s *Service) AddImage(ctx context.Context, movieID uuid.UUID, in ImageInput, upload *Upload) (*Image, error) {
	// Validate input
	if !validImageType(in.Type) {
		return nil, ErrInvalidImageType
	}
	if in.Language != nil && !validLanguage(*in.Language) {
		return nil, ErrInvalidLanguage
	}
	if upload == nil && strings.TrimSpace(in.FilePath) == "" {
		return nil, ErrImageSource
	}
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}

	img := &Image{
		MovieID:  movieID,
		Type:     in.Type,
		FilePath: strings.TrimSpace(in.FilePath),
		Language: in.Language,
		Width:    in.Width,
		Height:   in.Height,
	}

	// Write the upload to local storage
	if upload != nil {
		path, err := s.files.Save(ctx, "movies/"+movieID.String()+"/"+in.Type, upload.Name, upload.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to store upload: %w", err)
		}
		img.FilePath = path
	}

	// Insert the row; drop the stored file if that fails
	if err := s.store.CreateImage(ctx, img); err != nil {
		if upload != nil {
			s.removeFile(img)
		}
		return nil, err
	}

	// Promote to primary
	if in.IsPrimary {
		if err := s.store.SetPrimaryImage(ctx, img); err != nil {
			return nil, err
		}
		img.IsPrimary = true
	}
	return img, nil
}

// SetPrimaryImage selects imageID as the primary image of imageType.
func (s *Service) SetPrimaryImage(ctx context.Context, movieID, imageID uuid.UUID, imageType string) (*Image, error) {
	if !validImageType(imageType) {
		return nil, ErrInvalidImageType
	}
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}
	img, err := s.store.GetImage(ctx, movieID, imageID)
	if err != nil {
		return nil, err
	}
	if img.Type != imageType {
		return nil, fmt.Errorf("%w: image is a %s, not a %s", ErrImageTypeMismatch, img.Type, imageType)
	}

	if err := s.store.SetPrimaryImage(ctx, img); err != nil {
		return nil, err
	}
	img.IsPrimary = true
	return img, nil
}

// DeleteImage removes an image row. A locally stored file is deleted best
// effort; no other image is promoted when the primary goes away.
func (s *Service) DeleteImage(ctx context.Context, movieID, imageID uuid.UUID) error {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return err
	}
	img, err := s.store.GetImage(ctx, movieID, imageID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteImage(ctx, img); err != nil {
		return err
	}
	s.removeFile(img)
	return nil
}

func (s *Service) removeFile(img *Image) {
	if s.files == nil || !s.files.IsLocal(img.FilePath) {
		return
	}
	if err := s.files.Delete(img.FilePath); err != nil {
		s.logger.Warn("failed to delete image file",
			"image_id", img.ID,
			"path", img.FilePath,
			"error", err,
		)
	}
}

// CreatePerson stores a new person
func (s *Service) CreatePerson(ctx context.Context, in PersonInput) (*Person, error) {
	if err := validateNames(in.Name, in.Biography, ErrNameRequired); err != nil {
		return nil, err
	}
	p := &Person{
		TMDBID:             in.TMDBID,
		Name:               in.Name,
		Biography:          in.Biography,
		KnownForDepartment: in.KnownForDepartment,
		ProfilePath:        in.ProfilePath,
	}
	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPerson(ctx context.Context, id uuid.UUID) (*Person, error) {
	return s.store.GetPerson(ctx, id)
}

func (s *Service) ListPeople(ctx context.Context, limit, offset int) ([]*Person, error) {
	limit, offset = pageBounds(limit, offset)
	return s.store.ListPeople(ctx, limit, offset)
}

// AddCast credits a person as a character. Re-adding the same character
// updates the billing order.
func (s *Service) AddCast(ctx context.Context, movieID uuid.UUID, in CastInput) (*CastCredit, error) {
	if err := s.requireMovieAndPerson(ctx, movieID, in.PersonID); err != nil {
		return nil, err
	}
	c := &CastCredit{
		MovieID:   movieID,
		PersonID:  in.PersonID,
		Character: strings.TrimSpace(in.Character),
		Order:     in.Order,
	}
	if err := s.store.UpsertCast(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddCrew credits a person with a job
func (s *Service) AddCrew(ctx context.Context, movieID uuid.UUID, in CrewInput) (*CrewCredit, error) {
	if err := s.requireMovieAndPerson(ctx, movieID, in.PersonID); err != nil {
		return nil, err
	}
	c := &CrewCredit{
		MovieID:    movieID,
		PersonID:   in.PersonID,
		Department: strings.TrimSpace(in.Department),
		Job:        strings.TrimSpace(in.Job),
	}
	if err := s.store.UpsertCrew(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveCredit drops every cast and crew credit of a person on a movie.
func (s *Service) RemoveCredit(ctx context.Context, movieID, personID uuid.UUID) error {
	n, err := s.store.RemoveCredits(ctx, movieID, personID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCreditNotFound
	}
	return nil
}

func (s *Service) requireMovieAndPerson(ctx context.Context, movieID, personID uuid.UUID) error {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return err
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return err
	}
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, name LocalizedText) (*Event, error) {
	if err := validateNames(name, nil, ErrNameRequired); err != nil {
		return nil, err
	}
	e := &Event{Name: name}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CreateEdition(ctx context.Context, e *Edition) (*Edition, error) {
	if err := s.store.CreateEdition(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CreateSection(ctx context.Context, sec *Section) (*Section, error) {
	if err := validateNames(sec.Name, nil, ErrNameRequired); err != nil {
		return nil, err
	}
	if err := s.store.CreateSection(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *Service) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	if c.NomineeType != NomineePerson && c.NomineeType != NomineeMovie {
		return nil, ErrInvalidNomineeType
	}
	if err := validateNames(c.Name, nil, ErrNameRequired); err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateNomination requires the nominee the category asks for: a person for
// person categories, a movie for movie categories.
func (s *Service) CreateNomination(ctx context.Context, n *Nomination) (*Nomination, error) {
	// Check the nominee against the category type
	cat, err := s.store.GetCategory(ctx, n.CategoryID)
	if err != nil {
		return nil, err
	}
	switch cat.NomineeType {
	case NomineePerson:
		if n.PersonID == nil {
			return nil, ErrNomineeRequired
		}
	case NomineeMovie:
		if n.MovieID == nil {
			return nil, ErrNomineeRequired
		}
	}

	if err := s.store.CreateNomination(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) CreateSelection(ctx context.Context, sel *Selection) (*Selection, error) {
	if err := s.store.CreateSelection(ctx, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// GetPersonAccolades collects the person's own nominations and the
// accolades of films they are credited on, then joins the lookups in memory.
func (s *Service) GetPersonAccolades(ctx context.Context, personID uuid.UUID) (*PersonAccolades, error) {
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, err
	}

	// Personal nominations and the films the person is credited on
	movieIDs, err := s.store.CreditedMovieIDs(ctx, personID)
	if err != nil {
		return nil, err
	}
	personal, err := s.store.NominationsForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	// Accolades of those films
	var (
		film       []*Nomination
		selections []*Selection
	)
	if len(movieIDs) > 0 {
		if film, err = s.store.NominationsForMovies(ctx, movieIDs, personID); err != nil {
			return nil, err
		}
		if selections, err = s.store.SelectionsForMovies(ctx, movieIDs); err != nil {
			return nil, err
		}
	}

	// Resolve editions, categories, sections, movies and people in bulk
	lookups, err := s.loadLookups(ctx, append(personal, film...), selections)
	if err != nil {
		return nil, err
	}

	out := &PersonAccolades{
		PersonalAwards: make([]*Accolade, 0, len(personal)),
		FilmAccolades:  make([]*Accolade, 0, len(film)+len(selections)),
	}
	for _, n := range personal {
		out.PersonalAwards = append(out.PersonalAwards, lookups.nomination(n))
	}
	for _, n := range film {
		out.FilmAccolades = append(out.FilmAccolades, lookups.nomination(n))
	}
	for _, sel := range selections {
		out.FilmAccolades = append(out.FilmAccolades, lookups.selection(sel))
	}

	// Order by rank, then newest year
	sortAccolades(out.PersonalAwards)
	sortAccolades(out.FilmAccolades)
	return out, nil
}

func (s *Service) loadLookups(ctx context.Context, nominations []*Nomination, selections []*Selection) (*accoladeLookups, error) {
	editionIDs, categoryIDs, sectionIDs := idSet{}, idSet{}, idSet{}
	movieIDs, personIDs := idSet{}, idSet{}

	for _, n := range nominations {
		editionIDs.add(&n.EditionID)
		categoryIDs.add(&n.CategoryID)
		movieIDs.add(n.MovieID)
		movieIDs.add(n.ForMovieID)
		personIDs.add(n.PersonID)
	}
	for _, sel := range selections {
		editionIDs.add(&sel.EditionID)
		sectionIDs.add(&sel.SectionID)
		movieIDs.add(&sel.MovieID)
	}

	l := &accoladeLookups{}
	var err error
	if l.editions, err = s.store.EditionsByID(ctx, editionIDs.list()); err != nil {
		return nil, err
	}
	if l.categories, err = s.store.CategoriesByID(ctx, categoryIDs.list()); err != nil {
		return nil, err
	}
	for _, c := range l.categories {
		sectionIDs.add(c.SectionID)
	}
	if l.sections, err = s.store.SectionsByID(ctx, sectionIDs.list()); err != nil {
		return nil, err
	}
	if l.movies, err = s.store.MovieSummaries(ctx, movieIDs.list()); err != nil {
		return nil, err
	}
	if l.people, err = s.store.PersonSummaries(ctx, personIDs.list()); err != nil {
		return nil, err
	}
	return l, nil
}

// IsNotFound reports whether err is one of the catalog's missing-record errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMovieNotFound) ||
		errors.Is(err, ErrImageNotFound) ||
		errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrCreditNotFound)
}
