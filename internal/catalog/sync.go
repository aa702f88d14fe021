package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/tmdb"
)

const (
	maxImportedCast          = 20
	maxImportedImagesPerType = 10
)

// crew departments copied from TMDB
var importedDepartments = map[string]bool{
	"Directing": true,
	"Writing":   true,
}

// MovieSource is implemented by *tmdb.Client.
type MovieSource interface {
	GetMovie(ctx context.Context, tmdbID int) (*tmdb.Movie, error)
	ImageURL(path string) string
}

// SyncService imports and refreshes movies from TMDB.
type SyncService struct {
	catalog *Service
	store   Store
	source  MovieSource
	logger  *logging.Logger
}

func NewSyncService(catalog *Service, source MovieSource, logger *logging.Logger) *SyncService {
	return &SyncService{
		catalog: catalog,
		store:   catalog.store,
		source:  source,
		logger:  logger,
	}
}

// SyncResult reports what a sync changed besides the overwritten fields.
type SyncResult struct {
	Movie        *Movie `json:"movie"`
	AddedImages  int    `json:"addedImages"`
	AddedCredits int    `json:"addedCredits"`
}

// ImportMovie creates a movie from TMDB data: English translation, images
// (first of each type primary), the top-billed cast and writing/directing crew.
func (s *SyncService) ImportMovie(ctx context.Context, tmdbID int) (*SyncResult, error) {
	if tmdbID <= 0 {
		return nil, ErrMissingTMDBID
	}
	// Refuse a second import of the same TMDB id
	_, err := s.store.GetMovieByTMDBID(ctx, tmdbID)
	if err == nil {
		return nil, ErrDuplicateTMDB
	}
	if !errors.Is(err, ErrMovieNotFound) {
		return nil, err
	}

	// Fetch from TMDB
	src, err := s.source.GetMovie(ctx, tmdbID)
	if err != nil {
		return nil, sourceErr(err)
	}

	// Create the movie with its English translation
	m := &Movie{
		TMDBID:   &tmdbID,
		Title:    LocalizedText{},
		Overview: LocalizedText{},
		Tagline:  LocalizedText{},
	}
	applyTMDBFields(m, src)
	if err := validateMovieTranslations(m); err != nil {
		return nil, err
	}
	if err := s.store.CreateMovie(ctx, m); err != nil {
		return nil, err
	}

	// Attach images and credits
	images, err := s.mergeImages(ctx, m.ID, src, nil)
	if err != nil {
		return nil, err
	}
	credits, err := s.importCredits(ctx, m.ID, src)
	if err != nil {
		return nil, err
	}

	s.logger.Info("movie imported from tmdb", "movie_id", m.ID, "tmdb_id", tmdbID, "images", images, "credits", credits)
	return s.result(ctx, m.ID, images, credits)
}

// SyncMovie refreshes a movie from TMDB. English text and scalar fields are
// overwritten, Lao text is kept, unseen images are appended and an existing
// primary image is never replaced.
func (s *SyncService) SyncMovie(ctx context.Context, movieID uuid.UUID) (*SyncResult, error) {
	m, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if m.TMDBID == nil {
		return nil, ErrMissingTMDBID
	}

	src, err := s.source.GetMovie(ctx, *m.TMDBID)
	if err != nil {
		return nil, sourceErr(err)
	}

	// Overwrite English text and scalar fields
	applyTMDBFields(m, src)
	if err := validateMovieTranslations(m); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMovie(ctx, m); err != nil {
		return nil, err
	}

	// Append unseen images, then refresh credits
	existing, err := s.store.ListImages(ctx, movieID)
	if err != nil {
		return nil, err
	}
	images, err := s.mergeImages(ctx, movieID, src, existing)
	if err != nil {
		return nil, err
	}
	credits, err := s.importCredits(ctx, movieID, src)
	if err != nil {
		return nil, err
	}

	s.logger.Info("movie synced from tmdb", "movie_id", movieID, "tmdb_id", *m.TMDBID, "images", images)
	return s.result(ctx, movieID, images, credits)
}

func (s *SyncService) result(ctx context.Context, movieID uuid.UUID, images, credits int) (*SyncResult, error) {
	movie, err := s.catalog.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Movie: movie, AddedImages: images, AddedCredits: credits}, nil
}

// sourceErr keeps "not on TMDB" distinct from every other upstream failure.
func sourceErr(err error) error {
	if errors.Is(err, tmdb.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func applyTMDBFields(m *Movie, src *tmdb.Movie) {
	m.OriginalTitle = src.OriginalTitle
	if m.OriginalTitle == "" {
		m.OriginalTitle = src.Title
	}
	if src.OriginalLanguage != "" {
		m.OriginalLanguage = src.OriginalLanguage
	}
	if released, ok := src.Released(); ok {
		m.ReleaseDate = &released
	}
	if src.Runtime > 0 {
		runtime := src.Runtime
		m.Runtime = &runtime
	}

	m.Title = mergeText(m.Title, LocalizedText{LangEnglish: src.Title})
	m.Overview = mergeText(m.Overview, LocalizedText{LangEnglish: src.Overview})
	m.Tagline = mergeText(m.Tagline, LocalizedText{LangEnglish: src.Tagline})
}

// mergeImages appends TMDB images whose URL is not on the movie yet. The first
// added image of a type becomes primary only when the movie has none.
func (s *SyncService) mergeImages(ctx context.Context, movieID uuid.UUID, src *tmdb.Movie, existing []*Image) (int, error) {
	seen := make(map[string]bool, len(existing))
	hasPrimary := map[string]bool{}
	for _, img := range existing {
		seen[img.FilePath] = true
		if img.IsPrimary {
			hasPrimary[img.Type] = true
		}
	}

	groups := []struct {
		imageType string
		images    []tmdb.Image
		fallback  string
	}{
		{ImagePoster, src.Images.Posters, src.PosterPath},
		{ImageBackdrop, src.Images.Backdrops, src.BackdropPath},
		{ImageLogo, src.Images.Logos, ""},
	}

	added := 0
	for _, g := range groups {
		images := g.images
		if len(images) == 0 && g.fallback != "" {
			images = []tmdb.Image{{FilePath: g.fallback}}
		}
		if len(images) > maxImportedImagesPerType {
			images = images[:maxImportedImagesPerType]
		}

		for _, ti := range images {
			url := s.source.ImageURL(ti.FilePath)
			if url == "" || seen[url] {
				continue
			}
			img := &Image{
				MovieID:  movieID,
				Type:     g.imageType,
				FilePath: url,
				Width:    ti.Width,
				Height:   ti.Height,
			}
			if ti.Language != nil && validLanguage(*ti.Language) {
				lang := *ti.Language
				img.Language = &lang
			}
			if err := s.store.CreateImage(ctx, img); err != nil {
				return added, fmt.Errorf("failed to add tmdb image: %w", err)
			}
			if !hasPrimary[g.imageType] {
				if err := s.store.SetPrimaryImage(ctx, img); err != nil {
					return added, err
				}
				hasPrimary[g.imageType] = true
			}
			seen[url] = true
			added++
		}
	}
	return added, nil
}

// importCredits upserts the top-billed cast and directing/writing crew.
// It returns how many credits were written.
func (s *SyncService) importCredits(ctx context.Context, movieID uuid.UUID, src *tmdb.Movie) (int, error) {
	people := map[int]uuid.UUID{}
	written := 0

	cast := append([]tmdb.CastMember(nil), src.Credits.Cast...)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	if len(cast) > maxImportedCast {
		cast = cast[:maxImportedCast]
	}

	for _, c := range cast {
		personID, err := s.ensurePerson(ctx, people, c.ID, c.Name, c.ProfilePath, c.KnownForDepartment)
		if err != nil {
			return written, err
		}
		credit := &CastCredit{MovieID: movieID, PersonID: personID, Character: c.Character, Order: c.Order}
		if err := s.store.UpsertCast(ctx, credit); err != nil {
			return written, err
		}
		written++
	}

	for _, c := range src.Credits.Crew {
		if !importedDepartments[c.Department] {
			continue
		}
		personID, err := s.ensurePerson(ctx, people, c.ID, c.Name, c.ProfilePath, c.KnownForDepartment)
		if err != nil {
			return written, err
		}
		credit := &CrewCredit{MovieID: movieID, PersonID: personID, Department: c.Department, Job: c.Job}
		if err := s.store.UpsertCrew(ctx, credit); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ensurePerson finds a person by TMDB id or creates one with an English name.
func (s *SyncService) ensurePerson(ctx context.Context, cache map[int]uuid.UUID, tmdbID int, name, profilePath, department string) (uuid.UUID, error) {
	if id, ok := cache[tmdbID]; ok {
		return id, nil
	}

	p, err := s.store.GetPersonByTMDBID(ctx, tmdbID)
	if errors.Is(err, ErrPersonNotFound) {
		p = &Person{
			TMDBID: &tmdbID,
			Name:   LocalizedText{LangEnglish: name},
		}
		if profilePath != "" {
			url := s.source.ImageURL(profilePath)
			p.ProfilePath = &url
		}
		if department != "" {
			p.KnownForDepartment = &department
		}
		err = s.store.CreatePerson(ctx, p)
		if errors.Is(err, ErrDuplicateTMDB) {
			// created concurrently by another import
			p, err = s.store.GetPersonByTMDBID(ctx, tmdbID)
		}
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve tmdb person %d: %w", tmdbID, err)
	}

	cache[tmdbID] = p.ID
	return p.ID, nil
}
