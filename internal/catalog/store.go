package catalog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MovieStore persists movies, their translations and images.
type MovieStore interface {
	CreateMovie(ctx context.Context, m *Movie) error
	GetMovie(ctx context.Context, id uuid.UUID) (*Movie, error)
	GetMovieByTMDBID(ctx context.Context, tmdbID int) (*Movie, error)
	ListMovies(ctx context.Context, limit, offset int) ([]*Movie, error)
	UpdateMovie(ctx context.Context, m *Movie) error
	DeleteMovie(ctx context.Context, id uuid.UUID) error

	ListImages(ctx context.Context, movieID uuid.UUID) ([]*Image, error)
	GetImage(ctx context.Context, movieID, imageID uuid.UUID) (*Image, error)
	CreateImage(ctx context.Context, img *Image) error
	// SetPrimaryImage makes img the only primary of its type and mirrors its path onto the movie.
	SetPrimaryImage(ctx context.Context, img *Image) error
	// DeleteImage removes img and clears the mirrored path when it was primary.
	DeleteImage(ctx context.Context, img *Image) error
}

// PeopleStore persists people and their credits.
type PeopleStore interface {
	CreatePerson(ctx context.Context, p *Person) error
	GetPerson(ctx context.Context, id uuid.UUID) (*Person, error)
	GetPersonByTMDBID(ctx context.Context, tmdbID int) (*Person, error)
	ListPeople(ctx context.Context, limit, offset int) ([]*Person, error)

	UpsertCast(ctx context.Context, c *CastCredit) error
	UpsertCrew(ctx context.Context, c *CrewCredit) error
	ListCast(ctx context.Context, movieID uuid.UUID) ([]*CastCredit, error)
	ListCrew(ctx context.Context, movieID uuid.UUID) ([]*CrewCredit, error)
	RemoveCredits(ctx context.Context, movieID, personID uuid.UUID) (int64, error)
	CreditedMovieIDs(ctx context.Context, personID uuid.UUID) ([]uuid.UUID, error)

	PersonSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*PersonSummary, error)
	MovieSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MovieSummary, error)
}

// AccoladeStore persists the accolade hierarchy.
type AccoladeStore interface {
	CreateEvent(ctx context.Context, e *Event) error
	CreateEdition(ctx context.Context, e *Edition) error
	CreateSection(ctx context.Context, s *Section) error
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateNomination(ctx context.Context, n *Nomination) error
	CreateSelection(ctx context.Context, s *Selection) error

	NominationsForPerson(ctx context.Context, personID uuid.UUID) ([]*Nomination, error)
	// NominationsForMovies returns nominations tied to any of movieIDs through
	// movie_id or for_movie_id whose nominee is not excludePersonID.
	NominationsForMovies(ctx context.Context, movieIDs []uuid.UUID, excludePersonID uuid.UUID) ([]*Nomination, error)
	SelectionsForMovies(ctx context.Context, movieIDs []uuid.UUID) ([]*Selection, error)

	EditionsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Edition, error)
	CategoriesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Category, error)
	SectionsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Section, error)
}

// Store is implemented by *Repository.
type Store interface {
	MovieStore
	PeopleStore
	AccoladeStore
}

// FileStore keeps uploaded image files. Implemented by *storage.LocalStore.
type FileStore interface {
	Save(ctx context.Context, folder, name string, r io.Reader) (string, error)
	Delete(publicPath string) error
	IsLocal(path string) bool
}
