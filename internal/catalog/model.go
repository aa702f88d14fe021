// Package catalog manages movies, people, credits, images and accolades.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

var (
	ErrMovieNotFound      = errors.New("movie not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrPersonNotFound     = errors.New("person not found")
	ErrCreditNotFound     = errors.New("person has no credit on this movie")
	ErrInvalidImageType   = errors.New("image type must be poster, backdrop or logo")
	ErrImageTypeMismatch  = errors.New("image type does not match")
	ErrImageSource        = errors.New("either a file or a filePath is required")
	ErrDuplicateTMDB      = errors.New("a record with this tmdb id already exists")
	ErrMissingTMDBID      = errors.New("movie has no tmdb id")
	ErrInvalidLanguage    = errors.New("language must be en or lo")
	ErrTitleRequired      = errors.New("every translation needs a title")
	ErrNameRequired       = errors.New("every translation needs a name")
	ErrInvalidReference   = errors.New("referenced record does not exist")
	ErrDuplicateAccolade  = errors.New("accolade already exists")
	ErrNomineeRequired    = errors.New("nomination needs a nominee matching the category type")
	ErrInvalidNomineeType = errors.New("nominee type must be person or movie")
	ErrUpstream           = errors.New("tmdb request failed")
)

// LocalizedText maps a language code to text, e.g. {"en": "...", "lo": "..."}.
type LocalizedText = database.LocalizedText

// Supported languages
const (
	LangEnglish = "en"
	LangLao     = "lo"
)

func validLanguage(lang string) bool {
	return lang == LangEnglish || lang == LangLao
}

// Image types. Each has a mirrored path column on the movie.
const (
	ImagePoster   = "poster"
	ImageBackdrop = "backdrop"
	ImageLogo     = "logo"
)

func validImageType(t string) bool {
	switch t {
	case ImagePoster, ImageBackdrop, ImageLogo:
		return true
	}
	return false
}

type Movie struct {
	ID               uuid.UUID     `json:"id"`
	TMDBID           *int          `json:"tmdbId"`
	OriginalTitle    string        `json:"originalTitle"`
	OriginalLanguage string        `json:"originalLanguage"`
	Title            LocalizedText `json:"title"`
	Overview         LocalizedText `json:"overview"`
	Tagline          LocalizedText `json:"tagline"`
	ReleaseDate      *time.Time    `json:"releaseDate"`
	Runtime          *int          `json:"runtime"`
	PosterPath       *string       `json:"posterPath"`
	BackdropPath     *string       `json:"backdropPath"`
	LogoPath         *string       `json:"logoPath"`
	VideoURL         *string       `json:"videoUrl"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	Images []*Image      `json:"images,omitempty"`
	Cast   []*CastCredit `json:"cast,omitempty"`
	Crew   []*CrewCredit `json:"crew,omitempty"`
}

// languages returns every language any translation field is given in.
func (m *Movie) languages() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range []LocalizedText{m.Title, m.Overview, m.Tagline} {
		for lang := range t {
			if !seen[lang] {
				seen[lang] = true
				out = append(out, lang)
			}
		}
	}
	return out
}

func (m *Movie) mirroredPath(imageType string) *string {
	switch imageType {
	case ImagePoster:
		return m.PosterPath
	case ImageBackdrop:
		return m.BackdropPath
	case ImageLogo:
		return m.LogoPath
	}
	return nil
}

type Image struct {
	ID        uuid.UUID `json:"id"`
	MovieID   uuid.UUID `json:"movieId"`
	Type      string    `json:"type"`
	FilePath  string    `json:"filePath"`
	Language  *string   `json:"language"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

type Person struct {
	ID                 uuid.UUID     `json:"id"`
	TMDBID             *int          `json:"tmdbId"`
	Name               LocalizedText `json:"name"`
	Biography          LocalizedText `json:"biography"`
	KnownForDepartment *string       `json:"knownForDepartment"`
	ProfilePath        *string       `json:"profilePath"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// PersonSummary is the slice of a person embedded in credits and accolades.
type PersonSummary struct {
	ID          uuid.UUID     `json:"id"`
	Name        LocalizedText `json:"name"`
	ProfilePath *string       `json:"profilePath"`
}

// MovieSummary is the slice of a movie embedded in accolades.
type MovieSummary struct {
	ID         uuid.UUID     `json:"id"`
	Title      LocalizedText `json:"title"`
	PosterPath *string       `json:"posterPath"`
}

type CastCredit struct {
	MovieID   uuid.UUID      `json:"movieId"`
	PersonID  uuid.UUID      `json:"personId"`
	Character string         `json:"character"`
	Order     int            `json:"order"`
	Person    *PersonSummary `json:"person,omitempty"`
}

type CrewCredit struct {
	MovieID    uuid.UUID      `json:"movieId"`
	PersonID   uuid.UUID      `json:"personId"`
	Department string         `json:"department"`
	Job        string         `json:"job"`
	Person     *PersonSummary `json:"person,omitempty"`
}

// Accolade structure: an event has yearly editions, optional sections and
// categories. Nominations sit in a category of an edition; selections put a
// movie into a section of an edition without a category.

type Event struct {
	ID        uuid.UUID     `json:"id"`
	Name      LocalizedText `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Edition struct {
	ID            uuid.UUID     `json:"id"`
	EventID       uuid.UUID     `json:"eventId"`
	Year          int           `json:"year"`
	EditionNumber *int          `json:"editionNumber"`
	EventName     LocalizedText `json:"eventName,omitempty"`
}

type Section struct {
	ID      uuid.UUID     `json:"id"`
	EventID uuid.UUID     `json:"eventId"`
	Name    LocalizedText `json:"name"`
}

// Nominee types of a category
const (
	NomineePerson = "person"
	NomineeMovie  = "movie"
)

type Category struct {
	ID          uuid.UUID     `json:"id"`
	EventID     uuid.UUID     `json:"eventId"`
	SectionID   *uuid.UUID    `json:"sectionId"`
	Name        LocalizedText `json:"name"`
	NomineeType string        `json:"nomineeType"`
}

type Nomination struct {
	ID              uuid.UUID  `json:"id"`
	EditionID       uuid.UUID  `json:"editionId"`
	CategoryID      uuid.UUID  `json:"categoryId"`
	PersonID        *uuid.UUID `json:"personId"`
	MovieID         *uuid.UUID `json:"movieId"`
	ForMovieID      *uuid.UUID `json:"forMovieId"`
	IsWinner        bool       `json:"isWinner"`
	RecognitionType *string    `json:"recognitionType"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Selection struct {
	ID        uuid.UUID `json:"id"`
	EditionID uuid.UUID `json:"editionId"`
	SectionID uuid.UUID `json:"sectionId"`
	MovieID   uuid.UUID `json:"movieId"`
	CreatedAt time.Time `json:"createdAt"`
}
