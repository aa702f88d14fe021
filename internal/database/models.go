package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LocalizedText maps a language code ("en", "lo") to text. Stored as jsonb.
type LocalizedText map[string]string

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                      uuid.UUID  `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	Email                   string     `bun:"email,notnull"`
	PasswordHash            *string    `bun:"password_hash"`
	DisplayName             *string    `bun:"display_name"`
	Role                    string     `bun:"role,notnull,default:'user'"`
	EmailVerified           bool       `bun:"email_verified,notnull,default:false"`
	EmailVerificationToken  *string    `bun:"email_verification_token"`
	EmailVerificationSentAt *time.Time `bun:"email_verification_sent_at"`
	DeletedAt               *time.Time `bun:"deleted_at"`
	CreatedAt               time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt               time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	TokenHash string    `bun:"token_hash,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	IPAddress *string   `bun:"ip_address"`
	UserAgent *string   `bun:"user_agent"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m"`

	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	TMDBID           *int       `bun:"tmdb_id"`
	OriginalTitle    string     `bun:"original_title,notnull"`
	OriginalLanguage string     `bun:"original_language,notnull,default:'lo'"`
	ReleaseDate      *time.Time `bun:"release_date,type:date"`
	Runtime          *int       `bun:"runtime"`
	PosterPath       *string    `bun:"poster_path"`
	BackdropPath     *string    `bun:"backdrop_path"`
	LogoPath         *string    `bun:"logo_path"`
	VideoURL         *string    `bun:"video_url"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Translations []*MovieTranslation `bun:"rel:has-many,join:id=movie_id"`
	Images       []*MovieImage       `bun:"rel:has-many,join:id=movie_id"`
	Cast         []*MovieCast        `bun:"rel:has-many,join:id=movie_id"`
	Crew         []*MovieCrew        `bun:"rel:has-many,join:id=movie_id"`
}

type MovieTranslation struct {
	bun.BaseModel `bun:"table:movie_translations,alias:mt"`

	MovieID  uuid.UUID `bun:"movie_id,pk,type:uuid"`
	Language string    `bun:"language,pk"`
	Title    string    `bun:"title,notnull"`
	Overview string    `bun:"overview,notnull,default:''"`
	Tagline  string    `bun:"tagline,notnull,default:''"`
}

type MovieImage struct {
	bun.BaseModel `bun:"table:movie_images,alias:mi"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	MovieID   uuid.UUID `bun:"movie_id,notnull,type:uuid"`
	Type      string    `bun:"type,notnull"`
	FilePath  string    `bun:"file_path,notnull"`
	Language  *string   `bun:"language"`
	Width     int       `bun:"width,notnull,default:0"`
	Height    int       `bun:"height,notnull,default:0"`
	IsPrimary bool      `bun:"is_primary,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Person struct {
	bun.BaseModel `bun:"table:people,alias:p"`

	ID                 uuid.UUID `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	TMDBID             *int      `bun:"tmdb_id"`
	KnownForDepartment *string   `bun:"known_for_department"`
	ProfilePath        *string   `bun:"profile_path"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Translations []*PersonTranslation `bun:"rel:has-many,join:id=person_id"`
}

type PersonTranslation struct {
	bun.BaseModel `bun:"table:person_translations,alias:pt"`

	PersonID  uuid.UUID `bun:"person_id,pk,type:uuid"`
	Language  string    `bun:"language,pk"`
	Name      string    `bun:"name,notnull"`
	Biography string    `bun:"biography,notnull,default:''"`
}

type MovieCast struct {
	bun.BaseModel `bun:"table:movie_cast,alias:mc"`

	MovieID   uuid.UUID `bun:"movie_id,pk,type:uuid"`
	PersonID  uuid.UUID `bun:"person_id,pk,type:uuid"`
	Character string    `bun:"character_name,pk"`
	CastOrder int       `bun:"cast_order,notnull,default:0"`

	Person *Person `bun:"rel:belongs-to,join:person_id=id"`
}

type MovieCrew struct {
	bun.BaseModel `bun:"table:movie_crew,alias:mw"`

	MovieID    uuid.UUID `bun:"movie_id,pk,type:uuid"`
	PersonID   uuid.UUID `bun:"person_id,pk,type:uuid"`
	Department string    `bun:"department,pk"`
	Job        string    `bun:"job,pk"`

	Person *Person `bun:"rel:belongs-to,join:person_id=id"`
}

type AccoladeEvent struct {
	bun.BaseModel `bun:"table:accolade_events,alias:ae"`

	ID        uuid.UUID     `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	Name      LocalizedText `bun:"name,type:jsonb,notnull"`
	CreatedAt time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type AccoladeEdition struct {
	bun.BaseModel `bun:"table:accolade_editions,alias:aed"`

	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	EventID       uuid.UUID `bun:"event_id,notnull,type:uuid"`
	Year          int       `bun:"year,notnull"`
	EditionNumber *int      `bun:"edition_number"`

	Event *AccoladeEvent `bun:"rel:belongs-to,join:event_id=id"`
}

type AccoladeSection struct {
	bun.BaseModel `bun:"table:accolade_sections,alias:asec"`

	ID      uuid.UUID     `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	EventID uuid.UUID     `bun:"event_id,notnull,type:uuid"`
	Name    LocalizedText `bun:"name,type:jsonb,notnull"`
}

type AccoladeCategory struct {
	bun.BaseModel `bun:"table:accolade_categories,alias:ac"`

	ID          uuid.UUID     `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	EventID     uuid.UUID     `bun:"event_id,notnull,type:uuid"`
	SectionID   *uuid.UUID    `bun:"section_id,type:uuid"`
	Name        LocalizedText `bun:"name,type:jsonb,notnull"`
	NomineeType string        `bun:"nominee_type,notnull"`
}

type AccoladeNomination struct {
	bun.BaseModel `bun:"table:accolade_nominations,alias:an"`

	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	EditionID       uuid.UUID  `bun:"edition_id,notnull,type:uuid"`
	CategoryID      uuid.UUID  `bun:"category_id,notnull,type:uuid"`
	PersonID        *uuid.UUID `bun:"person_id,type:uuid"`
	MovieID         *uuid.UUID `bun:"movie_id,type:uuid"`
	ForMovieID      *uuid.UUID `bun:"for_movie_id,type:uuid"`
	IsWinner        bool       `bun:"is_winner,notnull,default:false"`
	RecognitionType *string    `bun:"recognition_type"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type AccoladeSectionSelection struct {
	bun.BaseModel `bun:"table:accolade_section_selections,alias:asel"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	EditionID uuid.UUID `bun:"edition_id,notnull,type:uuid"`
	SectionID uuid.UUID `bun:"section_id,notnull,type:uuid"`
	MovieID   uuid.UUID `bun:"movie_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Rental and WatchProgress carry exactly one of UserID / AnonymousID.
type Rental struct {
	bun.BaseModel `bun:"table:rentals,alias:r"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	UserID      *uuid.UUID `bun:"user_id,type:uuid"`
	AnonymousID *string    `bun:"anonymous_id"`
	MovieID     uuid.UUID  `bun:"movie_id,notnull,type:uuid"`
	PurchasedAt time.Time  `bun:"purchased_at,notnull"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type WatchProgress struct {
	bun.BaseModel `bun:"table:watch_progress,alias:wp"`

	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid,default:gen_random_uuid()"`
	UserID          *uuid.UUID `bun:"user_id,type:uuid"`
	AnonymousID     *string    `bun:"anonymous_id"`
	MovieID         uuid.UUID  `bun:"movie_id,notnull,type:uuid"`
	ProgressSeconds int        `bun:"progress_seconds,notnull,default:0"`
	DurationSeconds int        `bun:"duration_seconds,notnull,default:0"`
	Completed       bool       `bun:"completed,notnull,default:false"`
	LastWatchedAt   time.Time  `bun:"last_watched_at,notnull"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
