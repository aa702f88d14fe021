package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

// Repository is the PostgreSQL Store
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

func mirrorColumn(imageType string) (string, error) {
	switch imageType {
	case ImagePoster:
		return "poster_path", nil
	case ImageBackdrop:
		return "backdrop_path", nil
	case ImageLogo:
		return "logo_path", nil
	}
	return "", ErrInvalidImageType
}

// writeErr maps constraint violations onto catalog errors.
func writeErr(err error, duplicate error, op string) error {
	switch {
	case database.IsUniqueViolation(err):
		return duplicate
	case database.IsForeignKeyViolation(err):
		return ErrInvalidReference
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func (r *Repository) CreateMovie(ctx context.Context, m *Movie) error {
	row := movieRow(m)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
			return err
		}
		return upsertMovieTranslations(ctx, tx, row.ID, m)
	})
	if err != nil {
		return writeErr(err, ErrDuplicateTMDB, "create movie")
	}

	m.ID = row.ID
	m.CreatedAt = row.CreatedAt
	m.UpdatedAt = row.UpdatedAt
	return nil
}

func upsertMovieTranslations(ctx context.Context, tx bun.Tx, movieID uuid.UUID, m *Movie) error {
	langs := m.languages()
	if len(langs) == 0 {
		return nil
	}
	rows := make([]*database.MovieTranslation, 0, len(langs))
	for _, lang := range langs {
		rows = append(rows, &database.MovieTranslation{
			MovieID:  movieID,
			Language: lang,
			Title:    m.Title[lang],
			Overview: m.Overview[lang],
			Tagline:  m.Tagline[lang],
		})
	}
	_, err := tx.NewInsert().
		Model(&rows).
		On("CONFLICT (movie_id, language) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("overview = EXCLUDED.overview").
		Set("tagline = EXCLUDED.tagline").
		Exec(ctx)
	return err
}

func (r *Repository) getMovie(ctx context.Context, where string, arg any) (*Movie, error) {
	row := new(database.Movie)
	err := r.db.NewSelect().
		Model(row).
		Relation("Translations").
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return movieFromRow(row), nil
}

func (r *Repository) GetMovie(ctx context.Context, id uuid.UUID) (*Movie, error) {
	return r.getMovie(ctx, "m.id = ?", id)
}

func (r *Repository) GetMovieByTMDBID(ctx context.Context, tmdbID int) (*Movie, error) {
	return r.getMovie(ctx, "m.tmdb_id = ?", tmdbID)
}

func (r *Repository) ListMovies(ctx context.Context, limit, offset int) ([]*Movie, error) {
	var rows []*database.Movie
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Translations").
		OrderExpr("m.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	out := make([]*Movie, 0, len(rows))
	for _, row := range rows {
		out = append(out, movieFromRow(row))
	}
	return out, nil
}

// UpdateMovie writes scalar fields and upserts every translation present on m.
// Mirrored image paths are owned by the image methods and left alone.
func (r *Repository) UpdateMovie(ctx context.Context, m *Movie) error {
	row := movieRow(m)
	row.UpdatedAt = time.Now()

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(row).
			Column("tmdb_id", "original_title", "original_language", "release_date", "runtime", "video_url", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrMovieNotFound
		}
		return upsertMovieTranslations(ctx, tx, m.ID, m)
	})
	if errors.Is(err, ErrMovieNotFound) {
		return err
	}
	if err != nil {
		return writeErr(err, ErrDuplicateTMDB, "update movie")
	}
	m.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) DeleteMovie(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*database.Movie)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (r *Repository) ListImages(ctx context.Context, movieID uuid.UUID) ([]*Image, error) {
	var rows []*database.MovieImage
	err := r.db.NewSelect().
		Model(&rows).
		Where("movie_id = ?", movieID).
		OrderExpr("type ASC, is_primary DESC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out := make([]*Image, 0, len(rows))
	for _, row := range rows {
		out = append(out, imageFromRow(row))
	}
	return out, nil
}

func (r *Repository) GetImage(ctx context.Context, movieID, imageID uuid.UUID) (*Image, error) {
	row := new(database.MovieImage)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", imageID).
		Where("movie_id = ?", movieID).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return imageFromRow(row), nil
}

func (r *Repository) CreateImage(ctx context.Context, img *Image) error {
	row := &database.MovieImage{
		MovieID:   img.MovieID,
		Type:      img.Type,
		FilePath:  img.FilePath,
		Language:  img.Language,
		Width:     img.Width,
		Height:    img.Height,
		IsPrimary: img.IsPrimary,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("failed to create image: %w", err)
	}
	img.ID = row.ID
	img.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) SetPrimaryImage(ctx context.Context, img *Image) error {
	col, err := mirrorColumn(img.Type)
	if err != nil {
		return err
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// one statement clears the old primary and marks the new one
		_, err := tx.NewUpdate().
			Model((*database.MovieImage)(nil)).
			Set("is_primary = (id = ?)", img.ID).
			Where("movie_id = ?", img.MovieID).
			Where("type = ?", img.Type).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update primary flag: %w", err)
		}

		res, err := tx.NewUpdate().
			Model((*database.Movie)(nil)).
			Set("? = ?", bun.Ident(col), img.FilePath).
			Set("updated_at = NOW()").
			Where("id = ?", img.MovieID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mirror primary path: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrMovieNotFound
		}
		return nil
	})
}

func (r *Repository) DeleteImage(ctx context.Context, img *Image) error {
	col, err := mirrorColumn(img.Type)
	if err != nil {
		return err
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*database.MovieImage)(nil)).
			Where("id = ?", img.ID).
			Where("movie_id = ?", img.MovieID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrImageNotFound
		}
		if !img.IsPrimary {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*database.Movie)(nil)).
			Set("? = NULL", bun.Ident(col)).
			Set("updated_at = NOW()").
			Where("id = ?", img.MovieID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear primary path: %w", err)
		}
		return nil
	})
}

func movieRow(m *Movie) *database.Movie {
	return &database.Movie{
		ID:               m.ID,
		TMDBID:           m.TMDBID,
		OriginalTitle:    m.OriginalTitle,
		OriginalLanguage: m.OriginalLanguage,
		ReleaseDate:      m.ReleaseDate,
		Runtime:          m.Runtime,
		PosterPath:       m.PosterPath,
		BackdropPath:     m.BackdropPath,
		LogoPath:         m.LogoPath,
		VideoURL:         m.VideoURL,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func movieFromRow(row *database.Movie) *Movie {
	m := &Movie{
		ID:               row.ID,
		TMDBID:           row.TMDBID,
		OriginalTitle:    row.OriginalTitle,
		OriginalLanguage: row.OriginalLanguage,
		Title:            LocalizedText{},
		Overview:         LocalizedText{},
		Tagline:          LocalizedText{},
		ReleaseDate:      row.ReleaseDate,
		Runtime:          row.Runtime,
		PosterPath:       row.PosterPath,
		BackdropPath:     row.BackdropPath,
		LogoPath:         row.LogoPath,
		VideoURL:         row.VideoURL,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	for _, t := range row.Translations {
		m.Title[t.Language] = t.Title
		if t.Overview != "" {
			m.Overview[t.Language] = t.Overview
		}
		if t.Tagline != "" {
			m.Tagline[t.Language] = t.Tagline
		}
	}
	return m
}

func imageFromRow(row *database.MovieImage) *Image {
	return &Image{
		ID:        row.ID,
		MovieID:   row.MovieID,
		Type:      row.Type,
		FilePath:  row.FilePath,
		Language:  row.Language,
		Width:     row.Width,
		Height:    row.Height,
		IsPrimary: row.IsPrimary,
		CreatedAt: row.CreatedAt,
	}
}
