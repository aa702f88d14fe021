package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

func (r *Repository) CreatePerson(ctx context.Context, p *Person) error {
	row := &database.Person{
		TMDBID:             p.TMDBID,
		KnownForDepartment: p.KnownForDepartment,
		ProfilePath:        p.ProfilePath,
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
			return err
		}

		rows := make([]*database.PersonTranslation, 0, len(p.Name))
		for lang, name := range p.Name {
			rows = append(rows, &database.PersonTranslation{
				PersonID:  row.ID,
				Language:  lang,
				Name:      name,
				Biography: p.Biography[lang],
			})
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return writeErr(err, ErrDuplicateTMDB, "create person")
	}

	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) getPerson(ctx context.Context, where string, arg any) (*Person, error) {
	row := new(database.Person)
	err := r.db.NewSelect().
		Model(row).
		Relation("Translations").
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return personFromRow(row), nil
}

func (r *Repository) GetPerson(ctx context.Context, id uuid.UUID) (*Person, error) {
	return r.getPerson(ctx, "p.id = ?", id)
}

func (r *Repository) GetPersonByTMDBID(ctx context.Context, tmdbID int) (*Person, error) {
	return r.getPerson(ctx, "p.tmdb_id = ?", tmdbID)
}

func (r *Repository) ListPeople(ctx context.Context, limit, offset int) ([]*Person, error) {
	var rows []*database.Person
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Translations").
		OrderExpr("p.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	out := make([]*Person, 0, len(rows))
	for _, row := range rows {
		out = append(out, personFromRow(row))
	}
	return out, nil
}

func (r *Repository) UpsertCast(ctx context.Context, c *CastCredit) error {
	row := &database.MovieCast{
		MovieID:   c.MovieID,
		PersonID:  c.PersonID,
		Character: c.Character,
		CastOrder: c.Order,
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (movie_id, person_id, character_name) DO UPDATE").
		Set("cast_order = EXCLUDED.cast_order").
		Exec(ctx)
	if err != nil {
		return writeErr(err, ErrInvalidReference, "add cast credit")
	}
	return nil
}

func (r *Repository) UpsertCrew(ctx context.Context, c *CrewCredit) error {
	row := &database.MovieCrew{
		MovieID:    c.MovieID,
		PersonID:   c.PersonID,
		Department: c.Department,
		Job:        c.Job,
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return writeErr(err, ErrInvalidReference, "add crew credit")
	}
	return nil
}

func (r *Repository) ListCast(ctx context.Context, movieID uuid.UUID) ([]*CastCredit, error) {
	var rows []*database.MovieCast
	err := r.db.NewSelect().
		Model(&rows).
		Where("movie_id = ?", movieID).
		OrderExpr("cast_order ASC, character_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cast: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PersonID)
	}
	people, err := r.PersonSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*CastCredit, 0, len(rows))
	for _, row := range rows {
		out = append(out, &CastCredit{
			MovieID:   row.MovieID,
			PersonID:  row.PersonID,
			Character: row.Character,
			Order:     row.CastOrder,
			Person:    people[row.PersonID],
		})
	}
	return out, nil
}

func (r *Repository) ListCrew(ctx context.Context, movieID uuid.UUID) ([]*CrewCredit, error) {
	var rows []*database.MovieCrew
	err := r.db.NewSelect().
		Model(&rows).
		Where("movie_id = ?", movieID).
		OrderExpr("department ASC, job ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crew: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PersonID)
	}
	people, err := r.PersonSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*CrewCredit, 0, len(rows))
	for _, row := range rows {
		out = append(out, &CrewCredit{
			MovieID:    row.MovieID,
			PersonID:   row.PersonID,
			Department: row.Department,
			Job:        row.Job,
			Person:     people[row.PersonID],
		})
	}
	return out, nil
}

func (r *Repository) RemoveCredits(ctx context.Context, movieID, personID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []any{(*database.MovieCast)(nil), (*database.MovieCrew)(nil)} {
			res, err := tx.NewDelete().
				Model(model).
				Where("movie_id = ?", movieID).
				Where("person_id = ?", personID).
				Exec(ctx)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove credits: %w", err)
	}
	return total, nil
}

func (r *Repository) CreditedMovieIDs(ctx context.Context, personID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewRaw(`
		SELECT movie_id FROM movie_cast WHERE person_id = ?0
		UNION
		SELECT movie_id FROM movie_crew WHERE person_id = ?0`,
		personID,
	).Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list credited movies: %w", err)
	}
	return ids, nil
}

func (r *Repository) PersonSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*PersonSummary, error) {
	out := make(map[uuid.UUID]*PersonSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []*database.Person
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Translations").
		Where("p.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}
	for _, row := range rows {
		p := personFromRow(row)
		out[p.ID] = &PersonSummary{ID: p.ID, Name: p.Name, ProfilePath: p.ProfilePath}
	}
	return out, nil
}

func (r *Repository) MovieSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MovieSummary, error) {
	out := make(map[uuid.UUID]*MovieSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []*database.Movie
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Translations").
		Where("m.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load movies: %w", err)
	}
	for _, row := range rows {
		m := movieFromRow(row)
		out[m.ID] = &MovieSummary{ID: m.ID, Title: m.Title, PosterPath: m.PosterPath}
	}
	return out, nil
}

func personFromRow(row *database.Person) *Person {
	p := &Person{
		ID:                 row.ID,
		TMDBID:             row.TMDBID,
		Name:               LocalizedText{},
		Biography:          LocalizedText{},
		KnownForDepartment: row.KnownForDepartment,
		ProfilePath:        row.ProfilePath,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	for _, t := range row.Translations {
		p.Name[t.Language] = t.Name
		if t.Biography != "" {
			p.Biography[t.Language] = t.Biography
		}
	}
	return p
}
