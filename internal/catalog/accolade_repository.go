package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/database"
)

func (r *Repository) CreateEvent(ctx context.Context, e *Event) error {
	row := &database.AccoladeEvent{Name: e.Name}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create accolade event")
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) CreateEdition(ctx context.Context, e *Edition) error {
	row := &database.AccoladeEdition{
		EventID:       e.EventID,
		Year:          e.Year,
		EditionNumber: e.EditionNumber,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create accolade edition")
	}
	e.ID = row.ID
	return nil
}

func (r *Repository) CreateSection(ctx context.Context, s *Section) error {
	row := &database.AccoladeSection{EventID: s.EventID, Name: s.Name}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create accolade section")
	}
	s.ID = row.ID
	return nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *Category) error {
	row := &database.AccoladeCategory{
		EventID:     c.EventID,
		SectionID:   c.SectionID,
		Name:        c.Name,
		NomineeType: c.NomineeType,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create accolade category")
	}
	c.ID = row.ID
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	row := new(database.AccoladeCategory)
	err := r.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to get accolade category: %w", err)
	}
	return categoryFromRow(row), nil
}

func (r *Repository) CreateNomination(ctx context.Context, n *Nomination) error {
	row := &database.AccoladeNomination{
		EditionID:       n.EditionID,
		CategoryID:      n.CategoryID,
		PersonID:        n.PersonID,
		MovieID:         n.MovieID,
		ForMovieID:      n.ForMovieID,
		IsWinner:        n.IsWinner,
		RecognitionType: n.RecognitionType,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create nomination")
	}
	n.ID = row.ID
	n.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) CreateSelection(ctx context.Context, s *Selection) error {
	row := &database.AccoladeSectionSelection{
		EditionID: s.EditionID,
		SectionID: s.SectionID,
		MovieID:   s.MovieID,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return writeErr(err, ErrDuplicateAccolade, "create section selection")
	}
	s.ID = row.ID
	s.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) NominationsForPerson(ctx context.Context, personID uuid.UUID) ([]*Nomination, error) {
	var rows []*database.AccoladeNomination
	err := r.db.NewSelect().
		Model(&rows).
		Where("person_id = ?", personID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nominations: %w", err)
	}
	return nominationsFromRows(rows), nil
}

func (r *Repository) NominationsForMovies(ctx context.Context, movieIDs []uuid.UUID, excludePersonID uuid.UUID) ([]*Nomination, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	var rows []*database.AccoladeNomination
	err := r.db.NewSelect().
		Model(&rows).
		Where("(movie_id IN (?) OR for_movie_id IN (?))", bun.In(movieIDs), bun.In(movieIDs)).
		Where("(person_id IS NULL OR person_id <> ?)", excludePersonID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list film nominations: %w", err)
	}
	return nominationsFromRows(rows), nil
}

func (r *Repository) SelectionsForMovies(ctx context.Context, movieIDs []uuid.UUID) ([]*Selection, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	var rows []*database.AccoladeSectionSelection
	err := r.db.NewSelect().
		Model(&rows).
		Where("movie_id IN (?)", bun.In(movieIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list section selections: %w", err)
	}

	out := make([]*Selection, 0, len(rows))
	for _, row := range rows {
		out = append(out, &Selection{
			ID:        row.ID,
			EditionID: row.EditionID,
			SectionID: row.SectionID,
			MovieID:   row.MovieID,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *Repository) EditionsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Edition, error) {
	out := make(map[uuid.UUID]*Edition, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*database.AccoladeEdition
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Event").
		Where("aed.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editions: %w", err)
	}
	for _, row := range rows {
		ed := &Edition{
			ID:            row.ID,
			EventID:       row.EventID,
			Year:          row.Year,
			EditionNumber: row.EditionNumber,
		}
		if row.Event != nil {
			ed.EventName = row.Event.Name
		}
		out[ed.ID] = ed
	}
	return out, nil
}

func (r *Repository) CategoriesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Category, error) {
	out := make(map[uuid.UUID]*Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*database.AccoladeCategory
	if err := r.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = categoryFromRow(row)
	}
	return out, nil
}

func (r *Repository) SectionsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Section, error) {
	out := make(map[uuid.UUID]*Section, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*database.AccoladeSection
	if err := r.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = &Section{ID: row.ID, EventID: row.EventID, Name: row.Name}
	}
	return out, nil
}

func categoryFromRow(row *database.AccoladeCategory) *Category {
	return &Category{
		ID:          row.ID,
		EventID:     row.EventID,
		SectionID:   row.SectionID,
		Name:        row.Name,
		NomineeType: row.NomineeType,
	}
}

func nominationsFromRows(rows []*database.AccoladeNomination) []*Nomination {
	out := make([]*Nomination, 0, len(rows))
	for _, row := range rows {
		out = append(out, &Nomination{
			ID:              row.ID,
			EditionID:       row.EditionID,
			CategoryID:      row.CategoryID,
			PersonID:        row.PersonID,
			MovieID:         row.MovieID,
			ForMovieID:      row.ForMovieID,
			IsWinner:        row.IsWinner,
			RecognitionType: row.RecognitionType,
			CreatedAt:       row.CreatedAt,
		})
	}
	return out
}
