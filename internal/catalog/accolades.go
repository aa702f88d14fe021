package catalog

import (
	"sort"

	"github.com/google/uuid"
)

// Accolade kinds
const (
	KindNomination = "nomination"
	KindSelection  = "selection"
)

// AccoladeRef names a related accolade record.
type AccoladeRef struct {
	ID   uuid.UUID     `json:"id"`
	Name LocalizedText `json:"name"`
}

// Accolade is one nomination or section selection joined with everything a
// person page needs to render it.
type Accolade struct {
	Kind            string         `json:"kind"`
	ID              uuid.UUID      `json:"id"`
	IsWinner        bool           `json:"isWinner"`
	RecognitionType *string        `json:"recognitionType,omitempty"`
	EditionID       uuid.UUID      `json:"editionId"`
	Year            int            `json:"year"`
	EditionNumber   *int           `json:"editionNumber,omitempty"`
	Event           *AccoladeRef   `json:"event,omitempty"`
	Category        *AccoladeRef   `json:"category,omitempty"`
	Section         *AccoladeRef   `json:"section,omitempty"`
	Movie           *MovieSummary  `json:"movie,omitempty"`
	Nominee         *PersonSummary `json:"nominee,omitempty"`
}

// PersonAccolades splits a person's accolades into those naming the person and
// those earned by films the person worked on.
type PersonAccolades struct {
	PersonalAwards []*Accolade `json:"personalAwards"`
	FilmAccolades  []*Accolade `json:"filmAccolades"`
}

func accoladeRank(a *Accolade) int {
	switch {
	case a.Kind == KindNomination && a.IsWinner:
		return 0
	case a.Kind == KindNomination:
		return 1
	default:
		return 2
	}
}

// sortAccolades orders winners, then other nominations, then selections.
// Within a bucket the newest edition comes first.
func sortAccolades(list []*Accolade) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := accoladeRank(list[i]), accoladeRank(list[j])
		if ri != rj {
			return ri < rj
		}
		return list[i].Year > list[j].Year
	})
}

// accoladeLookups holds the rows nominations and selections point at.
type accoladeLookups struct {
	editions   map[uuid.UUID]*Edition
	categories map[uuid.UUID]*Category
	sections   map[uuid.UUID]*Section
	movies     map[uuid.UUID]*MovieSummary
	people     map[uuid.UUID]*PersonSummary
}

func (l *accoladeLookups) withEdition(a *Accolade, editionID uuid.UUID) {
	a.EditionID = editionID
	if ed, ok := l.editions[editionID]; ok {
		a.Year = ed.Year
		a.EditionNumber = ed.EditionNumber
		a.Event = &AccoladeRef{ID: ed.EventID, Name: ed.EventName}
	}
}

func (l *accoladeLookups) section(id uuid.UUID) *AccoladeRef {
	if s, ok := l.sections[id]; ok {
		return &AccoladeRef{ID: s.ID, Name: s.Name}
	}
	return nil
}

func (l *accoladeLookups) nomination(n *Nomination) *Accolade {
	a := &Accolade{
		Kind:            KindNomination,
		ID:              n.ID,
		IsWinner:        n.IsWinner,
		RecognitionType: n.RecognitionType,
	}
	l.withEdition(a, n.EditionID)

	if c, ok := l.categories[n.CategoryID]; ok {
		a.Category = &AccoladeRef{ID: c.ID, Name: c.Name}
		if c.SectionID != nil {
			a.Section = l.section(*c.SectionID)
		}
	}

	// a person nominated "for" a film points at the film through for_movie_id
	movieID := n.MovieID
	if movieID == nil {
		movieID = n.ForMovieID
	}
	if movieID != nil {
		a.Movie = l.movies[*movieID]
	}
	if n.PersonID != nil {
		a.Nominee = l.people[*n.PersonID]
	}
	return a
}

func (l *accoladeLookups) selection(s *Selection) *Accolade {
	a := &Accolade{
		Kind:    KindSelection,
		ID:      s.ID,
		Section: l.section(s.SectionID),
		Movie:   l.movies[s.MovieID],
	}
	l.withEdition(a, s.EditionID)
	return a
}

// idSet collects ids to look up in one query per table.
type idSet map[uuid.UUID]struct{}

func (s idSet) add(id *uuid.UUID) {
	if id != nil {
		s[*id] = struct{}{}
	}
}

func (s idSet) list() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
