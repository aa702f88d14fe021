package catalog

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type castKey struct {
	movie, person uuid.UUID
	character     string
}

type crewKey struct {
	movie, person   uuid.UUID
	department, job string
}

// memStore is an in-memory Store with the same constraints as the schema.
type memStore struct {
	mu sync.Mutex

	movies  map[uuid.UUID]*Movie
	images  map[uuid.UUID]*Image
	people  map[uuid.UUID]*Person
	cast    map[castKey]*CastCredit
	crew    map[crewKey]*CrewCredit
	order   []uuid.UUID
	pOrder  []uuid.UUID
	imgSeq  []uuid.UUID
	clock   time.Time
	failing error

	events      map[uuid.UUID]*Event
	editions    map[uuid.UUID]*Edition
	sections    map[uuid.UUID]*Section
	categories  map[uuid.UUID]*Category
	nominations []*Nomination
	selections  []*Selection
}

func newMemStore() *memStore {
	return &memStore{
		movies:     map[uuid.UUID]*Movie{},
		images:     map[uuid.UUID]*Image{},
		people:     map[uuid.UUID]*Person{},
		cast:       map[castKey]*CastCredit{},
		crew:       map[crewKey]*CrewCredit{},
		events:     map[uuid.UUID]*Event{},
		editions:   map[uuid.UUID]*Edition{},
		sections:   map[uuid.UUID]*Section{},
		categories: map[uuid.UUID]*Category{},
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func copyText(t LocalizedText) LocalizedText {
	out := LocalizedText{}
	for k, v := range t {
		out[k] = v
	}
	return out
}

func copyMovie(m *Movie) *Movie {
	cp := *m
	cp.Title = copyText(m.Title)
	cp.Overview = copyText(m.Overview)
	cp.Tagline = copyText(m.Tagline)
	cp.Images, cp.Cast, cp.Crew = nil, nil, nil
	return &cp
}

func (s *memStore) tmdbTaken(tmdbID *int, except uuid.UUID) bool {
	if tmdbID == nil {
		return false
	}
	for id, m := range s.movies {
		if id != except && m.TMDBID != nil && *m.TMDBID == *tmdbID {
			return true
		}
	}
	return false
}

func (s *memStore) CreateMovie(_ context.Context, m *Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tmdbTaken(m.TMDBID, uuid.Nil) {
		return ErrDuplicateTMDB
	}
	m.ID = uuid.New()
	m.CreatedAt = s.tick()
	m.UpdatedAt = m.CreatedAt
	s.movies[m.ID] = copyMovie(m)
	s.order = append(s.order, m.ID)
	return nil
}

func (s *memStore) GetMovie(_ context.Context, id uuid.UUID) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return copyMovie(m), nil
}

func (s *memStore) GetMovieByTMDBID(_ context.Context, tmdbID int) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if m.TMDBID != nil && *m.TMDBID == tmdbID {
			return copyMovie(m), nil
		}
	}
	return nil, ErrMovieNotFound
}

func (s *memStore) ListMovies(_ context.Context, limit, offset int) ([]*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Movie
	for i := len(s.order) - 1; i >= 0; i-- {
		if m, ok := s.movies[s.order[i]]; ok {
			out = append(out, copyMovie(m))
		}
	}
	if offset >= len(out) {
		return []*Movie{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateMovie(_ context.Context, m *Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.movies[m.ID]
	if !ok {
		return ErrMovieNotFound
	}
	if s.tmdbTaken(m.TMDBID, m.ID) {
		return ErrDuplicateTMDB
	}
	cp := copyMovie(m)
	// image mirrors are not written by UpdateMovie
	cp.PosterPath, cp.BackdropPath, cp.LogoPath = stored.PosterPath, stored.BackdropPath, stored.LogoPath
	cp.UpdatedAt = s.tick()
	s.movies[m.ID] = cp
	return nil
}

func (s *memStore) DeleteMovie(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return ErrMovieNotFound
	}
	delete(s.movies, id)
	for imgID, img := range s.images {
		if img.MovieID == id {
			delete(s.images, imgID)
		}
	}
	for k := range s.cast {
		if k.movie == id {
			delete(s.cast, k)
		}
	}
	for k := range s.crew {
		if k.movie == id {
			delete(s.crew, k)
		}
	}
	return nil
}

func (s *memStore) ListImages(_ context.Context, movieID uuid.UUID) ([]*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Image
	for _, id := range s.imgSeq {
		if img, ok := s.images[id]; ok && img.MovieID == movieID {
			cp := *img
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) GetImage(_ context.Context, movieID, imageID uuid.UUID) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok || img.MovieID != movieID {
		return nil, ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (s *memStore) CreateImage(_ context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return s.failing
	}
	if _, ok := s.movies[img.MovieID]; !ok {
		return ErrMovieNotFound
	}
	img.ID = uuid.New()
	img.CreatedAt = s.tick()
	cp := *img
	s.images[img.ID] = &cp
	s.imgSeq = append(s.imgSeq, img.ID)
	return nil
}

func (s *memStore) setMirror(movieID uuid.UUID, imageType string, path *string) {
	m := s.movies[movieID]
	switch imageType {
	case ImagePoster:
		m.PosterPath = path
	case ImageBackdrop:
		m.BackdropPath = path
	case ImageLogo:
		m.LogoPath = path
	}
}

func (s *memStore) SetPrimaryImage(_ context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[img.MovieID]; !ok {
		return ErrMovieNotFound
	}
	for _, other := range s.images {
		if other.MovieID == img.MovieID && other.Type == img.Type {
			other.IsPrimary = other.ID == img.ID
		}
	}
	path := img.FilePath
	s.setMirror(img.MovieID, img.Type, &path)
	return nil
}

func (s *memStore) DeleteImage(_ context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[img.ID]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, img.ID)
	if img.IsPrimary {
		s.setMirror(img.MovieID, img.Type, nil)
	}
	return nil
}

func (s *memStore) CreatePerson(_ context.Context, p *Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.TMDBID != nil {
		for _, other := range s.people {
			if other.TMDBID != nil && *other.TMDBID == *p.TMDBID {
				return ErrDuplicateTMDB
			}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.people[p.ID] = &cp
	s.pOrder = append(s.pOrder, p.ID)
	return nil
}

func (s *memStore) GetPerson(_ context.Context, id uuid.UUID) (*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return nil, ErrPersonNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetPersonByTMDBID(_ context.Context, tmdbID int) (*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.people {
		if p.TMDBID != nil && *p.TMDBID == tmdbID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPersonNotFound
}

func (s *memStore) ListPeople(_ context.Context, limit, offset int) ([]*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Person
	for i := len(s.pOrder) - 1; i >= 0; i-- {
		cp := *s.people[s.pOrder[i]]
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return []*Person{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpsertCast(_ context.Context, c *CastCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[c.PersonID]; !ok {
		return ErrInvalidReference
	}
	cp := *c
	s.cast[castKey{c.MovieID, c.PersonID, c.Character}] = &cp
	return nil
}

func (s *memStore) UpsertCrew(_ context.Context, c *CrewCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[c.PersonID]; !ok {
		return ErrInvalidReference
	}
	k := crewKey{c.MovieID, c.PersonID, c.Department, c.Job}
	if _, ok := s.crew[k]; !ok {
		cp := *c
		s.crew[k] = &cp
	}
	return nil
}

func (s *memStore) summary(id uuid.UUID) *PersonSummary {
	p := s.people[id]
	if p == nil {
		return nil
	}
	return &PersonSummary{ID: p.ID, Name: p.Name, ProfilePath: p.ProfilePath}
}

func (s *memStore) ListCast(_ context.Context, movieID uuid.UUID) ([]*CastCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*CastCredit
	for k, c := range s.cast {
		if k.movie == movieID {
			cp := *c
			cp.Person = s.summary(c.PersonID)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListCrew(_ context.Context, movieID uuid.UUID) ([]*CrewCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*CrewCredit
	for k, c := range s.crew {
		if k.movie == movieID {
			cp := *c
			cp.Person = s.summary(c.PersonID)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) RemoveCredits(_ context.Context, movieID, personID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.cast {
		if k.movie == movieID && k.person == personID {
			delete(s.cast, k)
			n++
		}
	}
	for k := range s.crew {
		if k.movie == movieID && k.person == personID {
			delete(s.crew, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreditedMovieIDs(_ context.Context, personID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := idSet{}
	for k := range s.cast {
		if k.person == personID {
			set[k.movie] = struct{}{}
		}
	}
	for k := range s.crew {
		if k.person == personID {
			set[k.movie] = struct{}{}
		}
	}
	return set.list(), nil
}

func (s *memStore) PersonSummaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*PersonSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*PersonSummary{}
	for _, id := range ids {
		if p := s.summary(id); p != nil {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memStore) MovieSummaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*MovieSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*MovieSummary{}
	for _, id := range ids {
		if m, ok := s.movies[id]; ok {
			out[id] = &MovieSummary{ID: id, Title: m.Title, PosterPath: m.PosterPath}
		}
	}
	return out, nil
}

func (s *memStore) CreateEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = s.tick()
	s.events[e.ID] = e
	return nil
}

func (s *memStore) CreateEdition(_ context.Context, e *Edition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[e.EventID]
	if !ok {
		return ErrInvalidReference
	}
	for _, other := range s.editions {
		if other.EventID == e.EventID && other.Year == e.Year {
			return ErrDuplicateAccolade
		}
	}
	e.ID = uuid.New()
	cp := *e
	cp.EventName = ev.Name
	s.editions[e.ID] = &cp
	return nil
}

func (s *memStore) CreateSection(_ context.Context, sec *Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[sec.EventID]; !ok {
		return ErrInvalidReference
	}
	sec.ID = uuid.New()
	s.sections[sec.ID] = sec
	return nil
}

func (s *memStore) CreateCategory(_ context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[c.EventID]; !ok {
		return ErrInvalidReference
	}
	c.ID = uuid.New()
	s.categories[c.ID] = c
	return nil
}

func (s *memStore) GetCategory(_ context.Context, id uuid.UUID) (*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, ErrInvalidReference
	}
	return c, nil
}

func (s *memStore) CreateNomination(_ context.Context, n *Nomination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.editions[n.EditionID]; !ok {
		return ErrInvalidReference
	}
	n.ID = uuid.New()
	n.CreatedAt = s.tick()
	s.nominations = append(s.nominations, n)
	return nil
}

func (s *memStore) CreateSelection(_ context.Context, sel *Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.editions[sel.EditionID]; !ok {
		return ErrInvalidReference
	}
	sel.ID = uuid.New()
	sel.CreatedAt = s.tick()
	s.selections = append(s.selections, sel)
	return nil
}

func (s *memStore) NominationsForPerson(_ context.Context, personID uuid.UUID) ([]*Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Nomination
	for _, n := range s.nominations {
		if n.PersonID != nil && *n.PersonID == personID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) NominationsForMovies(_ context.Context, movieIDs []uuid.UUID, exclude uuid.UUID) ([]*Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := map[uuid.UUID]bool{}
	for _, id := range movieIDs {
		in[id] = true
	}
	var out []*Nomination
	for _, n := range s.nominations {
		tied := (n.MovieID != nil && in[*n.MovieID]) || (n.ForMovieID != nil && in[*n.ForMovieID])
		if tied && (n.PersonID == nil || *n.PersonID != exclude) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) SelectionsForMovies(_ context.Context, movieIDs []uuid.UUID) ([]*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := map[uuid.UUID]bool{}
	for _, id := range movieIDs {
		in[id] = true
	}
	var out []*Selection
	for _, sel := range s.selections {
		if in[sel.MovieID] {
			out = append(out, sel)
		}
	}
	return out, nil
}

func (s *memStore) EditionsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*Edition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*Edition{}
	for _, id := range ids {
		if e, ok := s.editions[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s *memStore) CategoriesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*Category{}
	for _, id := range ids {
		if c, ok := s.categories[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *memStore) SectionsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*Section{}
	for _, id := range ids {
		if sec, ok := s.sections[id]; ok {
			out[id] = sec
		}
	}
	return out, nil
}

// fakeFiles records saves and deletes of local files.
type fakeFiles struct {
	mu        sync.Mutex
	saved     map[string]string
	deleted   []string
	deleteErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{saved: map[string]string{}}
}

func (f *fakeFiles) Save(_ context.Context, folder, name string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p := "/uploads/" + folder + "/" + uuid.NewString() + "-" + name
	f.saved[p] = string(data)
	return p, nil
}

func (f *fakeFiles) Delete(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return f.deleteErr
}

func (f *fakeFiles) IsLocal(p string) bool {
	return strings.HasPrefix(p, "/uploads/")
}
