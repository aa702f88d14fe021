package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/tmdb"
)

type fakeSource struct {
	movies map[int]*tmdb.Movie
	err    error
	calls  int
}

func (f *fakeSource) GetMovie(_ context.Context, id int) (*tmdb.Movie, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.movies[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeSource) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/original" + path
}

func strp(s string) *string { return &s }

func tmdbMovie() *tmdb.Movie {
	return &tmdb.Movie{
		ID:               811,
		Title:            "The Long Walk",
		OriginalTitle:    "ບໍ່ມີວັນຈາກ",
		OriginalLanguage: "lo",
		Overview:         "An old man can travel back in time.",
		ReleaseDate:      "2019-09-05",
		Runtime:          116,
		PosterPath:       "/poster-main.jpg",
		Images: tmdb.Images{
			Posters: []tmdb.Image{
				{FilePath: "/poster-main.jpg", Language: strp("en"), Width: 2000, Height: 3000},
				{FilePath: "/poster-alt.jpg", Language: strp("fr")},
			},
			Backdrops: []tmdb.Image{{FilePath: "/backdrop.jpg"}},
		},
		Credits: tmdb.Credits{
			Cast: []tmdb.CastMember{
				{ID: 2, Name: "Por Silatsa", Character: "The Girl", Order: 1},
				{ID: 1, Name: "Yannawoutthi Chanthalungsy", Character: "The Old Man", Order: 0, ProfilePath: "/yc.jpg"},
			},
			Crew: []tmdb.CrewMember{
				{ID: 3, Name: "Mattie Do", Job: "Director", Department: "Directing"},
				{ID: 4, Name: "Christopher Larsen", Job: "Screenplay", Department: "Writing"},
				{ID: 5, Name: "Someone", Job: "Gaffer", Department: "Lighting"},
			},
		},
	}
}

func newTestSync(src *fakeSource) (*SyncService, *Service, *memStore) {
	svc, store, _ := newTestService()
	return NewSyncService(svc, src, logging.Discard()), svc, store
}

func TestImportMovie(t *testing.T) {
	src := &fakeSource{movies: map[int]*tmdb.Movie{811: tmdbMovie()}}
	sync, _, store := newTestSync(src)
	ctx := context.Background()

	res, err := sync.ImportMovie(ctx, 811)
	require.NoError(t, err)

	m := res.Movie
	require.NotNil(t, m.TMDBID)
	assert.Equal(t, 811, *m.TMDBID)
	assert.Equal(t, "The Long Walk", m.Title["en"])
	assert.Equal(t, "ບໍ່ມີວັນຈາກ", m.OriginalTitle)
	assert.Equal(t, 116, *m.Runtime)
	require.NotNil(t, m.ReleaseDate)
	assert.Equal(t, 2019, m.ReleaseDate.Year())

	assert.Equal(t, 3, res.AddedImages)
	assert.Len(t, m.Images, 3)

	stored, err := store.GetMovie(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PosterPath)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/poster-main.jpg", *stored.PosterPath)
	require.NotNil(t, stored.BackdropPath)
	assert.Nil(t, stored.LogoPath)

	for _, img := range m.Images {
		if img.FilePath == "https://image.tmdb.org/t/p/original/poster-alt.jpg" {
			assert.Nil(t, img.Language, "unsupported languages are dropped")
			assert.False(t, img.IsPrimary)
		}
	}

	// two cast members plus directing and writing crew
	assert.Equal(t, 4, res.AddedCredits)
	assert.Len(t, m.Cast, 2)
	assert.Len(t, m.Crew, 2)

	person, err := store.GetPersonByTMDBID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, person.ProfilePath)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/yc.jpg", *person.ProfilePath)
}

func TestImportMovie_Errors(t *testing.T) {
	src := &fakeSource{movies: map[int]*tmdb.Movie{811: tmdbMovie()}}
	sync, _, _ := newTestSync(src)
	ctx := context.Background()

	_, err := sync.ImportMovie(ctx, 0)
	assert.ErrorIs(t, err, ErrMissingTMDBID)

	_, err = sync.ImportMovie(ctx, 999)
	assert.ErrorIs(t, err, tmdb.ErrNotFound)
	assert.NotErrorIs(t, err, ErrUpstream)

	_, err = sync.ImportMovie(ctx, 811)
	require.NoError(t, err)
	calls := src.calls
	_, err = sync.ImportMovie(ctx, 811)
	assert.ErrorIs(t, err, ErrDuplicateTMDB)
	assert.Equal(t, calls, src.calls, "duplicates are rejected before calling TMDB")

	src.err = tmdb.ErrUnavailable
	_, err = sync.ImportMovie(ctx, 812)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, tmdb.ErrUnavailable)
}

func TestSyncMovie_KeepsLaoAndPrimary(t *testing.T) {
	src := &fakeSource{movies: map[int]*tmdb.Movie{811: tmdbMovie()}}
	sync, svc, store := newTestSync(src)
	ctx := context.Background()

	res, err := sync.ImportMovie(ctx, 811)
	require.NoError(t, err)
	movieID := res.Movie.ID

	_, err = svc.UpdateMovie(ctx, movieID, MovieUpdate{Title: LocalizedText{"lo": "ບໍ່ມີວັນຈາກ"}})
	require.NoError(t, err)
	custom, err := svc.AddImage(ctx, movieID, ImageInput{Type: ImagePoster, FilePath: "/uploads/custom.jpg", IsPrimary: true}, nil)
	require.NoError(t, err)

	updated := tmdbMovie()
	updated.Title = "The Long Walk (2019)"
	updated.Runtime = 117
	updated.Images.Posters = append(updated.Images.Posters, tmdb.Image{FilePath: "/poster-new.jpg"})
	updated.Images.Logos = []tmdb.Image{{FilePath: "/logo.png", Language: strp("lo")}}
	src.movies[811] = updated

	res, err = sync.SyncMovie(ctx, movieID)
	require.NoError(t, err)

	assert.Equal(t, "The Long Walk (2019)", res.Movie.Title["en"])
	assert.Equal(t, "ບໍ່ມີວັນຈາກ", res.Movie.Title["lo"])
	assert.Equal(t, 117, *res.Movie.Runtime)
	assert.Equal(t, 2, res.AddedImages)

	stored, err := store.GetMovie(ctx, movieID)
	require.NoError(t, err)
	assert.Equal(t, custom.FilePath, *stored.PosterPath)
	require.NotNil(t, stored.LogoPath)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/logo.png", *stored.LogoPath)

	// a second sync finds nothing new and reuses existing people
	res, err = sync.SyncMovie(ctx, movieID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.AddedImages)
	assert.Len(t, res.Movie.Cast, 2)
	people, err := svc.ListPeople(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, people, 4)
}

func TestSyncMovie_Errors(t *testing.T) {
	src := &fakeSource{movies: map[int]*tmdb.Movie{}}
	sync, svc, _ := newTestSync(src)
	ctx := context.Background()

	local := createMovie(t, svc)
	_, err := sync.SyncMovie(ctx, local.ID)
	assert.ErrorIs(t, err, ErrMissingTMDBID)

	_, err = sync.SyncMovie(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMovieNotFound)

	id := 42
	gone, err := svc.CreateMovie(ctx, MovieInput{TMDBID: &id, Title: LocalizedText{"en": "Gone"}})
	require.NoError(t, err)
	_, err = sync.SyncMovie(ctx, gone.ID)
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	src.err = errors.New("connection reset")
	_, err = sync.SyncMovie(ctx, gone.ID)
	assert.ErrorIs(t, err, ErrUpstream)
}
