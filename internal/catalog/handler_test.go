package catalog

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/tmdb"
)

func newTestRouter(src *fakeSource) (http.Handler, *memStore, *fakeFiles) {
	store := newMemStore()
	files := newFakeFiles()
	svc := NewService(store, files, logging.Discard())
	h := NewHandler(svc, NewSyncService(svc, src, logging.Discard()))

	r := chi.NewRouter()
	r.Get("/movies", h.ListMovies)
	r.Post("/movies", h.CreateMovie)
	r.Post("/movies/import/tmdb", h.ImportTMDB)
	r.Get("/movies/{id}", h.GetMovie)
	r.Patch("/movies/{id}", h.UpdateMovie)
	r.Delete("/movies/{id}", h.DeleteMovie)
	r.Post("/movies/{id}/images", h.AddImage)
	r.Put("/movies/{id}/images/{imageId}/primary", h.SetPrimaryImage)
	r.Delete("/movies/{id}/images/{imageId}", h.DeleteImage)
	r.Post("/movies/{id}/sync-tmdb", h.SyncTMDB)
	r.Delete("/movies/{id}/credits/{personId}", h.RemoveCredit)
	r.Get("/people/{id}/accolades", h.GetPersonAccolades)
	return r, store, files
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestHandler_MovieLifecycle(t *testing.T) {
	h, _, _ := newTestRouter(&fakeSource{})

	rec := doJSON(t, h, http.MethodPost, "/movies", `{
		"title": {"en": "Chanthaly", "lo": "ຈັນທະລີ"},
		"releaseDate": "2013-01-01",
		"runtime": 90
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created MovieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Movie.ID.String()
	assert.Equal(t, "ຈັນທະລີ", created.Movie.Title["lo"])
	require.NotNil(t, created.Movie.ReleaseDate)

	rec = doJSON(t, h, http.MethodPatch, "/movies/"+id, `{"overview": {"en": "A sick girl sees ghosts."}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/movies/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got MovieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "A sick girl sees ghosts.", got.Movie.Overview["en"])
	assert.Equal(t, "Chanthaly", got.Movie.Title["en"])

	rec = doJSON(t, h, http.MethodGet, "/movies?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list MoviesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Movies, 1)
	assert.Equal(t, 100, list.Limit)

	rec = doJSON(t, h, http.MethodDelete, "/movies/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/movies/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeMovieNotFound, errorCode(t, rec))
}

func TestHandler_CreateMovieValidation(t *testing.T) {
	h, _, _ := newTestRouter(&fakeSource{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed", body: `{`, code: httputil.CodeInvalidRequestBody},
		{name: "no title", body: `{"runtime": 10}`, code: httputil.CodeValidationError},
		{name: "unknown language", body: `{"title": {"fr": "x"}}`, code: httputil.CodeValidationError},
		{name: "bad date", body: `{"title": {"en": "x"}, "releaseDate": "01/02/2020"}`, code: httputil.CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/movies", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	rec := doJSON(t, h, http.MethodGet, "/movies/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Images(t *testing.T) {
	h, store, files := newTestRouter(&fakeSource{})
	svc := NewService(store, files, logging.Discard())
	m := createMovie(t, svc)
	base := "/movies/" + m.ID.String() + "/images"

	rec := doJSON(t, h, http.MethodPost, base, `{"type": "backdrop", "filePath": "https://cdn.example/b.jpg"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var backdrop ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &backdrop))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("type", "poster"))
	require.NoError(t, mw.WriteField("isPrimary", "true"))
	part, err := mw.CreateFormFile("file", "poster.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var poster ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &poster))
	assert.True(t, poster.Image.IsPrimary)
	assert.Equal(t, "jpeg", files.saved[poster.Image.FilePath])

	rec = doJSON(t, h, http.MethodPut, base+"/"+backdrop.Image.ID.String()+"/primary", `{"type": "poster"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeImageTypeMismatch, errorCode(t, rec))

	rec = doJSON(t, h, http.MethodPut, base+"/"+uuid.NewString()+"/primary", `{"type": "poster"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeImageNotFound, errorCode(t, rec))

	rec = doJSON(t, h, http.MethodPut, base+"/"+backdrop.Image.ID.String()+"/primary", `{"type": "backdrop"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, base+"/"+poster.Image.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	stored, err := store.GetMovie(t.Context(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PosterPath)
	require.NotNil(t, stored.BackdropPath)
}

func TestHandler_TMDB(t *testing.T) {
	src := &fakeSource{movies: map[int]*tmdb.Movie{811: tmdbMovie()}}
	h, _, _ := newTestRouter(src)

	rec := doJSON(t, h, http.MethodPost, "/movies/import/tmdb", `{"tmdbId": 811}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	rec = doJSON(t, h, http.MethodPost, "/movies/import/tmdb", `{"tmdbId": 811}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httputil.CodeDuplicateTMDB, errorCode(t, rec))

	rec = doJSON(t, h, http.MethodPost, "/movies/import/tmdb", `{"tmdbId": 12}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/movies/import/tmdb", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	src.err = tmdb.ErrUnavailable
	rec = doJSON(t, h, http.MethodPost, "/movies/"+result.Movie.ID.String()+"/sync-tmdb", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, httputil.CodeUpstreamFailure, errorCode(t, rec))

	src.err = nil
	rec = doJSON(t, h, http.MethodPost, "/movies/"+result.Movie.ID.String()+"/sync-tmdb", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/movies/"+result.Movie.ID.String()+"/credits/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeCreditNotFound, errorCode(t, rec))
}

func TestHandler_PersonAccolades(t *testing.T) {
	h, store, files := newTestRouter(&fakeSource{})
	svc := NewService(store, files, logging.Discard())
	p, err := svc.CreatePerson(t.Context(), PersonInput{Name: LocalizedText{"en": "Khamla"}})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/people/"+p.ID.String()+"/accolades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"personalAwards": [], "filmAccolades": []}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/people/"+uuid.NewString()+"/accolades", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodePersonNotFound, errorCode(t, rec))
}
