package service

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/filestore"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
)

type movieFixture struct {
	svc      *MovieService
	recorder *events.Recorder
	disk     *filestore.Disk
	index    *search.MemoryIndex
}

func newMovieFixture(t *testing.T) movieFixture {
	t.Helper()
	f := movieFixture{
		recorder: &events.Recorder{},
		disk:     newTestDisk(t),
		index:    search.NewMemoryIndex(),
	}
	f.svc = NewMovieService(
		document.NewMemoryStore(),
		f.index,
		f.recorder,
		f.disk,
		UploadPolicy{
			MaxBytes:  5 * 1024 * 1024,
			MimeTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
			Rejection: "Solo se permiten imágenes",
		},
		tickingClock(testStart),
		zap.NewNop(),
	)
	return f
}

func (f movieFixture) create(t *testing.T, title string, copies Field[int]) string {
	t.Helper()
	m, err := f.svc.Create(context.Background(), MovieInput{
		Title:    Some(title),
		Director: Some("Director"),
		Year:     Some(2000),
		Genre:    Some("drama"),
		Copies:   copies,
	})
	require.NoError(t, err)
	return m.ID
}

func TestMovieService_CreateDefaults(t *testing.T) {
	f := newMovieFixture(t)
	id := f.create(t, "Amélie", Field[int]{})

	m, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Copies)
	assert.Equal(t, 5, m.AvailableCopies)
	assert.Zero(t, m.TimesRented)
	assert.Nil(t, m.Cover)
	assert.Len(t, m.ID, 24)
	assert.Equal(t, []string{events.MovieCreated}, f.recorder.Types())
}

func TestMovieService_GetMissing(t *testing.T) {
	f := newMovieFixture(t)
	_, err := f.svc.Get(context.Background(), "65a1b2c3d4e5f60718293a4b")
	requireAppError(t, err, http.StatusNotFound, msgMovieNotFound)
}

func TestMovieService_RentAndReturn(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Solaris", Some(1))

	m, msg, err := f.svc.Rent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, m.AvailableCopies)
	assert.Equal(t, 1, m.TimesRented)
	assert.Equal(t, `Película "Solaris" alquilada correctamente. Copias disponibles: 0`, msg)

	_, _, err = f.svc.Rent(ctx, id)
	requireAppError(t, err, http.StatusConflict, msgNoCopies)

	m, _, err = f.svc.Return(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, m.AvailableCopies)

	_, _, err = f.svc.Return(ctx, id)
	requireAppError(t, err, http.StatusConflict, msgAllReturned)

	assert.Equal(t, []string{events.MovieCreated, events.MovieRented, events.MovieReturned}, f.recorder.Types())
}

func TestMovieService_UpdateCopiesKeepsRented(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Stalker", Some(3))

	for range 2 {
		_, _, err := f.svc.Rent(ctx, id)
		require.NoError(t, err)
	}

	m, err := f.svc.Update(ctx, id, MovieInput{Copies: Some(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Copies)
	assert.Equal(t, 0, m.AvailableCopies)

	m, err = f.svc.Update(ctx, id, MovieInput{Copies: Some(6)})
	require.NoError(t, err)
	assert.Equal(t, 4, m.AvailableCopies)
}

func TestMovieService_ListPagesAndSearches(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	first := f.create(t, "El Padrino", Field[int]{})
	f.create(t, "Padrino II", Field[int]{})
	last := f.create(t, "Casablanca", Field[int]{})

	page, err := f.svc.List(ctx, MovieFilter{Page: Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, last, page.Data[0].ID, "newest first by default")
	assert.Equal(t, Pagination{Page: 1, Limit: 2, Total: 3, Pages: 2}, page.Pagination)

	page, err = f.svc.List(ctx, MovieFilter{Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, first, page.Data[0].ID)

	found, err := f.svc.List(ctx, MovieFilter{Search: "padrino", SortBy: "title", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, found.Data, 2)
	assert.Equal(t, "El Padrino", found.Data[0].Title)
	assert.Equal(t, 2, found.Pagination.Total)
}

func TestMovieService_AvailableAndTop(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	zulu := f.create(t, "Zulu", Some(1))
	alpha := f.create(t, "Alpha", Some(2))
	f.create(t, "Beta", Some(0))

	_, _, err := f.svc.Rent(ctx, zulu)
	require.NoError(t, err)
	for range 2 {
		_, _, err = f.svc.Rent(ctx, alpha)
		require.NoError(t, err)
	}

	available, err := f.svc.Available(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, _, err = f.svc.Return(ctx, alpha)
	require.NoError(t, err)
	available, err = f.svc.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Alpha", available[0].Title)

	top, err := f.svc.Top(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, alpha, top[0].ID)
	assert.Equal(t, zulu, top[1].ID)
}

func TestMovieService_Rate(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Ran", Field[int]{})

	_, _, err := f.svc.Rate(ctx, id, 8)
	require.NoError(t, err)
	m, msg, err := f.svc.Rate(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, 7.5, m.Rating.Average)
	assert.Equal(t, 2, m.Rating.Count)
	assert.Equal(t, `Película "Ran" valorada con 7. Media actual: 7.5`, msg)

	m, _, err = f.svc.Rate(ctx, id, 10)
	require.NoError(t, err)
	assert.Equal(t, 8.33, m.Rating.Average)
}

func TestMovieService_CoverLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Vertigo", Field[int]{})

	_, err := f.svc.CoverPath(ctx, id)
	requireAppError(t, err, http.StatusNotFound, msgNoCover)

	res, err := f.svc.SetCover(ctx, id, Upload{
		OriginalName: "poster.PNG", Mimetype: "image/png", Size: 4, Content: strings.NewReader("png1"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Movie.Cover)
	firstCover := *res.Movie.Cover
	assert.True(t, strings.HasPrefix(firstCover, "cover-"))
	assert.True(t, strings.HasSuffix(firstCover, ".png"))
	assert.Equal(t, "http://localhost:3000/uploads/"+firstCover, res.CoverURL)

	path, err := f.svc.CoverPath(ctx, id)
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png1", string(body))

	res, err = f.svc.SetCover(ctx, id, Upload{
		OriginalName: "other.jpg", Mimetype: "image/jpeg", Size: 4, Content: strings.NewReader("jpg2"),
	})
	require.NoError(t, err)
	firstPath, err := f.disk.Path(firstCover)
	require.NoError(t, err)
	assert.NoFileExists(t, firstPath, "previous cover is removed")

	secondPath, err := f.disk.Path(*res.Movie.Cover)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, id))
	assert.NoFileExists(t, secondPath, "cover is removed with the movie")
	assert.Equal(t, events.MovieDeleted, f.recorder.Types()[len(f.recorder.Types())-1])
}

func TestMovieService_CoverPolicy(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Metropolis", Field[int]{})

	_, err := f.svc.SetCover(ctx, id, Upload{
		OriginalName: "notes.pdf", Mimetype: "application/pdf", Size: 10, Content: strings.NewReader("x"),
	})
	appErr := requireAppError(t, err, http.StatusUnsupportedMediaType, "")
	assert.Equal(t, "Solo se permiten imágenes", appErr.Message)

	_, err = f.svc.SetCover(ctx, id, Upload{
		OriginalName: "big.png", Mimetype: "image/png", Size: 6 * 1024 * 1024, Content: strings.NewReader("x"),
	})
	appErr = requireAppError(t, err, http.StatusRequestEntityTooLarge, "")
	assert.Equal(t, "El archivo no puede superar 5 MB", appErr.Message)

	_, err = f.svc.SetCover(ctx, "65a1b2c3d4e5f60718293a4b", Upload{
		OriginalName: "a.png", Mimetype: "image/png", Size: 1, Content: strings.NewReader("x"),
	})
	requireAppError(t, err, http.StatusNotFound, msgMovieNotFound)
}

func TestMovieService_DeleteRemovesFromIndex(t *testing.T) {
	ctx := context.Background()
	f := newMovieFixture(t)
	id := f.create(t, "Nosferatu", Field[int]{})

	ids, err := f.index.Match(ctx, search.KindMovie, "title", "nosfer")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	require.NoError(t, f.svc.Delete(ctx, id))
	ids, err = f.index.Match(ctx, search.KindMovie, "title", "nosfer")
	require.NoError(t, err)
	assert.Empty(t, ids)

	requireAppError(t, f.svc.Delete(ctx, id), http.StatusNotFound, msgMovieNotFound)
}
