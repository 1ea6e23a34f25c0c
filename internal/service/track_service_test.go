package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
)

const missingUserID = "65a1b2c3d4e5f60718293a4b"

type trackFixture struct {
	tracks   *TrackService
	users    *UserService
	recorder *events.Recorder
}

func newTrackFixture(t *testing.T) trackFixture {
	t.Helper()
	store := document.NewMemoryStore()
	recorder := &events.Recorder{}
	users := newTestUsers(t, store, nil)
	tracks := NewTrackService(store, users, search.NewMemoryIndex(), recorder, fixedClock(testStart), zap.NewNop())
	return trackFixture{tracks: tracks, users: users, recorder: recorder}
}

func TestTrackService_CreatePopulatesUsers(t *testing.T) {
	ctx := context.Background()
	f := newTrackFixture(t)
	artist := createUser(t, f.users, "Rosalía", "rosalia@example.com")
	collab := createUser(t, f.users, "Bad Gyal", "badgyal@example.com")

	view, err := f.tracks.Create(ctx, TrackInput{
		Title:         Some("Canción"),
		Duration:      Some(215),
		Artist:        Some(artist.ID),
		Collaborators: Some([]string{collab.ID, missingUserID}),
		Genres:        Some([]string{"flamenco", "pop"}),
	})
	require.NoError(t, err)

	require.NotNil(t, view.Artist)
	assert.Equal(t, models.UserRef{ID: artist.ID, Name: "Rosalía", Email: "rosalia@example.com"}, *view.Artist)
	require.Len(t, view.Collaborators, 1, "unknown collaborators are dropped")
	assert.Equal(t, collab.ID, view.Collaborators[0].ID)
	assert.Equal(t, testStart, view.ReleaseDate)
	assert.Zero(t, view.Plays)
	assert.Equal(t, []string{events.TrackCreated}, f.recorder.Types())
}

func TestTrackService_MissingArtistIsNull(t *testing.T) {
	ctx := context.Background()
	f := newTrackFixture(t)

	view, err := f.tracks.Create(ctx, TrackInput{
		Title:    Some("Huérfana"),
		Duration: Some(100),
		Artist:   Some(missingUserID),
		Genres:   Some([]string{"rock"}),
	})
	require.NoError(t, err)
	assert.Nil(t, view.Artist)
	assert.Equal(t, []*models.UserRef{}, view.Collaborators)
}

func TestTrackService_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	f := newTrackFixture(t)
	a := createUser(t, f.users, "A", "a@example.com")
	b := createUser(t, f.users, "B", "b@example.com")

	create := func(title string, duration int, artist string, genres ...string) {
		_, err := f.tracks.Create(ctx, TrackInput{
			Title: Some(title), Duration: Some(duration), Artist: Some(artist), Genres: Some(genres),
		})
		require.NoError(t, err)
	}
	create("Larga", 600, a.ID, "rock")
	create("Corta", 90, a.ID, "pop")
	create("Media", 240, b.ID, "rock", "pop")

	rock, err := f.tracks.List(ctx, TrackFilter{Genre: "rock", SortBy: "duration", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, rock.Data, 2)
	assert.Equal(t, "Media", rock.Data[0].Title)
	assert.Equal(t, "Larga", rock.Data[1].Title)

	byArtist, err := f.tracks.List(ctx, TrackFilter{Artist: a.ID, SortBy: "title", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, byArtist.Data, 2)
	assert.Equal(t, "Corta", byArtist.Data[0].Title)
	assert.Equal(t, 2, byArtist.Pagination.Total)
}

func TestTrackService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newTrackFixture(t)
	artist := createUser(t, f.users, "A", "a@example.com")

	created, err := f.tracks.Create(ctx, TrackInput{
		Title: Some("Demo"), Duration: Some(120), Artist: Some(artist.ID), Genres: Some([]string{"pop"}),
	})
	require.NoError(t, err)

	release := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.tracks.Update(ctx, created.ID, TrackInput{
		Plays:       Some(42),
		ReleaseDate: Some(release),
	})
	require.NoError(t, err)
	assert.Equal(t, 42, updated.Plays)
	assert.Equal(t, release, updated.ReleaseDate)
	assert.Equal(t, "Demo", updated.Title)

	require.NoError(t, f.tracks.Delete(ctx, created.ID))
	_, err = f.tracks.Get(ctx, created.ID)
	requireAppError(t, err, http.StatusNotFound, msgTrackNotFound)
	_, err = f.tracks.Update(ctx, created.ID, TrackInput{Plays: Some(1)})
	requireAppError(t, err, http.StatusNotFound, msgTrackNotFound)
}
