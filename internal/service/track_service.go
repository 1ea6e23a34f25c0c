package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

const msgTrackNotFound = "Track no encontrado"

type TrackFilter struct {
	Genre  string
	Artist string
	SortBy string
	Order  string
	Page
}

type TrackInput struct {
	Title         Field[string]
	Duration      Field[int]
	Artist        Field[string]
	Collaborators Field[[]string]
	Genres        Field[[]string]
	Plays         Field[int]
	ReleaseDate   Field[time.Time]
}

// UserResolver resolves user ids for track responses.
type UserResolver interface {
	Refs(ctx context.Context, ids []string) (map[string]*models.UserRef, error)
}

type TrackService struct {
	tracks    *document.Collection[models.Track]
	users     UserResolver
	index     search.Index
	publisher events.Publisher
	clock     Clock
	logger    *zap.Logger
}

func NewTrackService(
	store document.Store,
	users UserResolver,
	index search.Index,
	publisher events.Publisher,
	clock Clock,
	logger *zap.Logger,
) *TrackService {
	return &TrackService{
		tracks:    document.NewCollection[models.Track](store, "tracks", func(t *models.Track) string { return t.ID }, nil),
		users:     users,
		index:     index,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (s *TrackService) List(ctx context.Context, f TrackFilter) (*PageResult[*models.TrackView], error) {
	p := f.Page.normalized()
	match := func(t *models.Track) bool {
		if f.Genre != "" && !slices.Contains(t.Genres, f.Genre) {
			return false
		}
		if f.Artist != "" && t.Artist != f.Artist {
			return false
		}
		return true
	}
	sortBy := f.SortBy
	desc := f.Order != "asc"

	var (
		tracks []*models.Track
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tracks, err = s.tracks.Find(gctx, document.Query[models.Track]{
			Match: match,
			Less:  func(a, b *models.Track) bool { return ordered(compareTracks(a, b, sortBy), desc) },
			Skip:  p.skip(),
			Limit: p.Limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.tracks.Count(gctx, match)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Unexpected(err)
	}

	views, err := s.populate(ctx, tracks...)
	if err != nil {
		return nil, err
	}
	return &PageResult[*models.TrackView]{Data: views, Pagination: paginate(p, total)}, nil
}

func compareTracks(a, b *models.Track, sortBy string) int {
	switch sortBy {
	case "title":
		return util.CompareText(a.Title, b.Title)
	case "duration":
		return cmp.Compare(a.Duration, b.Duration)
	case "plays":
		return cmp.Compare(a.Plays, b.Plays)
	case "releaseDate":
		return a.ReleaseDate.Compare(b.ReleaseDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (s *TrackService) Get(ctx context.Context, id string) (*models.TrackView, error) {
	t, err := s.tracks.Get(ctx, id)
	if err != nil {
		return nil, trackError(err)
	}
	views, err := s.populate(ctx, t)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *TrackService) Create(ctx context.Context, in TrackInput) (*models.TrackView, error) {
	now := s.clock.now()
	t := &models.Track{
		ID:            models.NewObjectID(),
		Title:         in.Title.Value,
		Duration:      in.Duration.Value,
		Artist:        in.Artist.Value,
		Collaborators: in.Collaborators.Or([]string{}),
		Genres:        in.Genres.Value,
		ReleaseDate:   in.ReleaseDate.Or(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tracks.Insert(ctx, t); err != nil {
		return nil, apperror.From(err)
	}

	s.reindex(ctx, t)
	events.Emit(ctx, s.publisher, s.logger, events.New(events.TrackCreated, t.ID, map[string]any{
		"id": t.ID, "title": t.Title, "artist": t.Artist,
	}))

	views, err := s.populate(ctx, t)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *TrackService) Update(ctx context.Context, id string, in TrackInput) (*models.TrackView, error) {
	t, err := s.tracks.Update(ctx, id, func(t *models.Track) error {
		if in.Title.Set {
			t.Title = in.Title.Value
		}
		if in.Duration.Set {
			t.Duration = in.Duration.Value
		}
		if in.Artist.Set {
			t.Artist = in.Artist.Value
		}
		if in.Collaborators.Set {
			t.Collaborators = in.Collaborators.Or([]string{})
		}
		if in.Genres.Set {
			t.Genres = in.Genres.Value
		}
		if in.Plays.Set {
			t.Plays = in.Plays.Value
		}
		if in.ReleaseDate.Set {
			t.ReleaseDate = in.ReleaseDate.Value
		}
		t.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, trackError(err)
	}
	if in.Title.Set {
		s.reindex(ctx, t)
	}

	views, err := s.populate(ctx, t)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *TrackService) Delete(ctx context.Context, id string) error {
	if err := s.tracks.Delete(ctx, id); err != nil {
		return trackError(err)
	}
	if err := s.index.Remove(ctx, search.KindTrack, id); err != nil {
		s.logger.Warn("Failed to remove track from search index", zap.String("track_id", id), zap.Error(err))
	}
	return nil
}

// populate resolves artists and collaborators with one lookup for the
// whole batch. A missing artist becomes null and missing collaborators
// are left out.
func (s *TrackService) populate(ctx context.Context, tracks ...*models.Track) ([]*models.TrackView, error) {
	var ids []string
	for _, t := range tracks {
		ids = append(ids, t.Artist)
		ids = append(ids, t.Collaborators...)
	}
	refs, err := s.users.Refs(ctx, ids)
	if err != nil {
		return nil, apperror.Unexpected(err)
	}

	views := make([]*models.TrackView, len(tracks))
	for i, t := range tracks {
		collaborators := make([]*models.UserRef, 0, len(t.Collaborators))
		for _, id := range t.Collaborators {
			if ref, ok := refs[id]; ok {
				collaborators = append(collaborators, ref)
			}
		}
		views[i] = &models.TrackView{
			ID:            t.ID,
			Title:         t.Title,
			Duration:      t.Duration,
			Artist:        refs[t.Artist],
			Collaborators: collaborators,
			Genres:        t.Genres,
			Plays:         t.Plays,
			ReleaseDate:   t.ReleaseDate,
			CreatedAt:     t.CreatedAt,
			UpdatedAt:     t.UpdatedAt,
		}
	}
	return views, nil
}

func (s *TrackService) reindex(ctx context.Context, t *models.Track) {
	if err := s.index.Put(ctx, search.KindTrack, t.ID, map[string]string{"title": t.Title}); err != nil {
		s.logger.Warn("Failed to index track", zap.String("track_id", t.ID), zap.Error(err))
	}
}

func trackError(err error) error {
	if apperror.IsNotFound(err) {
		return apperror.NotFound(msgTrackNotFound)
	}
	return apperror.From(err)
}
