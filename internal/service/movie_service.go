package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

const (
	msgMovieNotFound = "Película no encontrada"
	msgNoCover       = "Esta película no tiene carátula"
	msgNoCopies      = "No hay copias disponibles para alquilar"
	msgAllReturned   = "Todas las copias ya están disponibles, no se puede devolver más"
	topMoviesLimit   = 5
)

type MovieFilter struct {
	Genre     string
	Search    string
	Available *bool
	SortBy    string
	Order     string
	Page
}

type MovieInput struct {
	Title    Field[string]
	Director Field[string]
	Year     Field[int]
	Genre    Field[string]
	Copies   Field[int]
}

// CoverResult is the movie after a cover upload plus the cover URL.
type CoverResult struct {
	Movie    *models.Movie
	CoverURL string
}

type MovieService struct {
	movies      *document.Collection[models.Movie]
	index       search.Index
	publisher   events.Publisher
	files       Files
	coverPolicy UploadPolicy
	clock       Clock
	logger      *zap.Logger
}

func NewMovieService(
	store document.Store,
	index search.Index,
	publisher events.Publisher,
	files Files,
	coverPolicy UploadPolicy,
	clock Clock,
	logger *zap.Logger,
) *MovieService {
	return &MovieService{
		movies:      document.NewCollection[models.Movie](store, "movies", func(m *models.Movie) string { return m.ID }, nil),
		index:       index,
		publisher:   publisher,
		files:       files,
		coverPolicy: coverPolicy,
		clock:       clock,
		logger:      logger,
	}
}

// List filters, sorts and pages movies. The page and the total are read
// concurrently.
func (s *MovieService) List(ctx context.Context, f MovieFilter) (*PageResult[*models.Movie], error) {
	p := f.Page.normalized()

	match, err := s.movieMatcher(ctx, f)
	if err != nil {
		return nil, err
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	desc := f.Order != "asc"

	var (
		data  []*models.Movie
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.movies.Find(gctx, document.Query[models.Movie]{
			Match: match,
			Less:  func(a, b *models.Movie) bool { return ordered(compareMovies(a, b, sortBy), desc) },
			Skip:  p.skip(),
			Limit: p.Limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.movies.Count(gctx, match)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Unexpected(err)
	}

	if data == nil {
		data = []*models.Movie{}
	}
	return &PageResult[*models.Movie]{Data: data, Pagination: paginate(p, total)}, nil
}

func (s *MovieService) movieMatcher(ctx context.Context, f MovieFilter) (func(*models.Movie) bool, error) {
	var hits map[string]struct{}
	if f.Search != "" {
		ids, err := s.index.Match(ctx, search.KindMovie, "title", f.Search)
		if err != nil {
			return nil, apperror.Unexpected(fmt.Errorf("search movies: %w", err))
		}
		hits = search.IDSet(ids)
	}

	return func(m *models.Movie) bool {
		if f.Genre != "" && m.Genre != f.Genre {
			return false
		}
		if f.Available != nil {
			if *f.Available && m.AvailableCopies <= 0 {
				return false
			}
			if !*f.Available && m.AvailableCopies != 0 {
				return false
			}
		}
		if hits != nil {
			if _, ok := hits[m.ID]; !ok {
				return false
			}
		}
		return true
	}, nil
}

func compareMovies(a, b *models.Movie, sortBy string) int {
	switch sortBy {
	case "title":
		return util.CompareText(a.Title, b.Title)
	case "year":
		return cmp.Compare(a.Year, b.Year)
	case "genre":
		return cmp.Compare(a.Genre, b.Genre)
	case "timesRented":
		return cmp.Compare(a.TimesRented, b.TimesRented)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Available lists movies with at least one free copy, by title.
func (s *MovieService) Available(ctx context.Context) ([]*models.Movie, error) {
	out, err := s.movies.Find(ctx, document.Query[models.Movie]{
		Match: func(m *models.Movie) bool { return m.AvailableCopies > 0 },
		Less:  func(a, b *models.Movie) bool { return util.CompareText(a.Title, b.Title) < 0 },
	})
	if err != nil {
		return nil, apperror.Unexpected(err)
	}
	return nonNil(out), nil
}

// Top lists the most rented movies.
func (s *MovieService) Top(ctx context.Context) ([]*models.Movie, error) {
	out, err := s.movies.Find(ctx, document.Query[models.Movie]{
		Match: func(m *models.Movie) bool { return m.TimesRented > 0 },
		Less:  func(a, b *models.Movie) bool { return a.TimesRented > b.TimesRented },
		Limit: topMoviesLimit,
	})
	if err != nil {
		return nil, apperror.Unexpected(err)
	}
	return nonNil(out), nil
}

func (s *MovieService) Get(ctx context.Context, id string) (*models.Movie, error) {
	m, err := s.movies.Get(ctx, id)
	if err != nil {
		return nil, movieError(err)
	}
	return m, nil
}

func (s *MovieService) Create(ctx context.Context, in MovieInput) (*models.Movie, error) {
	now := s.clock.now()
	copies := in.Copies.Or(5)
	m := &models.Movie{
		ID:              models.NewObjectID(),
		Title:           in.Title.Value,
		Director:        in.Director.Value,
		Year:            in.Year.Value,
		Genre:           in.Genre.Value,
		Copies:          copies,
		AvailableCopies: copies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.movies.Insert(ctx, m); err != nil {
		return nil, apperror.From(err)
	}

	s.reindex(ctx, m)
	events.Emit(ctx, s.publisher, s.logger, events.New(events.MovieCreated, m.ID, m))
	s.logger.Info("Movie created", zap.String("movie_id", m.ID), zap.String("title", m.Title))
	return m, nil
}

// Update applies the sent fields. A new copy count keeps the rented
// copies rented and never drives the available count below zero.
func (s *MovieService) Update(ctx context.Context, id string, in MovieInput) (*models.Movie, error) {
	m, err := s.movies.Update(ctx, id, func(m *models.Movie) error {
		if in.Title.Set {
			m.Title = in.Title.Value
		}
		if in.Director.Set {
			m.Director = in.Director.Value
		}
		if in.Year.Set {
			m.Year = in.Year.Value
		}
		if in.Genre.Set {
			m.Genre = in.Genre.Value
		}
		if in.Copies.Set {
			rented := m.Rented()
			m.Copies = in.Copies.Value
			m.AvailableCopies = max(0, in.Copies.Value-rented)
		}
		m.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, movieError(err)
	}
	if in.Title.Set || in.Director.Set {
		s.reindex(ctx, m)
	}
	return m, nil
}

// Delete removes the movie and then its cover file.
func (s *MovieService) Delete(ctx context.Context, id string) error {
	m, err := s.movies.Get(ctx, id)
	if err != nil {
		return movieError(err)
	}
	if err := s.movies.Delete(ctx, id); err != nil {
		return movieError(err)
	}

	if m.Cover != nil {
		removeQuietly(s.files, s.logger, *m.Cover, "movie deleted")
	}
	if err := s.index.Remove(ctx, search.KindMovie, id); err != nil {
		s.logger.Warn("Failed to remove movie from search index", zap.String("movie_id", id), zap.Error(err))
	}
	events.Emit(ctx, s.publisher, s.logger, events.New(events.MovieDeleted, id, map[string]string{"id": id}))
	return nil
}

func (s *MovieService) Rent(ctx context.Context, id string) (*models.Movie, string, error) {
	m, err := s.movies.Update(ctx, id, func(m *models.Movie) error {
		if m.AvailableCopies == 0 {
			return apperror.Conflict(msgNoCopies)
		}
		m.AvailableCopies--
		m.TimesRented++
		m.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, "", movieError(err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.MovieRented, m.ID, map[string]any{
		"id": m.ID, "availableCopies": m.AvailableCopies, "timesRented": m.TimesRented,
	}))
	msg := fmt.Sprintf("Película %q alquilada correctamente. Copias disponibles: %d", m.Title, m.AvailableCopies)
	return m, msg, nil
}

func (s *MovieService) Return(ctx context.Context, id string) (*models.Movie, string, error) {
	m, err := s.movies.Update(ctx, id, func(m *models.Movie) error {
		if m.AvailableCopies >= m.Copies {
			return apperror.Conflict(msgAllReturned)
		}
		m.AvailableCopies++
		m.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, "", movieError(err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.MovieReturned, m.ID, map[string]any{
		"id": m.ID, "availableCopies": m.AvailableCopies,
	}))
	msg := fmt.Sprintf("Película %q devuelta correctamente. Copias disponibles: %d", m.Title, m.AvailableCopies)
	return m, msg, nil
}

// SetCover stores the upload and points the movie at it. The previous
// cover file is removed afterwards.
func (s *MovieService) SetCover(ctx context.Context, id string, up Upload) (*CoverResult, error) {
	if err := s.coverPolicy.check(up); err != nil {
		return nil, err
	}
	if _, err := s.movies.Get(ctx, id); err != nil {
		return nil, movieError(err)
	}

	name := s.files.NewName("cover", up.OriginalName)
	if _, err := s.files.Save(name, up.Content); err != nil {
		return nil, apperror.Unexpected(err)
	}

	var previous string
	m, err := s.movies.Update(ctx, id, func(m *models.Movie) error {
		previous = ""
		if m.Cover != nil {
			previous = *m.Cover
		}
		cover := name
		m.Cover = &cover
		m.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		removeQuietly(s.files, s.logger, name, "cover update failed")
		return nil, movieError(err)
	}

	removeQuietly(s.files, s.logger, previous, "cover replaced")
	return &CoverResult{Movie: m, CoverURL: s.files.URL(name)}, nil
}

// CoverPath resolves the cover file of a movie on disk.
func (s *MovieService) CoverPath(ctx context.Context, id string) (string, error) {
	m, err := s.movies.Get(ctx, id)
	if err != nil {
		return "", movieError(err)
	}
	if m.Cover == nil {
		return "", apperror.NotFound(msgNoCover)
	}
	path, err := s.files.Path(*m.Cover)
	if err != nil {
		return "", apperror.Unexpected(err)
	}
	return path, nil
}

// Rate folds rating into the running average, kept to two decimals.
func (s *MovieService) Rate(ctx context.Context, id string, rating float64) (*models.Movie, string, error) {
	m, err := s.movies.Update(ctx, id, func(m *models.Movie) error {
		total := m.Rating.Average * float64(m.Rating.Count)
		m.Rating.Count++
		m.Rating.Average = math.Round((total+rating)/float64(m.Rating.Count)*100) / 100
		m.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, "", movieError(err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.MovieRated, m.ID, map[string]any{
		"id": m.ID, "rating": rating, "average": m.Rating.Average, "count": m.Rating.Count,
	}))
	msg := fmt.Sprintf("Película %q valorada con %s. Media actual: %s",
		m.Title, formatNumber(rating), formatNumber(m.Rating.Average))
	return m, msg, nil
}

func (s *MovieService) reindex(ctx context.Context, m *models.Movie) {
	err := s.index.Put(ctx, search.KindMovie, m.ID, map[string]string{"title": m.Title, "director": m.Director})
	if err != nil {
		s.logger.Warn("Failed to index movie", zap.String("movie_id", m.ID), zap.Error(err))
	}
}

// Reindex rebuilds the search entries of every stored movie.
func (s *MovieService) Reindex(ctx context.Context) (int, error) {
	all, err := s.movies.All(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range all {
		s.reindex(ctx, m)
	}
	return len(all), nil
}

func movieError(err error) error {
	if apperror.IsNotFound(err) {
		return apperror.NotFound(msgMovieNotFound)
	}
	return apperror.From(err)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
