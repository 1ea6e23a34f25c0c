package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/encryption"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/hashing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
)

// Dependencies are the shared collaborators every service is built from.
type Dependencies struct {
	Store        document.Store
	Index        search.Index
	Publisher    events.Publisher
	Files        Files
	Hasher       *hashing.Hasher
	Encryption   *encryption.EncryptionManager
	CoverPolicy  UploadPolicy
	FilePolicy   UploadPolicy
	Categories   []string
	UserCacheTTL time.Duration
	Clock        Clock
	Logger       *zap.Logger
}

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	deps Dependencies

	todoService    *TodoService
	movieService   *MovieService
	userService    *UserService
	trackService   *TrackService
	storageService *StorageService
	cursoService   *CursoService
	usuarioService *UsuarioService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(deps Dependencies) *ServiceFactory {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Index == nil {
		deps.Index = search.NewMemoryIndex()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.UserCacheTTL <= 0 {
		deps.UserCacheTTL = 5 * time.Minute
	}
	return &ServiceFactory{deps: deps}
}

// TodoService returns the todo service instance (singleton), seeded on
// first use.
func (f *ServiceFactory) TodoService() *TodoService {
	if f.todoService == nil {
		f.todoService = NewTodoService(f.deps.Clock, f.deps.Logger)
		f.todoService.Seed()
	}
	return f.todoService
}

func (f *ServiceFactory) MovieService() *MovieService {
	if f.movieService == nil {
		f.movieService = NewMovieService(
			f.deps.Store,
			f.deps.Index,
			f.deps.Publisher,
			f.deps.Files,
			f.deps.CoverPolicy,
			f.deps.Clock,
			f.deps.Logger,
		)
	}
	return f.movieService
}

func (f *ServiceFactory) UserService() *UserService {
	if f.userService == nil {
		f.userService = NewUserService(
			f.deps.Store,
			f.deps.Hasher,
			f.deps.Encryption,
			f.deps.Publisher,
			NewUserCache(f.deps.UserCacheTTL),
			f.deps.Clock,
			f.deps.Logger,
		)
	}
	return f.userService
}

func (f *ServiceFactory) TrackService() *TrackService {
	if f.trackService == nil {
		f.trackService = NewTrackService(
			f.deps.Store,
			f.UserService(),
			f.deps.Index,
			f.deps.Publisher,
			f.deps.Clock,
			f.deps.Logger,
		)
	}
	return f.trackService
}

func (f *ServiceFactory) StorageService() *StorageService {
	if f.storageService == nil {
		f.storageService = NewStorageService(
			f.deps.Store,
			f.deps.Files,
			f.deps.FilePolicy,
			f.deps.Publisher,
			f.deps.Clock,
			f.deps.Logger,
		)
	}
	return f.storageService
}

func (f *ServiceFactory) CursoService() *CursoService {
	if f.cursoService == nil {
		f.cursoService = NewCursoService(f.deps.Categories, f.deps.Logger)
		f.cursoService.Seed()
	}
	return f.cursoService
}

func (f *ServiceFactory) UsuarioService() *UsuarioService {
	if f.usuarioService == nil {
		f.usuarioService = NewUsuarioService(f.deps.Logger)
		f.usuarioService.Seed()
	}
	return f.usuarioService
}

// Cleanup cleans up all services
func (f *ServiceFactory) Cleanup() {
	if f.userService != nil {
		f.userService.Cleanup()
	}
}
