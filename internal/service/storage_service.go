package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

const msgFileNotFound = "Archivo no encontrado"

// StorageService saves uploads to disk and their metadata to the store.
type StorageService struct {
	files     *document.Collection[models.StoredFile]
	disk      Files
	policy    UploadPolicy
	publisher events.Publisher
	clock     Clock
	logger    *zap.Logger
}

func NewStorageService(
	store document.Store,
	disk Files,
	policy UploadPolicy,
	publisher events.Publisher,
	clock Clock,
	logger *zap.Logger,
) *StorageService {
	return &StorageService{
		files:     document.NewCollection[models.StoredFile](store, "storage", func(f *models.StoredFile) string { return f.ID }, nil),
		disk:      disk,
		policy:    policy,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (s *StorageService) Upload(ctx context.Context, up Upload) (*models.StoredFile, error) {
	if err := s.policy.check(up); err != nil {
		return nil, err
	}

	original := util.SanitizeFilename(up.OriginalName)
	name := s.disk.NewName("file", original)
	size, err := s.disk.Save(name, up.Content)
	if err != nil {
		return nil, apperror.Unexpected(err)
	}

	now := s.clock.now()
	f := &models.StoredFile{
		ID:           models.NewObjectID(),
		Filename:     name,
		OriginalName: original,
		URL:          s.disk.URL(name),
		Mimetype:     up.Mimetype,
		Size:         size,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.files.Insert(ctx, f); err != nil {
		removeQuietly(s.disk, s.logger, name, "metadata insert failed")
		return nil, apperror.From(err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.FileUploaded, f.ID, map[string]any{
		"id": f.ID, "filename": f.Filename, "mimetype": f.Mimetype, "size": f.Size,
	}))
	s.logger.Info("File uploaded",
		zap.String("file_id", f.ID),
		zap.String("filename", f.Filename),
		zap.Int64("size", f.Size))
	return f, nil
}

// List returns every file, newest first.
func (s *StorageService) List(ctx context.Context) ([]*models.StoredFile, error) {
	out, err := s.files.Find(ctx, document.Query[models.StoredFile]{
		Less: func(a, b *models.StoredFile) bool { return a.CreatedAt.After(b.CreatedAt) },
	})
	if err != nil {
		return nil, apperror.Unexpected(err)
	}
	return nonNil(out), nil
}

func (s *StorageService) Get(ctx context.Context, id string) (*models.StoredFile, error) {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return f, nil
}

// Delete removes the file from disk, then its metadata. A file already
// gone from disk only logs a warning.
func (s *StorageService) Delete(ctx context.Context, id string) error {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return storageError(err)
	}
	removeQuietly(s.disk, s.logger, f.Filename, "file deleted")
	if err := s.files.Delete(ctx, id); err != nil {
		return storageError(err)
	}
	return nil
}

func storageError(err error) error {
	if apperror.IsNotFound(err) {
		return apperror.NotFound(msgFileNotFound)
	}
	return apperror.From(err)
}
