package service

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
)

// Files is where uploaded content lives.
type Files interface {
	NewName(prefix, original string) string
	Save(name string, src io.Reader) (int64, error)
	Path(name string) (string, error)
	Remove(name string) error
	URL(name string) string
}

// Upload is one received multipart file.
type Upload struct {
	OriginalName string
	Mimetype     string
	Size         int64
	Content      io.Reader
}

// UploadPolicy limits what an upload route accepts.
type UploadPolicy struct {
	MaxBytes  int64
	MimeTypes []string
	// Rejection is the message for a disallowed type.
	Rejection string
}

func (p UploadPolicy) check(u Upload) error {
	allowed := false
	for _, m := range p.MimeTypes {
		if m == u.Mimetype {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.UnsupportedMediaType(p.Rejection)
	}
	if p.MaxBytes > 0 && u.Size > p.MaxBytes {
		return apperror.PayloadTooLarge(fmt.Sprintf("El archivo no puede superar %d MB", p.MaxBytes/(1024*1024)))
	}
	return nil
}

// removeQuietly deletes a stored file, logging instead of failing.
func removeQuietly(files Files, logger *zap.Logger, name, reason string) {
	if name == "" {
		return
	}
	if err := files.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("File not found on disk", zap.String("file", name), zap.String("reason", reason))
			return
		}
		logger.Warn("Failed to remove file", zap.String("file", name), zap.String("reason", reason), zap.Error(err))
	}
}
